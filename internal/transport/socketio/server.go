// Package socketio provides the Socket.io progress feed for download runs.
package socketio

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-tagger/internal/app/pipeline"
)

// Event names pushed to clients.
const (
	EventTrackStart   = "trackStart"
	EventTrackDone    = "trackDone"
	EventPlaylistDone = "playlistDone"
	EventStatus       = "pushStatus"
)

const (
	defaultMaxExternal = 4
	statusWindow       = 200 * time.Millisecond
	statusMaxDelay     = time.Second
)

// Status is a snapshot of the current run.
type Status struct {
	Running   bool   `json:"running"`
	RunID     string `json:"runId"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	URL       string `json:"url"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	LastError string `json:"lastError,omitempty"`
}

func (st Status) payload() map[string]any {
	return map[string]any{
		"running":   st.Running,
		"runId":     st.RunID,
		"index":     st.Index,
		"total":     st.Total,
		"url":       st.URL,
		"succeeded": st.Succeeded,
		"failed":    st.Failed,
		"lastError": st.LastError,
	}
}

// Server broadcasts pipeline progress to Socket.io clients. It implements
// pipeline.Observer.
type Server struct {
	io        *socket.Server
	limiter   *ConnectionLimiter
	debouncer *BroadcastDebouncer
	logger    zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*socket.Socket
	status  Status
}

var _ pipeline.Observer = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxExternalClients caps concurrent clients from other hosts.
func WithMaxExternalClients(n int) Option {
	return func(s *Server) {
		s.limiter = NewConnectionLimiter(n)
	}
}

// NewServer creates a new Socket.io server.
func NewServer(opts ...Option) (*Server, error) {
	sopts := socket.DefaultServerOptions()
	sopts.SetPingTimeout(20 * time.Second)
	sopts.SetPingInterval(25 * time.Second)
	sopts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:      socket.NewServer(nil, sopts),
		logger:  log.Logger,
		clients: make(map[string]*socket.Socket),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewConnectionLimiter(defaultMaxExternal)
	}
	s.debouncer = NewBroadcastDebouncer(statusWindow, statusMaxDelay, s.BroadcastStatus)

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers the connection handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		addr := client.Handshake().Address

		s.logger.Info().Str("id", clientID).Str("addr", addr).Msg("Feed client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		if evicted := s.limiter.Add(clientID, addr); evicted != "" {
			s.evict(evicted)
		}

		client.Emit(EventStatus, s.Status().payload())

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			s.logger.Info().Str("id", clientID).Str("reason", reason).Msg("Feed client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		client.On("getStatus", func(args ...any) {
			s.logger.Debug().Str("id", clientID).Msg("getStatus")
			client.Emit(EventStatus, s.Status().payload())
		})
	})
}

// evict disconnects a client pushed out by the connection limiter.
func (s *Server) evict(clientID string) {
	s.mu.Lock()
	client, ok := s.clients[clientID]
	delete(s.clients, clientID)
	s.mu.Unlock()

	if ok {
		s.logger.Info().Str("id", clientID).Msg("Evicting oldest external feed client")
		client.Disconnect(true)
	}
}

// Status returns the current run snapshot.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// BroadcastStatus sends the current snapshot to all clients.
func (s *Server) BroadcastStatus() {
	s.io.Emit(EventStatus, s.Status().payload())
}

// OnTrackStart implements pipeline.Observer.
func (s *Server) OnTrackStart(ev pipeline.TrackEvent) {
	s.mu.Lock()
	if ev.RunID == "" || ev.RunID != s.status.RunID {
		s.status = Status{}
	}
	s.status.Running = true
	s.status.RunID = ev.RunID
	s.status.Index = ev.Index
	s.status.Total = ev.Total
	s.status.URL = ev.URL
	s.mu.Unlock()

	s.io.Emit(EventTrackStart, eventPayload(ev))
	s.debouncer.Trigger()
}

// OnTrackDone implements pipeline.Observer.
func (s *Server) OnTrackDone(ev pipeline.TrackEvent, res *pipeline.TrackResult, err error) {
	payload := eventPayload(ev)
	payload["ok"] = err == nil

	s.mu.Lock()
	if err != nil {
		s.status.Failed++
		s.status.LastError = err.Error()
		payload["error"] = err.Error()
	} else {
		s.status.Succeeded++
	}
	if ev.Total == 0 {
		s.status.Running = false
	}
	s.mu.Unlock()

	if res != nil {
		payload["artist"] = res.Metadata.Artist
		payload["title"] = res.Metadata.Title
		payload["album"] = res.Metadata.Album
		payload["path"] = res.Path
		payload["tagged"] = res.Tagged
		payload["coverEmbedded"] = res.CoverEmbedded
		payload["renamed"] = res.Renamed
	}

	s.io.Emit(EventTrackDone, payload)
	s.debouncer.Trigger()
}

// OnPlaylistDone implements pipeline.Observer.
func (s *Server) OnPlaylistDone(sum pipeline.Summary) {
	s.mu.Lock()
	s.status.Running = false
	s.mu.Unlock()

	s.io.Emit(EventPlaylistDone, map[string]any{
		"runId":     sum.RunID,
		"title":     sum.Title,
		"total":     sum.Total,
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
		"skipped":   sum.Skipped,
		"existing":  sum.Existing,
		"outputDir": sum.OutputDir,
	})
	s.debouncer.Trigger()
}

func eventPayload(ev pipeline.TrackEvent) map[string]any {
	return map[string]any{
		"runId": ev.RunID,
		"index": ev.Index,
		"total": ev.Total,
		"url":   ev.URL,
	}
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}
