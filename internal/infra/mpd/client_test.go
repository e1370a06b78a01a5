package mpd_test

import (
	"bufio"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/edumarques81/stellar-tagger/internal/infra/mpd"
)

// fakeMPD is a minimal MPD protocol server that records received commands.
type fakeMPD struct {
	ln       net.Listener
	mu       sync.Mutex
	commands []string
}

func startFakeMPD(t *testing.T) *fakeMPD {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	f := &fakeMPD{ln: ln}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeMPD) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakeMPD) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMPD) handle(conn net.Conn) {
	defer conn.Close()
	conn.Write([]byte("OK MPD 0.23.5\n"))
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		f.mu.Lock()
		f.commands = append(f.commands, line)
		f.mu.Unlock()

		switch {
		case strings.HasPrefix(line, "update"):
			conn.Write([]byte("updating_db: 7\nOK\n"))
		case strings.HasPrefix(line, "password"):
			if strings.Contains(line, "secret") {
				conn.Write([]byte("OK\n"))
			} else {
				conn.Write([]byte("ACK [3@0] {password} incorrect password\n"))
			}
		case line == "close":
			return
		default:
			conn.Write([]byte("OK\n"))
		}
	}
}

func (f *fakeMPD) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func TestNewClient(t *testing.T) {
	client := mpd.NewClient("localhost", 6600)

	if client == nil {
		t.Error("NewClient should return a non-nil client")
	}
}

func TestClientConnectFailure(t *testing.T) {
	// Test connection to non-existent server
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	client := mpd.NewClient("127.0.0.1", port, mpd.WithLogger(zerolog.Nop()))

	if err := client.Connect(); err == nil {
		t.Error("Connect should fail for non-existent server")
		client.Close()
	}
}

func TestClientPingWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 6600)

	if err := client.Ping(); err == nil {
		t.Error("Ping should fail when not connected")
	}
}

func TestClientCloseWithoutConnect(t *testing.T) {
	client := mpd.NewClient("localhost", 6600)

	if err := client.Close(); err != nil {
		t.Errorf("Close should be a no-op when not connected, got %v", err)
	}
}

func TestClientUpdate(t *testing.T) {
	server := startFakeMPD(t)
	client := mpd.NewClient("127.0.0.1", server.port(), mpd.WithLogger(zerolog.Nop()))
	defer client.Close()

	job, err := client.Update("Downloads")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if job != 7 {
		t.Errorf("Expected job 7, got %d", job)
	}

	found := false
	for _, cmd := range server.received() {
		if strings.HasPrefix(cmd, "update") && strings.Contains(cmd, "Downloads") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an update command for Downloads, got %v", server.received())
	}

	if err := client.Ping(); err != nil {
		t.Errorf("Ping after Update failed: %v", err)
	}
}

func TestClientPassword(t *testing.T) {
	server := startFakeMPD(t)

	good := mpd.NewClient("127.0.0.1", server.port(), mpd.WithPassword("secret"), mpd.WithLogger(zerolog.Nop()))
	if err := good.Connect(); err != nil {
		t.Fatalf("Connect with valid password failed: %v", err)
	}
	good.Close()

	bad := mpd.NewClient("127.0.0.1", server.port(), mpd.WithPassword("wrong"), mpd.WithLogger(zerolog.Nop()))
	if err := bad.Connect(); err == nil {
		t.Error("Connect with wrong password should fail")
		bad.Close()
	}
}

func TestClientURIFor(t *testing.T) {
	musicDir := filepath.Join(t.TempDir(), "music")
	client := mpd.NewClient("localhost", 6600, mpd.WithMusicDir(musicDir))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"nested file", filepath.Join(musicDir, "Downloads", "Artist - Song.m4a"), "Downloads"},
		{"deeper file", filepath.Join(musicDir, "a", "b", "c.mp3"), "a/b"},
		{"root file", filepath.Join(musicDir, "c.mp3"), ""},
		{"outside", filepath.Join(filepath.Dir(musicDir), "other", "c.mp3"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.URIFor(tt.path); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}

	if got := mpd.NewClient("localhost", 6600).URIFor("/x/y.mp3"); got != "" {
		t.Errorf("Expected full rescan without music dir, got '%s'", got)
	}
}

func TestClientNotifyFile(t *testing.T) {
	server := startFakeMPD(t)
	musicDir := t.TempDir()
	client := mpd.NewClient("127.0.0.1", server.port(), mpd.WithMusicDir(musicDir), mpd.WithLogger(zerolog.Nop()))
	defer client.Close()

	if err := client.NotifyFile(filepath.Join(musicDir, "Tagged", "a.flac")); err != nil {
		t.Fatalf("NotifyFile failed: %v", err)
	}

	found := false
	for _, cmd := range server.received() {
		if strings.HasPrefix(cmd, "update") && strings.Contains(cmd, "Tagged") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected update for Tagged, got %v", server.received())
	}
}
