package socketio

import (
	"net"
	"strings"
	"sync"
)

// ConnectionLimiter caps concurrent feed clients from other hosts. Loopback
// clients are never counted. When a new external client exceeds the cap, the
// oldest external client is evicted.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	external    []string          // oldest first
	connections map[string]string // clientID -> host
}

// NewConnectionLimiter creates a limiter for up to maxExternal external clients.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	if maxExternal < 1 {
		maxExternal = 1
	}
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		connections: make(map[string]string),
	}
}

// Add registers a client connecting from remoteAddr ("host" or "host:port")
// and returns the ID of the client to evict, or "".
func (cl *ConnectionLimiter) Add(clientID, remoteAddr string) string {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; exists {
		return ""
	}

	host := hostOf(remoteAddr)
	cl.connections[clientID] = host
	if isLoopback(host) {
		return ""
	}

	cl.external = append(cl.external, clientID)
	if len(cl.external) <= cl.maxExternal {
		return ""
	}

	evicted := cl.external[0]
	cl.external = cl.external[1:]
	delete(cl.connections, evicted)
	return evicted
}

// Remove unregisters a client.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	host, exists := cl.connections[clientID]
	if !exists {
		return
	}
	delete(cl.connections, clientID)
	if isLoopback(host) {
		return
	}

	for i, id := range cl.external {
		if id == clientID {
			cl.external = append(cl.external[:i], cl.external[i+1:]...)
			break
		}
	}
}

// Counts returns the number of tracked clients and how many are external.
func (cl *ConnectionLimiter) Counts() (total, external int) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.connections), len(cl.external)
}

// hostOf strips the port and an IPv4-mapped IPv6 prefix.
func hostOf(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return strings.TrimPrefix(addr, "::ffff:")
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
