package tcp

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ConnManager tracks live connections and is the single admission-control
// point: once the active count reaches the maximum, new connections are
// refused at accept time rather than queued. Lifetime counters use atomics so
// metrics can be read at any time without blocking connection handling.
type ConnManager struct {
	mu    sync.Mutex
	conns map[string]net.Conn
	max   int

	totalConnections atomic.Int64
	totalRequests    atomic.Int64
	totalErrors      atomic.Int64
}

// Stats is a point-in-time metrics snapshot. Lifetime counters are eventually
// accurate relative to the active count, not transactional.
type Stats struct {
	ActiveConnections int   `json:"activeConnections"`
	TotalConnections  int64 `json:"totalConnections"`
	TotalRequests     int64 `json:"totalRequests"`
	TotalErrors       int64 `json:"totalErrors"`
}

// NewConnManager creates a manager admitting at most max concurrent connections.
func NewConnManager(max int) *ConnManager {
	return &ConnManager{
		conns: make(map[string]net.Conn),
		max:   max,
	}
}

// Admit registers a connection and returns its id. It returns false when the
// manager is at capacity; the caller must then close the connection immediately.
func (m *ConnManager) Admit(conn net.Conn) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.conns) >= m.max {
		return "", false
	}
	id := uuid.New().String()
	m.conns[id] = conn
	m.totalConnections.Add(1)
	return id, true
}

// Release forgets a connection after it closed.
func (m *ConnManager) Release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, id)
}

// CloseAll forcibly terminates every tracked connection without waiting for
// in-flight work.
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, conn := range m.conns {
		conn.Close()
		delete(m.conns, id)
	}
}

// CountRequest records one handled request.
func (m *ConnManager) CountRequest() {
	m.totalRequests.Add(1)
}

// CountError records one request that produced an error envelope.
func (m *ConnManager) CountError() {
	m.totalErrors.Add(1)
}

// Stats returns the current metrics snapshot.
func (m *ConnManager) Stats() Stats {
	m.mu.Lock()
	active := len(m.conns)
	m.mu.Unlock()

	return Stats{
		ActiveConnections: active,
		TotalConnections:  m.totalConnections.Load(),
		TotalRequests:     m.totalRequests.Load(),
		TotalErrors:       m.totalErrors.Load(),
	}
}
