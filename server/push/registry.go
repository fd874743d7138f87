// Package push tracks live client connections and fans out best-effort
// notifications. Connections are process-lifetime-only: losing one is normal
// churn, not an error.
package push

import (
	"log/slog"
	"sync"

	"github.com/sera-ai/sera/internal/observability"
)

// Conn is a live push-channel handle capable of receiving messages.
type Conn interface {
	// Send delivers one message. An error marks the connection dead.
	Send(message any) error
	Close() error
}

// Registry tracks live connections per user. A user may hold several
// simultaneous connections (tabs, devices). All map mutation happens under
// the mutex; sends happen on a snapshot so a slow or dead connection never
// blocks registration, and the maps are never mutated while being iterated.
type Registry struct {
	mu sync.RWMutex

	nextID    int64
	conns     map[int64]Conn
	userConns map[string][]int64
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[int64]Conn),
		userConns: make(map[string][]int64),
	}
}

// Connect registers a connection under the user and returns its id.
func (r *Registry) Connect(conn Conn, userID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.conns[id] = conn
	r.userConns[userID] = append(r.userConns[userID], id)

	slog.Debug("push connection registered", "user_id", userID, "conn_id", id)
	return id
}

// Disconnect removes all connections held by the user.
func (r *Registry) Disconnect(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.userConns[userID] {
		delete(r.conns, id)
	}
	delete(r.userConns, userID)
}

// ConnectionCount returns the number of live connections for the user.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID])
}

// SendToUser delivers the message to every live connection of the user.
// A delivery fault on one connection prunes only that connection; delivery to
// the user's other connections continues. Fire-and-forget: no acknowledgment
// reaches the caller.
func (r *Registry) SendToUser(message any, userID string) {
	r.mu.RLock()
	targets := make(map[int64]Conn, len(r.userConns[userID]))
	for _, id := range r.userConns[userID] {
		if conn, ok := r.conns[id]; ok {
			targets[id] = conn
		}
	}
	r.mu.RUnlock()

	var failed []int64
	for id, conn := range targets {
		if err := conn.Send(message); err != nil {
			slog.Debug("push delivery failed, pruning connection", "user_id", userID, "conn_id", id, "error", err)
			failed = append(failed, id)
		}
	}

	r.prune(failed)
}

// Broadcast delivers the message to every live connection across all users.
// Faulted connections are swept after the send pass completes.
func (r *Registry) Broadcast(message any) {
	r.mu.RLock()
	targets := make(map[int64]Conn, len(r.conns))
	for id, conn := range r.conns {
		targets[id] = conn
	}
	r.mu.RUnlock()

	var failed []int64
	for id, conn := range targets {
		if err := conn.Send(message); err != nil {
			failed = append(failed, id)
		}
	}

	r.prune(failed)
}

// prune removes dead connections from both the flat connection map and every
// user's connection list.
func (r *Registry) prune(ids []int64) {
	if len(ids) == 0 {
		return
	}

	dead := make(map[int64]bool, len(ids))
	for _, id := range ids {
		dead[id] = true
		observability.GlobalMetrics().RecordDeliveryFailure()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range dead {
		delete(r.conns, id)
	}
	for userID, conns := range r.userConns {
		kept := conns[:0]
		for _, id := range conns {
			if !dead[id] {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(r.userConns, userID)
		} else {
			r.userConns[userID] = kept
		}
	}
}
