package presence

import (
	"context"
	"sync"
)

// Conn is an active client connection handle. Send queues a payload for
// delivery and reports false when the client is backed up or gone; delivery
// is never guaranteed.
type Conn interface {
	Send(payload []byte) bool
}

// StatusMirror reflects online/offline transitions into a shared store so
// other instances can answer presence queries. All calls are best effort.
type StatusMirror interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	Online(ctx context.Context, userIDs []string) (map[string]bool, error)
}

// Registry maps a user to their single active connection. It is process
// local and ephemeral: a restart starts empty and clients re-announce
// themselves on reconnect.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]Conn
	mirror StatusMirror
}

func NewRegistry(mirror StatusMirror) *Registry {
	return &Registry{conns: make(map[string]Conn), mirror: mirror}
}

// Register associates the user with the connection. A reconnect supersedes
// the previous handle rather than stacking alongside it.
func (r *Registry) Register(ctx context.Context, userID string, c Conn) {
	r.mu.Lock()
	r.conns[userID] = c
	r.mu.Unlock()
	if r.mirror != nil {
		_ = r.mirror.SetOnline(ctx, userID)
	}
}

// Unregister removes the association, but only if the stored handle is the
// one disconnecting. A stale disconnect from a superseded connection must not
// clear a newer registration. Reports whether the user went offline.
func (r *Registry) Unregister(ctx context.Context, userID string, c Conn) bool {
	r.mu.Lock()
	cur, ok := r.conns[userID]
	if !ok || cur != c {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, userID)
	r.mu.Unlock()
	if r.mirror != nil {
		_ = r.mirror.SetOffline(ctx, userID)
	}
	return true
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// BulkStatus reports which of the given users are connected. Users unknown to
// this instance are looked up in the mirror when one is configured, so a
// multi-instance deployment still answers correctly.
func (r *Registry) BulkStatus(ctx context.Context, userIDs []string) map[string]bool {
	out := make(map[string]bool, len(userIDs))
	var remote []string
	r.mu.RLock()
	for _, id := range userIDs {
		if _, ok := r.conns[id]; ok {
			out[id] = true
		} else {
			out[id] = false
			remote = append(remote, id)
		}
	}
	r.mu.RUnlock()
	if r.mirror != nil && len(remote) > 0 {
		if st, err := r.mirror.Online(ctx, remote); err == nil {
			for id, on := range st {
				if on {
					out[id] = true
				}
			}
		}
	}
	return out
}

// Broadcast sends the payload to every connected client, best effort.
func (r *Registry) Broadcast(payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conns {
		c.Send(payload)
	}
}
