package chat

import (
	"sync"
	"time"

	"CBProject/logger"
	"CBProject/service/storage"
)

const presenceTTL = 2 * time.Minute

// Registry maps a user identity to that user's live connections. It owns
// transient state only; everything here is rebuilt from nothing on restart.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client // user -> conn_id -> client
	byConn map[string]string             // conn_id -> user

	gwID   string
	mirror bool // mirror register/unregister to redis presence
}

func NewRegistry(gwID string) *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*Client),
		byConn: make(map[string]string),
		gwID:   gwID,
	}
}

// WithPresenceMirror turns on the best-effort redis presence mirror. The
// in-memory maps stay authoritative either way.
func (r *Registry) WithPresenceMirror() *Registry {
	r.mirror = true
	return r
}

// Register binds the connection to userID. Idempotent per connection; a
// re-register with a different user rebinds (last write wins). Returns the
// previously bound user id, empty if none.
func (r *Registry) Register(c *Client, userID string) (prev string) {
	if c == nil || userID == "" {
		return ""
	}
	r.mu.Lock()
	prev = r.byConn[c.ConnID]
	if prev == userID {
		r.mu.Unlock()
		return prev
	}
	if prev != "" {
		r.dropLocked(c.ConnID, prev)
	}
	m := r.byUser[userID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[userID] = m
	}
	m[c.ConnID] = c
	r.byConn[c.ConnID] = userID
	r.mu.Unlock()

	if r.mirror {
		if err := storage.PresenceOnline(userID, r.gwID, presenceTTL); err != nil {
			logger.Warnf("presence online user=%s: %v", userID, err)
		}
	}
	return prev
}

// Unregister removes the connection from its user's set, dropping the user
// entry entirely when the set empties. A connection that never registered
// is a no-op. Returns the user id the connection was bound to and whether
// that user still has live connections.
func (r *Registry) Unregister(c *Client) (userID string, stillOnline bool) {
	if c == nil {
		return "", false
	}
	r.mu.Lock()
	userID = r.byConn[c.ConnID]
	if userID == "" {
		r.mu.Unlock()
		return "", false
	}
	r.dropLocked(c.ConnID, userID)
	stillOnline = len(r.byUser[userID]) > 0
	r.mu.Unlock()

	if r.mirror && !stillOnline {
		if err := storage.PresenceOffline(userID); err != nil {
			logger.Warnf("presence offline user=%s: %v", userID, err)
		}
	}
	return userID, stillOnline
}

func (r *Registry) dropLocked(connID, userID string) {
	delete(r.byConn, connID)
	if m := r.byUser[userID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// IsOnline reports whether at least one live connection is registered for
// the user.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// IdentityOf returns the user id bound to the connection, empty if the
// connection never registered.
func (r *Registry) IdentityOf(c *Client) string {
	if c == nil {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[c.ConnID]
}

// ConnsOf lists the user's live connections.
func (r *Registry) ConnsOf(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}
