package chat

import (
	"sync"
)

// GroupKind separates the two broadcast namespaces so a chat id and a user
// id can never collide as group keys.
type GroupKind uint8

const (
	GroupChat GroupKind = iota + 1
	GroupUser
)

type GroupKey struct {
	Kind GroupKind
	ID   string
}

func ChatGroup(chatID string) GroupKey { return GroupKey{Kind: GroupChat, ID: chatID} }
func UserGroup(userID string) GroupKey { return GroupKey{Kind: GroupUser, ID: userID} }

// Router manages transient membership of connections in broadcast groups:
// chat groups for live room updates, personal groups for cross-chat pushes.
// Membership is not validated against the chat entity here; the caller owns
// that trust boundary.
type Router struct {
	mu     sync.RWMutex
	groups map[GroupKey]map[string]*Client  // key -> conn_id -> client
	byConn map[string]map[GroupKey]struct{} // conn_id -> joined keys

	fan *Fanout
}

func NewRouter(fan *Fanout) *Router {
	return &Router{
		groups: make(map[GroupKey]map[string]*Client),
		byConn: make(map[string]map[GroupKey]struct{}),
		fan:    fan,
	}
}

// Join adds the connection to the group; idempotent.
func (r *Router) Join(c *Client, key GroupKey) {
	if c == nil || key.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.groups[key]
	if g == nil {
		g = make(map[string]*Client)
		r.groups[key] = g
	}
	g[c.ConnID] = c
	k := r.byConn[c.ConnID]
	if k == nil {
		k = make(map[GroupKey]struct{})
		r.byConn[c.ConnID] = k
	}
	k[key] = struct{}{}
}

// Leave removes the connection from one group; no-op if absent.
func (r *Router) Leave(c *Client, key GroupKey) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c.ConnID, key)
}

// LeaveAll drops the connection from every group it joined; called on
// disconnect so no distinct leave event is needed.
func (r *Router) LeaveAll(c *Client) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.byConn[c.ConnID] {
		r.leaveLocked(c.ConnID, key)
	}
	delete(r.byConn, c.ConnID)
}

func (r *Router) leaveLocked(connID string, key GroupKey) {
	if g := r.groups[key]; g != nil {
		delete(g, connID)
		if len(g) == 0 {
			delete(r.groups, key)
		}
	}
	if k := r.byConn[connID]; k != nil {
		delete(k, key)
		if len(k) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// Members snapshots the group's connections, minus an optional exclusion.
func (r *Router) Members(key GroupKey, exclude *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g := r.groups[key]
	if len(g) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(g))
	for id, c := range g {
		if exclude != nil && id == exclude.ConnID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// BroadcastToChat delivers payload to every connection in the chat group
// except the excluded one (typically the sender, which gets a distinct
// ack). Fire-and-forget; connections that left are simply not in the
// snapshot.
func (r *Router) BroadcastToChat(chatID string, exclude *Client, payload []byte) {
	r.fan.Deliver(r.Members(ChatGroup(chatID), exclude), payload)
}

// PushToUser delivers payload to all of the user's live connections,
// whatever chat each of them is viewing.
func (r *Router) PushToUser(userID string, payload []byte) {
	r.fan.Deliver(r.Members(UserGroup(userID), nil), payload)
}
