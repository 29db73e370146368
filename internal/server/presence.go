package server

import "sync"

// PresenceRegistry binds a user id to the single connection currently
// representing that user. Registration is last-wins: a new connection
// for an already-registered user supersedes the previous mapping
// without closing the old connection.
type PresenceRegistry struct {
	mu    sync.RWMutex
	users map[int]string // user id -> connection id
	conns map[string]int // connection id -> user id
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		users: make(map[int]string),
		conns: make(map[string]int),
	}
}

// Register binds userId to connId, superseding any existing binding
// for the user. Idempotent.
func (p *PresenceRegistry) Register(userId int, connId string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.users[userId]; ok && prev != connId {
		delete(p.conns, prev)
	}

	p.users[userId] = connId
	p.conns[connId] = userId
}

// Resolve returns the live connection id for a user, if any.
func (p *PresenceRegistry) Resolve(userId int) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	connId, ok := p.users[userId]
	return connId, ok
}

// UserFor is the reverse lookup: the user id currently bound to a
// connection, if any.
func (p *PresenceRegistry) UserFor(connId string) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	userId, ok := p.conns[connId]
	return userId, ok
}

// Unregister removes the binding owned by connId. The removal is
// guarded: if the user has since re-registered through a different
// connection, a stale disconnect must not evict the newer binding.
func (p *PresenceRegistry) Unregister(connId string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userId, ok := p.conns[connId]
	if !ok {
		return
	}
	delete(p.conns, connId)

	if cur, ok := p.users[userId]; ok && cur == connId {
		delete(p.users, userId)
	}
}
