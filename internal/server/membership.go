package server

import "sync"

// MembershipTracker records which connections have joined which rooms.
// It has no opinion on whether a room exists; the router validates
// existence against the conversation directory before joining.
type MembershipTracker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // room name -> connection ids
	conns map[string]map[string]struct{} // connection id -> room names
}

func NewMembershipTracker() *MembershipTracker {
	return &MembershipTracker{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the room's member set. Joining a room
// twice is a no-op.
func (m *MembershipTracker) Join(connId, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms[room] == nil {
		m.rooms[room] = make(map[string]struct{})
	}
	m.rooms[room][connId] = struct{}{}

	if m.conns[connId] == nil {
		m.conns[connId] = make(map[string]struct{})
	}
	m.conns[connId][room] = struct{}{}
}

// IsMember reports whether the connection has joined the room.
func (m *MembershipTracker) IsMember(connId, room string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.rooms[room][connId]
	return ok
}

// MembersOf returns the connection ids currently joined to the room.
func (m *MembershipTracker) MembersOf(room string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := make([]string, 0, len(m.rooms[room]))
	for connId := range m.rooms[room] {
		members = append(members, connId)
	}
	return members
}

// Leave removes the connection from a single room.
func (m *MembershipTracker) Leave(connId, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveLocked(connId, room)
}

// LeaveAll removes the connection from every room it had joined.
// Called on disconnect so the rooms hold no stale fan-out targets.
// Safe to call repeatedly.
func (m *MembershipTracker) LeaveAll(connId string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for room := range m.conns[connId] {
		m.leaveLocked(connId, room)
	}
}

func (m *MembershipTracker) leaveLocked(connId, room string) {
	if members, ok := m.rooms[room]; ok {
		delete(members, connId)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}

	if rooms, ok := m.conns[connId]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(m.conns, connId)
		}
	}
}
