package server

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/chatrelay/chatrelay/internal/database"
	"github.com/chatrelay/chatrelay/internal/stats"
	"github.com/chatrelay/chatrelay/internal/types"
)

// Metric names registered by the chat server.
const (
	StatActiveConnections = "ActiveConnections"
	StatMessagesRouted    = "MessagesRouted"
	StatRoomBroadcasts    = "RoomBroadcasts"
	StatDirectDeliveries  = "DirectDeliveries"
)

// ChatServer is the event router: it validates inbound events, consults
// the presence registry, membership tracker and conversation directory,
// persists messages, and computes the outbound fan-out.
type ChatServer struct {
	log         *log.Logger
	db          database.ChatRepository
	stats       stats.StatsProvider
	presence    *PresenceRegistry
	membership  *MembershipTracker
	clients     map[string]*Client
	clientsLock sync.RWMutex
	convLocks   *keyedMutex
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, sp stats.StatsProvider) (*ChatServer, error) {
	if logger == nil || db == nil || sp == nil {
		return nil, errors.New("logger, database and stats are required")
	}

	for _, name := range []string{
		StatActiveConnections,
		StatMessagesRouted,
		StatRoomBroadcasts,
		StatDirectDeliveries,
	} {
		sp.RegisterMetric(name)
	}

	return &ChatServer{
		log:        logger,
		db:         db,
		stats:      sp,
		presence:   NewPresenceRegistry(),
		membership: NewMembershipTracker(),
		clients:    make(map[string]*Client),
		convLocks:  newKeyedMutex(),
	}, nil
}

// RegisterClient adds a freshly upgraded connection to the live set.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.clientsLock.Lock()
	cs.clients[c.id] = c
	cs.clientsLock.Unlock()

	cs.stats.Incr(StatActiveConnections)
	cs.log.Printf("connection %q opened for %q", c.id, c.user.Username)
}

// handleDisconnect runs the transport-level disconnect cleanup. It is
// best effort and never fails observably: the presence eviction is
// guarded against superseded registrations and LeaveAll is idempotent.
func (cs *ChatServer) handleDisconnect(c *Client) {
	cs.presence.Unregister(c.id)
	cs.membership.LeaveAll(c.id)

	cs.clientsLock.Lock()
	if _, ok := cs.clients[c.id]; ok {
		delete(cs.clients, c.id)
		cs.clientsLock.Unlock()
		cs.stats.Decr(StatActiveConnections)
	} else {
		cs.clientsLock.Unlock()
	}

	cs.log.Printf("connection %q closed", c.id)
}

// route dispatches one inbound event. Validation happens before any
// state mutation; a malformed event is rejected with no side effects.
func (cs *ChatServer) route(msg *ClientMessage) {
	switch {
	case msg.Register != nil:
		cs.handleRegister(msg)
	case msg.CreateRoom != nil:
		cs.handleCreateRoom(msg)
	case msg.ListRooms != nil:
		cs.handleListRooms(msg)
	case msg.Join != nil:
		cs.handleJoin(msg)
	case msg.Publish != nil:
		cs.handlePublish(msg)
	case msg.Direct != nil:
		cs.handleDirect(msg)
	case msg.History != nil:
		cs.handleHistory(msg)
	default:
		msg.client.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (cs *ChatServer) handleRegister(msg *ClientMessage) {
	c := msg.client
	reg := msg.Register

	if reg.UserId == 0 {
		c.queueMessage(ErrBadRequest(msg.Id, "user_id is required"))
		return
	}

	// the connection was authenticated at upgrade time; a register
	// event may not claim a different identity
	if c.user.Id != 0 && reg.UserId != c.user.Id {
		c.queueMessage(ErrUnauthorized(msg.Id, "identity mismatch"))
		return
	}

	cs.presence.Register(reg.UserId, c.id)
	c.queueMessage(NoErrOK(msg.Id, nil))
}

func (cs *ChatServer) handleCreateRoom(msg *ClientMessage) {
	c := msg.client

	room, err := cs.db.CreateRoom(msg.CreateRoom.Name)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateRoom):
			c.queueMessage(ErrConflict(msg.Id, "room already exists"))
		case errors.Is(err, database.ErrInvalidRoomName),
			errors.Is(err, database.ErrReservedRoomName):
			c.queueMessage(ErrBadRequest(msg.Id, err.Error()))
		default:
			cs.log.Println("CreateRoom:", err)
			c.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	c.queueMessage(NoErrOK(msg.Id, types.Room{Name: room.Name, CreatedAt: room.CreatedAt}))

	// the directory changed: push the fresh room list to everyone
	cs.broadcastRooms()
}

func (cs *ChatServer) handleListRooms(msg *ClientMessage) {
	rooms, err := cs.listRooms()
	if err != nil {
		cs.log.Println("ListRooms:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		Rooms:       rooms,
	})
}

func (cs *ChatServer) handleJoin(msg *ClientMessage) {
	c := msg.client
	join := msg.Join

	if join.Room == "" || join.Username == "" {
		c.queueMessage(ErrBadRequest(msg.Id, "room and username are required"))
		return
	}

	// joins are restricted to rooms known to the directory
	if _, err := cs.db.GetRoom(join.Room); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.queueMessage(ErrNotFound(msg.Id, "room not found"))
		} else {
			cs.log.Println("GetRoom:", err)
			c.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	// hold the room's conversation lock across the history snapshot and
	// the membership insert: a publish landing between the two would
	// reach neither the joiner's history push nor their live fan-out
	cs.convLocks.lock(join.Room)
	defer cs.convLocks.unlock(join.Room)

	// fetch history before mutating membership so a storage failure
	// leaves no partial state behind
	stored, err := cs.db.ListMessages(join.Room)
	if err != nil {
		cs.log.Println("ListMessages:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	cs.membership.Join(c.id, join.Room)

	c.queueMessage(NoErrOK(msg.Id, map[string]any{"room": join.Room}))
	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		History: &HistoryPush{
			ConversationId: join.Room,
			Messages:       toWireMessages(stored),
		},
	})

	notice := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			UserJoined: &UserJoined{Room: join.Room, Username: join.Username},
		},
	}
	for _, connId := range cs.membership.MembersOf(join.Room) {
		if connId == c.id {
			continue
		}
		cs.deliver(connId, notice)
	}
}

func (cs *ChatServer) handlePublish(msg *ClientMessage) {
	c := msg.client
	pub := msg.Publish

	if pub.Room == "" || pub.Username == "" || pub.Body == "" {
		c.queueMessage(ErrBadRequest(msg.Id, "room, username and body are required"))
		return
	}

	if !cs.membership.IsMember(c.id, pub.Room) {
		c.queueMessage(ErrForbidden(msg.Id, "not a member of room"))
		return
	}

	// hold the conversation lock across persist and fan-out so every
	// member observes the store's append order
	cs.convLocks.lock(pub.Room)
	defer cs.convLocks.unlock(pub.Room)

	stored, err := cs.db.CreateMessage(pub.Room, pub.Username, pub.Body)
	if err != nil {
		cs.log.Println("CreateMessage:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	cs.stats.Incr(StatMessagesRouted)
	c.queueMessage(NoErrOK(msg.Id, nil))

	out := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Message: &RoomMessage{
			Room:      pub.Room,
			Username:  stored.Sender,
			Body:      stored.Body,
			CreatedAt: stored.CreatedAt,
		},
	}
	for _, connId := range cs.membership.MembersOf(pub.Room) {
		cs.deliver(connId, out)
	}
	cs.stats.Incr(StatRoomBroadcasts)
}

func (cs *ChatServer) handleDirect(msg *ClientMessage) {
	c := msg.client
	d := msg.Direct

	if d.ToUserId == 0 || d.FromUserId == 0 || d.Body == "" {
		c.queueMessage(ErrBadRequest(msg.Id, "to_user_id, from_user_id and body are required"))
		return
	}

	if c.user.Id != 0 && d.FromUserId != c.user.Id {
		c.queueMessage(ErrUnauthorized(msg.Id, "identity mismatch"))
		return
	}

	conversationId := database.DirectConversationID(d.FromUserId, d.ToUserId)

	cs.convLocks.lock(conversationId)
	defer cs.convLocks.unlock(conversationId)

	stored, err := cs.db.CreateMessage(conversationId, d.FromName, d.Body)
	if err != nil {
		cs.log.Println("CreateMessage:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	cs.stats.Incr(StatMessagesRouted)
	c.queueMessage(NoErrOK(msg.Id, map[string]any{"conversation_id": conversationId}))

	out := DirectMessage{
		ConversationId: conversationId,
		FromUserId:     d.FromUserId,
		ToUserId:       d.ToUserId,
		FromName:       d.FromName,
		Body:           stored.Body,
		CreatedAt:      stored.CreatedAt,
	}

	// self-echo so the sender's UI reflects the send
	echo := out
	echo.Self = true
	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Direct:      &echo,
	})

	// the message is durable either way; an offline recipient simply
	// gets no live delivery
	if connId, ok := cs.presence.Resolve(d.ToUserId); ok {
		delivery := out
		if cs.deliver(connId, &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Direct:      &delivery,
		}) {
			cs.stats.Incr(StatDirectDeliveries)
		}
	}
}

func (cs *ChatServer) handleHistory(msg *ClientMessage) {
	c := msg.client
	conversationId := msg.History.ConversationId

	if conversationId == "" {
		c.queueMessage(ErrBadRequest(msg.Id, "conversation_id is required"))
		return
	}

	if !database.IsDirectConversation(conversationId) {
		c.queueMessage(ErrBadRequest(msg.Id, "conversation_id must name a direct conversation"))
		return
	}

	a, b, err := database.ParseDirectConversationID(conversationId)
	if err != nil {
		c.queueMessage(ErrBadRequest(msg.Id, "malformed conversation_id"))
		return
	}

	userId, ok := cs.presence.UserFor(c.id)
	if !ok {
		c.queueMessage(ErrUnauthorized(msg.Id, "register before fetching direct history"))
		return
	}
	if userId != a && userId != b {
		c.queueMessage(ErrForbidden(msg.Id, "not a participant"))
		return
	}

	stored, err := cs.db.ListMessages(conversationId)
	if err != nil {
		cs.log.Println("ListMessages:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		History: &HistoryPush{
			ConversationId: conversationId,
			Messages:       toWireMessages(stored),
		},
	})
}

// deliver queues a message for a single connection id.
func (cs *ChatServer) deliver(connId string, msg *ServerMessage) bool {
	cs.clientsLock.RLock()
	c, ok := cs.clients[connId]
	cs.clientsLock.RUnlock()

	if !ok {
		return false
	}

	return c.queueMessage(msg)
}

// BroadcastRooms pushes the current room list to every connection.
// Exposed so the HTTP room-create endpoint triggers the same
// directory-changed notification as the websocket event.
func (cs *ChatServer) BroadcastRooms() {
	cs.broadcastRooms()
}

// broadcastRooms pushes the current room list to every connection. The
// list is always re-read from the directory, never served from a cache.
func (cs *ChatServer) broadcastRooms() {
	rooms, err := cs.listRooms()
	if err != nil {
		cs.log.Println("ListRooms:", err)
		return
	}

	out := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Rooms:       rooms,
	}

	cs.clientsLock.RLock()
	defer cs.clientsLock.RUnlock()
	for _, c := range cs.clients {
		c.queueMessage(out)
	}
}

func (cs *ChatServer) listRooms() ([]types.Room, error) {
	stored, err := cs.db.ListRooms()
	if err != nil {
		return nil, err
	}

	rooms := make([]types.Room, len(stored))
	for i, r := range stored {
		rooms[i] = types.Room{Name: r.Name, CreatedAt: r.CreatedAt}
	}
	return rooms, nil
}

func toWireMessages(stored []database.Message) []types.Message {
	messages := make([]types.Message, len(stored))
	for i, m := range stored {
		messages[i] = types.Message{
			ConversationId: m.ConversationId,
			Sender:         m.Sender,
			Body:           m.Body,
			CreatedAt:      m.CreatedAt,
		}
	}
	return messages
}

// Shutdown stops every live client connection.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	for _, c := range cs.clients {
		c.stopClient()
	}

	return ctx.Err()
}
