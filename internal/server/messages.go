package server

import (
	"net/http"
	"time"

	"github.com/chatrelay/chatrelay/internal/types"
)

type BaseMessage struct {
	// Id correlates a request with its response. Zero for
	// fire-and-forget events and unsolicited pushes.
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the inbound event envelope. Exactly one of the
// event fields is expected to be set.
type ClientMessage struct {
	BaseMessage
	Register   *Register   `json:"register,omitempty"`
	CreateRoom *CreateRoom `json:"create_room,omitempty"`
	ListRooms  *ListRooms  `json:"list_rooms,omitempty"`
	Join       *Join       `json:"join,omitempty"`
	Publish    *Publish    `json:"publish,omitempty"`
	Direct     *Direct     `json:"direct,omitempty"`
	History    *History    `json:"history,omitempty"`
	client     *Client
}

type Register struct {
	UserId int    `json:"user_id"`
	Name   string `json:"name"`
}

type CreateRoom struct {
	Name string `json:"name"`
}

type ListRooms struct{}

type Join struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

type Publish struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Body     string `json:"body"`
}

type Direct struct {
	ToUserId   int    `json:"to_user_id"`
	FromUserId int    `json:"from_user_id"`
	FromName   string `json:"from_name"`
	Body       string `json:"body"`
}

type History struct {
	ConversationId string `json:"conversation_id"`
}

// ServerMessage is the outbound envelope: either a correlated response
// or an unsolicited push (room message, direct message, history,
// room-list update, notification).
type ServerMessage struct {
	BaseMessage
	Response     *Response      `json:"response,omitempty"`
	Message      *RoomMessage   `json:"message,omitempty"`
	Direct       *DirectMessage `json:"direct,omitempty"`
	History      *HistoryPush   `json:"history,omitempty"`
	Rooms        []types.Room   `json:"rooms,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type RoomMessage struct {
	Room      string    `json:"room"`
	Username  string    `json:"username"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type DirectMessage struct {
	ConversationId string    `json:"conversation_id"`
	FromUserId     int       `json:"from_user_id"`
	ToUserId       int       `json:"to_user_id"`
	FromName       string    `json:"from_name"`
	Body           string    `json:"body"`
	Self           bool      `json:"self"`
	CreatedAt      time.Time `json:"created_at"`
}

type HistoryPush struct {
	ConversationId string          `json:"conversation_id"`
	Messages       []types.Message `json:"messages"`
}

type Notification struct {
	UserJoined *UserJoined `json:"user_joined,omitempty"`
}

type UserJoined struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func errResponse(id, code int, msg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        msg,
		},
	}
}

func ErrBadRequest(id int, msg string) *ServerMessage {
	return errResponse(id, http.StatusBadRequest, msg)
}

func ErrUnauthorized(id int, msg string) *ServerMessage {
	return errResponse(id, http.StatusUnauthorized, msg)
}

func ErrForbidden(id int, msg string) *ServerMessage {
	return errResponse(id, http.StatusForbidden, msg)
}

func ErrNotFound(id int, msg string) *ServerMessage {
	return errResponse(id, http.StatusNotFound, msg)
}

func ErrConflict(id int, msg string) *ServerMessage {
	return errResponse(id, http.StatusConflict, msg)
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrInvalidMessage(id int) *ServerMessage {
	return errResponse(id, http.StatusBadRequest, "invalid message format")
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
