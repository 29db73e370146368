package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseHelpers(t *testing.T) {
	tt := []struct {
		name     string
		msg      *ServerMessage
		wantCode int
		wantErr  string
	}{
		{"ok", NoErrOK(1, nil), http.StatusOK, ""},
		{"bad request", ErrBadRequest(1, "room is required"), http.StatusBadRequest, "room is required"},
		{"unauthorized", ErrUnauthorized(1, "identity mismatch"), http.StatusUnauthorized, "identity mismatch"},
		{"forbidden", ErrForbidden(1, "not a member of room"), http.StatusForbidden, "not a member of room"},
		{"not found", ErrNotFound(1, "room not found"), http.StatusNotFound, "room not found"},
		{"conflict", ErrConflict(1, "room already exists"), http.StatusConflict, "room already exists"},
		{"internal", ErrInternalError(1), http.StatusInternalServerError, "internal server error"},
		{"invalid", ErrInvalidMessage(1), http.StatusBadRequest, "invalid message format"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.msg.Response)
			assert.Equal(t, tc.wantCode, tc.msg.Response.ResponseCode)
			assert.Equal(t, tc.wantErr, tc.msg.Response.Error)
			assert.Equal(t, 1, tc.msg.Id, "expected correlation id carried through")
			assert.False(t, tc.msg.Timestamp.IsZero())
		})
	}
}

func TestClientMessageDecoding(t *testing.T) {
	raw := []byte(`{"id":12,"publish":{"room":"general","username":"alice","body":"hi"}}`)

	var msg ClientMessage
	require.NoError(t, json.Unmarshal(raw, &msg))

	assert.Equal(t, 12, msg.Id)
	require.NotNil(t, msg.Publish)
	assert.Equal(t, "general", msg.Publish.Room)
	assert.Equal(t, "alice", msg.Publish.Username)
	assert.Equal(t, "hi", msg.Publish.Body)
	assert.Nil(t, msg.Register)
	assert.Nil(t, msg.Direct)
}

func TestServerMessageEncoding(t *testing.T) {
	t.Run("omits unset event fields", func(t *testing.T) {
		out, err := json.Marshal(ErrForbidden(3, "not a member of room"))
		require.NoError(t, err)

		assert.Contains(t, string(out), `"response"`)
		assert.NotContains(t, string(out), `"message"`)
		assert.NotContains(t, string(out), `"direct"`)
		assert.NotContains(t, string(out), `"history"`)
		assert.NotContains(t, string(out), `"notification"`)
	})

	t.Run("direct message carries the self flag", func(t *testing.T) {
		out, err := json.Marshal(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Direct: &DirectMessage{
				ConversationId: "dm:1_2",
				FromUserId:     1,
				ToUserId:       2,
				FromName:       "alice",
				Body:           "psst",
				Self:           true,
			},
		})
		require.NoError(t, err)

		assert.Contains(t, string(out), `"self":true`)
		assert.Contains(t, string(out), `"conversation_id":"dm:1_2"`)
	})
}

func TestNow(t *testing.T) {
	now := Now()

	assert.Equal(t, time.UTC, now.Location())
	assert.Equal(t, now, now.Round(time.Millisecond), "expected millisecond precision")
}
