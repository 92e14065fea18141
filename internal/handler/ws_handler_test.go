package handler

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babelchat/internal/app/chat"
	"babelchat/internal/app/user"
)

func TestWebSocket(t *testing.T) {
	alice := &user.User{ID: "u1", Username: "alice"}
	f := newFixture(t, []*user.User{alice})
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"

	t.Run("query token activates the session", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+f.token(alice), nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var ev struct {
			Type    chat.EventType    `json:"type"`
			Payload chat.SessionReady `json:"payload"`
		}
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &ev))

		assert.Equal(t, chat.TypeSessionReady, ev.Type)
		assert.Equal(t, "u1", ev.Payload.User.ID)
		assert.Contains(t, ev.Payload.OnlineUserIDs, "u1")
	})

	t.Run("bad token is closed with 4401", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=garbage", nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err = conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, chat.CloseUnauthenticated), "got %v", err)
	})
}
