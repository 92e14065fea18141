package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babelchat/internal/app/message"
	"babelchat/internal/app/user"
	"babelchat/internal/pkg/auth/jwt"
	"babelchat/internal/pkg/textx"
	"babelchat/internal/testutil"
)

type liveFixture struct {
	url   string
	hub   *Hub
	store *testutil.MessageStore
	users map[string]*user.User
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()

	alice := &user.User{ID: "u1", Username: "alice"}
	bob := &user.User{ID: "u2", Username: "bob"}
	users := testutil.NewUserStore(alice, bob)

	hub := startHub(t)
	store := testutil.NewMessageStore()
	engine := NewEngine(hub, store, textx.NewSanitizer(nil))
	auth := NewAuthenticator(users, testSecret)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		u, err := auth.Handshake(r.Context(), conn, jwt.ExtractToken(r), time.Second)
		if err != nil {
			return
		}

		NewClient(conn, u, engine).Serve()
	}))
	t.Cleanup(srv.Close)

	return &liveFixture{
		url:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		hub:   hub,
		store: store,
		users: map[string]*user.User{"alice": alice, "bob": bob},
	}
}

func (f *liveFixture) dial(t *testing.T, name string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(f.url+"?token="+issue(t, f.users[name]), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	first := readFrame(t, conn)
	require.Equal(t, TypeSessionReady, first.Type)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var fr frame
	require.NoError(t, json.Unmarshal(data, &fr))
	return fr
}

// readUntil skips frames until one of type want arrives and returns it.
func readUntil(t *testing.T, conn *websocket.Conn, want EventType) frame {
	t.Helper()

	for {
		fr := readFrame(t, conn)
		if fr.Type == want {
			return fr
		}
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestClient_MessageRoundTrip(t *testing.T) {
	f := newLiveFixture(t)

	a := f.dial(t, "alice")
	b := f.dial(t, "bob")

	sendJSON(t, a, map[string]any{"type": "message:send", "payload": map[string]string{"text": "hello"}})

	for _, conn := range []*websocket.Conn{a, b} {
		got := decode[message.Message](t, readUntil(t, conn, TypeMessageNew))
		assert.Equal(t, "hello", got.Text)
		assert.Equal(t, "u1", got.Author.ID)
	}

	sendJSON(t, a, map[string]any{"type": "message:edit", "payload": map[string]any{"messageId": 1, "text": "hello!"}})
	edited := decode[MessageEdited](t, readUntil(t, b, TypeMessageEdited))
	assert.Equal(t, "hello!", edited.Text)

	sendJSON(t, a, map[string]any{"type": "message:delete", "payload": 1})
	deleted := decode[MessageDeleted](t, readUntil(t, b, TypeMessageDeleted))
	assert.Equal(t, int64(1), deleted.ID)
}

func TestClient_InvalidFrameKeepsConnection(t *testing.T) {
	f := newLiveFixture(t)
	a := f.dial(t, "alice")

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	errEvent := decode[ErrorEvent](t, readUntil(t, a, TypeError))
	assert.NotZero(t, errEvent.Code)

	sendJSON(t, a, map[string]any{"type": "message:send", "payload": map[string]string{"text": "still here"}})
	got := decode[message.Message](t, readUntil(t, a, TypeMessageNew))
	assert.Equal(t, "still here", got.Text)
}

func TestClient_DisconnectAnnouncesOffline(t *testing.T) {
	f := newLiveFixture(t)

	a := f.dial(t, "alice")
	b := f.dial(t, "bob")

	sendJSON(t, a, map[string]any{"type": "typing:start"})
	typing := decode[TypingUpdate](t, readUntil(t, b, TypeTypingUpdate))
	assert.Equal(t, TypingUpdate{"alice"}, typing)

	require.NoError(t, a.Close())

	assert.Empty(t, decode[TypingUpdate](t, readUntil(t, b, TypeTypingUpdate)))
	status := decode[UserStatus](t, readUntil(t, b, TypeUserStatus))
	assert.Equal(t, "u1", status.UserID)
	assert.False(t, status.Online)

	assert.Eventually(t, func() bool {
		s, err := f.hub.Snapshot(context.Background())
		return err == nil && assert.ObjectsAreEqual([]string{"u2"}, s.OnlineUserIDs)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_BlockClosesConnection(t *testing.T) {
	f := newLiveFixture(t)

	a := f.dial(t, "alice")
	f.hub.Block("u1")

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := a.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, CloseForbidden, closeErr.Code)
		break
	}
}
