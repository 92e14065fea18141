package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"babelchat/internal/app/chat"
	"babelchat/internal/app/translate"
	"babelchat/internal/app/user"
	"babelchat/internal/configs"
	"babelchat/internal/pkg/auth/jwt"
	"babelchat/internal/pkg/textx"
	"babelchat/internal/testutil"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	t        *testing.T
	srv      *httptest.Server
	deps     *AppDeps
	hub      *chat.Hub
	users    *testutil.UserStore
	messages *testutil.MessageStore
}

type fixtureOption func(*AppDeps)

func withStorage(s *fakeStorage) fixtureOption {
	return func(d *AppDeps) { d.Storage = s }
}

func withTranslator(tr translate.Translator) fixtureOption {
	return func(d *AppDeps) { d.Translator = tr }
}

func newFixture(t *testing.T, seed []*user.User, opts ...fixtureOption) *fixture {
	t.Helper()

	hub := chat.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	users := testutil.NewUserStore(seed...)
	messages := testutil.NewMessageStore()

	deps := &AppDeps{
		Config: &configs.AppConfig{
			Environment:         "development",
			JWTSecret:           testSecret,
			TokenTTL:            time.Hour,
			HideDeletedMessages: true,
			HandshakeTimeout:    time.Second,
		},
		Users:  users,
		Engine: chat.NewEngine(hub, messages, textx.NewSanitizer(nil)),
		Auth:   chat.NewAuthenticator(users, testSecret),
	}
	for _, opt := range opts {
		opt(deps)
	}

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)

	return &fixture{t: t, srv: srv, deps: deps, hub: hub, users: users, messages: messages}
}

func (f *fixture) token(u *user.User) string {
	f.t.Helper()

	tok, err := jwt.GenerateToken(&jwt.Payload{ID: u.ID, Username: u.Username}, testSecret, time.Hour)
	require.NoError(f.t, err)
	return tok
}

// do sends a request and decodes the response envelope. body may be nil, a []byte or any JSON value.
func (f *fixture) do(method, path, token string, body any) (int, envelope) {
	f.t.Helper()

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(f.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return f.send(req)
}

func (f *fixture) send(req *http.Request) (int, envelope) {
	f.t.Helper()

	res, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(f.t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func data[T any](t *testing.T, env envelope) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func mustHash(t *testing.T, password string) string {
	t.Helper()

	hash, err := user.HashPassword(password)
	require.NoError(t, err)
	return hash
}

// fakeConn is a registry entry with no socket behind it.
type fakeConn struct {
	id      string
	profile user.Profile

	mu        sync.Mutex
	closeCode int
}

func (c *fakeConn) ID() string            { return c.id }
func (c *fakeConn) Profile() user.Profile { return c.profile }
func (c *fakeConn) Enqueue(_ []byte) bool { return true }

func (c *fakeConn) Close(code int, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeCode == 0 {
		c.closeCode = code
	}
}

func (c *fakeConn) closedWith() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

// fakeStorage keeps objects in memory.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]string)}
}

func (s *fakeStorage) Upload(_ context.Context, key, contentType string, body io.Reader) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = contentType
	return nil
}

func (s *fakeStorage) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.example.com/" + key + "?sig=1", nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStorage) deletedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

type mockTranslator struct {
	mock.Mock
}

func (m *mockTranslator) Translate(ctx context.Context, text, target string) (*translate.Result, error) {
	args := m.Called(ctx, text, target)
	res, _ := args.Get(0).(*translate.Result)
	return res, args.Error(1)
}
