package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"babelchat/internal/app/user"
)

type frame struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// fakeConn records every frame the Hub delivers.
type fakeConn struct {
	id      string
	profile user.Profile

	mu        sync.Mutex
	frames    []frame
	reject    bool
	closeCode int
}

func newFakeConn(id string, p user.Profile) *fakeConn {
	return &fakeConn{id: id, profile: p}
}

func (f *fakeConn) ID() string            { return f.id }
func (f *fakeConn) Profile() user.Profile { return f.profile }

func (f *fakeConn) Enqueue(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reject || f.closeCode != 0 {
		return false
	}

	var fr frame
	if err := json.Unmarshal(b, &fr); err != nil {
		panic(err)
	}
	f.frames = append(f.frames, fr)
	return true
}

func (f *fakeConn) Close(code int, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeCode == 0 {
		f.closeCode = code
	}
}

func (f *fakeConn) closedWith() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode
}

func (f *fakeConn) all() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame(nil), f.frames...)
}

func (f *fakeConn) ofType(t EventType) []frame {
	var out []frame
	for _, fr := range f.all() {
		if fr.Type == t {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeConn) types() []EventType {
	var out []EventType
	for _, fr := range f.all() {
		out = append(out, fr.Type)
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func decode[T any](t *testing.T, fr frame) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(fr.Payload, &v))
	return v
}

func profile(id, name string) user.Profile {
	return user.Profile{ID: id, DisplayName: name, PreferredLanguage: "en"}
}

func startHub(t *testing.T, opts ...HubOption) *Hub {
	t.Helper()

	h := NewHub(opts...)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

// settle waits until every command submitted so far by the test goroutine has been applied.
func settle(t *testing.T, h *Hub) Snapshot {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := h.Snapshot(ctx)
	require.NoError(t, err)
	return s
}
