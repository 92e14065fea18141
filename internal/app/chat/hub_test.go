package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHub_OnlineIffConnectionsHeld(t *testing.T) {
	h := startHub(t)

	a1 := newFakeConn("a1", profile("u1", "alice"))
	a2 := newFakeConn("a2", profile("u1", "alice"))
	b := newFakeConn("b", profile("u2", "bob"))

	h.Register(a1)
	h.Register(a2)
	h.Register(b)
	assert.Equal(t, []string{"u1", "u2"}, settle(t, h).OnlineUserIDs)

	h.Unregister(a1)
	assert.Equal(t, []string{"u1", "u2"}, settle(t, h).OnlineUserIDs, "second connection keeps alice online")

	h.Unregister(a2)
	assert.Equal(t, []string{"u2"}, settle(t, h).OnlineUserIDs)

	h.Unregister(a2)
	h.Unregister(newFakeConn("never", profile("u3", "carol")))
	assert.Equal(t, []string{"u2"}, settle(t, h).OnlineUserIDs)

	offline := b.ofType(TypeUserStatus)
	require.NotEmpty(t, offline)
	status := decode[UserStatus](t, offline[len(offline)-1])
	assert.Equal(t, "u1", status.UserID)
	assert.False(t, status.Online)
	assert.NotNil(t, status.LastSeen)

	offlineCount := 0
	for _, fr := range offline {
		if !decode[UserStatus](t, fr).Online {
			offlineCount++
		}
	}
	assert.Equal(t, 1, offlineCount, "offline is announced once, when the last connection leaves")
}

func TestHub_RegisterAnnouncements(t *testing.T) {
	h := startHub(t)

	observer := newFakeConn("obs", profile("u0", "olga"))
	h.Register(observer)
	settle(t, h)
	observer.reset()

	first := newFakeConn("c1", profile("u1", "alice"))
	h.Register(first)
	settle(t, h)

	assert.Equal(t, []EventType{TypeUserStatus, TypeUserNew}, observer.types())
	assert.Equal(t, TypeSessionReady, first.all()[0].Type, "session:ready is the first frame of a new connection")

	ready := decode[SessionReady](t, first.all()[0])
	assert.Equal(t, "alice", ready.User.DisplayName)
	assert.Equal(t, []string{"u0", "u1"}, ready.OnlineUserIDs)
	assert.NotNil(t, ready.Typing)

	// a second concurrent connection announces nothing
	observer.reset()
	second := newFakeConn("c2", profile("u1", "alice"))
	h.Register(second)
	settle(t, h)
	assert.Empty(t, observer.ofType(TypeUserStatus))
	assert.Empty(t, observer.ofType(TypeUserNew))

	// reconnecting after going offline announces presence but not a new user
	h.Unregister(first)
	h.Unregister(second)
	settle(t, h)
	observer.reset()

	h.Register(newFakeConn("c3", profile("u1", "alice")))
	settle(t, h)
	assert.Len(t, observer.ofType(TypeUserStatus), 1)
	assert.Empty(t, observer.ofType(TypeUserNew))
}

func TestHub_StaleUnregisterIgnored(t *testing.T) {
	h := startHub(t)

	c := newFakeConn("same-id", profile("u1", "alice"))
	h.Register(c)

	impostor := newFakeConn("same-id", profile("u1", "alice"))
	h.Unregister(impostor)
	assert.Equal(t, []string{"u1"}, settle(t, h).OnlineUserIDs)
}

func TestHub_TypingRoundTrip(t *testing.T) {
	h := startHub(t)

	a := newFakeConn("a", profile("u1", "alice"))
	b := newFakeConn("b", profile("u2", "bob"))
	h.Register(a)
	h.Register(b)

	h.StartTyping(b)
	before := settle(t, h).Typing

	h.StartTyping(a)
	assert.Equal(t, TypingUpdate{"bob", "alice"}, settle(t, h).Typing)

	h.StopTyping(a)
	assert.Equal(t, before, settle(t, h).Typing)

	updates := a.ofType(TypeTypingUpdate)
	require.Len(t, updates, 3)
	assert.Equal(t, TypingUpdate{"bob", "alice"}, decode[TypingUpdate](t, updates[1]))
}

func TestHub_TypingKeepsInsertionOrder(t *testing.T) {
	h := startHub(t)

	a := newFakeConn("a", profile("u1", "alice"))
	b := newFakeConn("b", profile("u2", "bob"))
	h.Register(a)
	h.Register(b)

	h.StartTyping(a)
	h.StartTyping(b)
	h.StartTyping(a)
	assert.Equal(t, TypingUpdate{"alice", "bob"}, settle(t, h).Typing)
}

func TestHub_TypingClearedOnDisconnect(t *testing.T) {
	h := startHub(t)

	a := newFakeConn("a", profile("u1", "alice"))
	b := newFakeConn("b", profile("u2", "bob"))
	h.Register(a)
	h.Register(b)
	h.StartTyping(a)
	settle(t, h)
	b.reset()

	h.Unregister(a)
	assert.Empty(t, settle(t, h).Typing)

	assert.Equal(t, []EventType{TypeTypingUpdate, TypeUserStatus}, b.types())
	assert.Empty(t, decode[TypingUpdate](t, b.all()[0]))
}

func TestHub_TypingFromUnregisteredConnIgnored(t *testing.T) {
	h := startHub(t)

	h.StartTyping(newFakeConn("ghost", profile("u9", "ghost")))
	assert.Empty(t, settle(t, h).Typing)
}

func TestHub_TypingTTL(t *testing.T) {
	h := startHub(t, WithTypingTTL(40*time.Millisecond))

	a := newFakeConn("a", profile("u1", "alice"))
	h.Register(a)
	h.StartTyping(a)
	require.Equal(t, TypingUpdate{"alice"}, settle(t, h).Typing)

	assert.Eventually(t, func() bool {
		s, err := h.Snapshot(context.Background())
		return err == nil && len(s.Typing) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHub_TypingWithoutTTLNeverExpires(t *testing.T) {
	h := startHub(t)

	a := newFakeConn("a", profile("u1", "alice"))
	h.Register(a)
	h.StartTyping(a)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, TypingUpdate{"alice"}, settle(t, h).Typing)
}

func TestHub_Block(t *testing.T) {
	h := startHub(t)

	a1 := newFakeConn("a1", profile("u1", "alice"))
	a2 := newFakeConn("a2", profile("u1", "alice"))
	b := newFakeConn("b", profile("u2", "bob"))
	h.Register(a1)
	h.Register(a2)
	h.Register(b)
	settle(t, h)

	h.Block("u1")
	assert.Equal(t, []string{"u2"}, settle(t, h).OnlineUserIDs)
	assert.Equal(t, CloseForbidden, a1.closedWith())
	assert.Equal(t, CloseForbidden, a2.closedWith())

	again := newFakeConn("a3", profile("u1", "alice"))
	h.Register(again)
	assert.Equal(t, []string{"u2"}, settle(t, h).OnlineUserIDs)
	assert.Equal(t, CloseForbidden, again.closedWith())
	assert.Empty(t, again.all(), "a rejected connection receives no session")

	h.Unblock("u1")
	h.Register(newFakeConn("a4", profile("u1", "alice")))
	assert.Equal(t, []string{"u1", "u2"}, settle(t, h).OnlineUserIDs)
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	h := startHub(t)

	fast := newFakeConn("fast", profile("u1", "alice"))
	slow := newFakeConn("slow", profile("u2", "bob"))
	h.Register(fast)
	h.Register(slow)
	settle(t, h)

	slow.mu.Lock()
	slow.reject = true
	slow.mu.Unlock()

	h.Publish(MessageDeleted{ID: 1})
	assert.Equal(t, []string{"u1"}, settle(t, h).OnlineUserIDs)
	assert.Equal(t, ClosePolicyViolation, slow.closedWith())
	assert.Len(t, fast.ofType(TypeMessageDeleted), 1)
}

func TestHub_SendToOnlyTarget(t *testing.T) {
	h := startHub(t)

	a := newFakeConn("a", profile("u1", "alice"))
	b := newFakeConn("b", profile("u2", "bob"))
	h.Register(a)
	h.Register(b)
	settle(t, h)
	a.reset()
	b.reset()

	h.SendTo(a, ErrorEvent{Code: 2201, Message: "empty"})
	settle(t, h)

	assert.Len(t, a.ofType(TypeError), 1)
	assert.Empty(t, b.all())
}

type lastSeenMock struct {
	mock.Mock
}

func (m *lastSeenMock) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func TestHub_RecordsLastSeen(t *testing.T) {
	recorder := &lastSeenMock{}
	called := make(chan struct{})
	recorder.On("TouchLastSeen", mock.Anything, "u1", mock.AnythingOfType("time.Time")).
		Return(errors.New("db down")).
		Run(func(mock.Arguments) { close(called) }).
		Once()

	h := startHub(t, WithLastSeenRecorder(recorder))

	a := newFakeConn("a", profile("u1", "alice"))
	h.Register(a)
	h.Unregister(a)
	settle(t, h)

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("last-seen was not recorded")
	}
	recorder.AssertExpectations(t)
}

func TestHub_StopWithoutRun(t *testing.T) {
	h := NewHub()

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		h.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a hub that never ran")
	}

	ran := make(chan struct{})
	go func() {
		h.Run()
		close(ran)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Run after Stop did not return")
	}

	assert.False(t, h.Register(newFakeConn("a", profile("u1", "alice"))))
}

func TestHub_StopClosesConnections(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := newFakeConn("a", profile("u1", "alice"))
	h.Register(a)
	settle(t, h)

	h.Stop()
	assert.Equal(t, CloseGoingAway, a.closedWith())

	assert.False(t, h.Register(newFakeConn("b", profile("u2", "bob"))))
	_, err := h.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrHubStopped)
}
