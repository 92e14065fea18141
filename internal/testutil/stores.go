/*
Package testutil holds in-memory collaborators and logging helpers shared by package tests.
*/
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"babelchat/internal/app/message"
	"babelchat/internal/app/user"
)

// MessageStore is an in-memory message.Store. Set Err to make every call fail.
type MessageStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*message.Message
	Err    error
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

func (s *MessageStore) Create(_ context.Context, author message.Author, text string) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	s.nextID++
	now := time.Now()
	m := &message.Message{ID: s.nextID, Author: author, Text: text, CreatedAt: now, UpdatedAt: now}
	s.rows = append(s.rows, m)

	cp := *m
	return &cp, nil
}

func (s *MessageStore) FindByID(_ context.Context, id int64) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	for _, m := range s.rows {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, message.ErrNotFound
}

func (s *MessageStore) Save(_ context.Context, m *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	for i, row := range s.rows {
		if row.ID == m.ID {
			cp := *m
			s.rows[i] = &cp
			return nil
		}
	}
	return message.ErrNotFound
}

func (s *MessageStore) ListPage(_ context.Context, q message.ListQuery) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]message.Message, 0, q.Limit)
	skipped := 0
	for i := len(s.rows) - 1; i >= 0 && len(out) < q.Limit; i-- {
		m := s.rows[i]
		if m.IsDeleted && !q.IncludeDeleted {
			continue
		}
		if q.Before != 0 && m.ID >= q.Before {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

// Get returns the stored row without copying semantics of FindByID errors.
func (s *MessageStore) Get(id int64) (message.Message, bool) {
	m, err := s.FindByID(context.Background(), id)
	if err != nil {
		return message.Message{}, false
	}
	return *m, true
}

// UserStore is an in-memory user.Store.
type UserStore struct {
	mu    sync.Mutex
	users map[string]*user.User
	Err   error
}

func NewUserStore(seed ...*user.User) *UserStore {
	s := &UserStore{users: make(map[string]*user.User)}
	for _, u := range seed {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now()
		}
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *UserStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return user.ErrUsernameTaken
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.PreferredLanguage == "" {
		u.PreferredLanguage = user.DefaultLanguage
	}
	u.CreatedAt = time.Now()

	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *UserStore) List(_ context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *UserStore) UpdatePreferredLanguage(_ context.Context, id, lang string) (*user.User, error) {
	return s.mutate(id, func(u *user.User) { u.PreferredLanguage = lang })
}

func (s *UserStore) UpdateAvatar(_ context.Context, id, key string) (string, error) {
	var previous string
	_, err := s.mutate(id, func(u *user.User) {
		previous = u.Avatar
		u.Avatar = key
	})
	return previous, err
}

func (s *UserStore) SetBlocked(_ context.Context, id string, blocked bool) (*user.User, error) {
	return s.mutate(id, func(u *user.User) { u.IsBlocked = blocked })
}

func (s *UserStore) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	_, err := s.mutate(id, func(u *user.User) { u.LastSeen = &at })
	return err
}

func (s *UserStore) mutate(id string, fn func(u *user.User)) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	fn(u)

	cp := *u
	return &cp, nil
}
