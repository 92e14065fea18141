/*
Package message defines the chat message record and the store contract the realtime engine depends on.
*/
package message

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo/mutable"
)

const (
	// DeletedPlaceholder replaces the text of a soft-deleted message.
	DeletedPlaceholder = "This message was deleted"

	// PageSize is the number of messages per history page.
	PageSize = 50
)

// ErrNotFound is returned by Store.FindByID for an unknown message id.
var ErrNotFound = errors.New("message not found")

// Author is the author snapshot denormalized into each message at creation time.
type Author struct {
	ID          string `json:"authorId"`
	DisplayName string `json:"authorName"`
	Avatar      string `json:"authorAvatar,omitempty"`
}

// Message is a persisted chat message. Messages are never physically removed.
type Message struct {
	ID int64 `json:"id"`
	Author
	Text      string    `json:"text"`
	IsEdited  bool      `json:"isEdited"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Edit replaces the text and marks the message edited.
func (m *Message) Edit(text string, now time.Time) {
	m.Text = text
	m.IsEdited = true
	m.UpdatedAt = now
}

// SoftDelete marks the message deleted and irreversibly replaces its text.
func (m *Message) SoftDelete(now time.Time) {
	m.IsDeleted = true
	m.Text = DeletedPlaceholder
	m.UpdatedAt = now
}

// PageQuery selects one history page. When Before is non-zero it takes precedence over Page.
type PageQuery struct {
	// Page is 1-based.
	Page   int
	Before int64
	// IncludeDeleted returns soft-deleted messages with their placeholder text.
	IncludeDeleted bool
}

// ListQuery is the store-level form of a page request.
type ListQuery struct {
	Before         int64
	Offset         int
	Limit          int
	IncludeDeleted bool
}

// Store is the durable, creation-ordered message store.
// A successful Save must be visible to the next FindByID.
type Store interface {
	Create(ctx context.Context, author Author, text string) (*Message, error)
	FindByID(ctx context.Context, id int64) (*Message, error)
	Save(ctx context.Context, m *Message) error
	// ListPage returns up to q.Limit messages newest-first.
	ListPage(ctx context.Context, q ListQuery) ([]Message, error)
}

// Page is a chronologically ordered slice of history.
type Page struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
}

// FetchPage reads one page of PageSize messages from store and reverses it into chronological order.
// It asks for one extra row to learn whether older messages remain.
func FetchPage(ctx context.Context, store Store, q PageQuery) (Page, error) {
	lq := ListQuery{
		Before:         q.Before,
		Limit:          PageSize + 1,
		IncludeDeleted: q.IncludeDeleted,
	}
	if q.Before == 0 && q.Page > 1 {
		lq.Offset = (q.Page - 1) * PageSize
	}

	rows, err := store.ListPage(ctx, lq)
	if err != nil {
		return Page{}, err
	}

	hasMore := len(rows) > PageSize
	if hasMore {
		rows = rows[:PageSize]
	}

	if rows == nil {
		rows = []Message{}
	}
	mutable.Reverse(rows)

	return Page{Messages: rows, HasMore: hasMore}, nil
}
