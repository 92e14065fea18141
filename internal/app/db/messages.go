package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"babelchat/internal/app/message"
)

const messageColumns = `id, author_id::text, author_name, author_avatar, text, is_edited, is_deleted, created_at, updated_at`

// MessageRepo implements message.Store.
type MessageRepo struct {
	db DBTX
}

func NewMessageRepo(db DBTX) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ message.Store = (*MessageRepo)(nil)

func scanMessage(row pgx.Row) (*message.Message, error) {
	var m message.Message
	err := row.Scan(&m.ID, &m.Author.ID, &m.Author.DisplayName, &m.Author.Avatar,
		&m.Text, &m.IsEdited, &m.IsDeleted, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) Create(ctx context.Context, author message.Author, text string) (*message.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `
		INSERT INTO messages (author_id, author_name, author_avatar, text)
		VALUES ($1, $2, $3, $4)
		RETURNING `+messageColumns,
		author.ID, author.DisplayName, author.Avatar, text))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) FindByID(ctx context.Context, id int64) (*message.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, message.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find message %d: %w", id, err)
	}
	return m, nil
}

func (r *MessageRepo) Save(ctx context.Context, m *message.Message) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET text = $2, is_edited = $3, is_deleted = $4, updated_at = $5
		WHERE id = $1`,
		m.ID, m.Text, m.IsEdited, m.IsDeleted, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save message %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return message.ErrNotFound
	}
	return nil
}

func (r *MessageRepo) ListPage(ctx context.Context, q message.ListQuery) ([]message.Message, error) {
	query, args := buildListQuery(q)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]message.Message, 0, q.Limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, *m)
	}

	return out, rows.Err()
}

// buildListQuery renders the newest-first page query for q.
func buildListQuery(q message.ListQuery) (string, []any) {
	var (
		where []string
		args  []any
	)

	if !q.IncludeDeleted {
		where = append(where, "NOT is_deleted")
	}
	if q.Before > 0 {
		args = append(args, q.Before)
		where = append(where, fmt.Sprintf("id < $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + messageColumns + ` FROM messages`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	args = append(args, q.Limit)
	fmt.Fprintf(&b, " ORDER BY id DESC LIMIT $%d", len(args))

	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	return b.String(), args
}
