package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"babelchat/internal/app/user"
)

// DBTX is the subset of pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, username, password_hash, avatar, preferred_language, is_admin, is_blocked, last_seen, created_at`

// UserRepo implements user.Store.
type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

var _ user.Store = (*UserRepo)(nil)

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u  user.User
		id uuid.UUID
	)

	err := row.Scan(&id, &u.Username, &u.PasswordHash, &u.Avatar, &u.PreferredLanguage,
		&u.IsAdmin, &u.IsBlocked, &u.LastSeen, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	u.ID = id.String()
	return &u, nil
}

func (r *UserRepo) one(ctx context.Context, query string, args ...any) (*user.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if IsNoRows(err) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.PreferredLanguage == "" {
		u.PreferredLanguage = user.DefaultLanguage
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, username, password_hash, avatar, preferred_language, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		u.ID, u.Username, u.PasswordHash, u.Avatar, u.PreferredLanguage, u.IsAdmin,
	).Scan(&u.CreatedAt)

	if IsUniqueViolation(err) {
		return user.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user %q: %w", u.Username, err)
	}
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*user.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid)
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.one(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username)
}

func (r *UserRepo) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

func (r *UserRepo) UpdatePreferredLanguage(ctx context.Context, id, lang string) (*user.User, error) {
	return r.one(ctx, `
		UPDATE users SET preferred_language = $2 WHERE id = $1
		RETURNING `+userColumns, id, lang)
}

func (r *UserRepo) UpdateAvatar(ctx context.Context, id, key string) (string, error) {
	var previous string
	err := r.db.QueryRow(ctx, `
		UPDATE users u SET avatar = $2
		FROM (SELECT id, avatar FROM users WHERE id = $1 FOR UPDATE) old
		WHERE u.id = old.id
		RETURNING old.avatar`, id, key,
	).Scan(&previous)

	if IsNoRows(err) {
		return "", user.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update avatar: %w", err)
	}
	return previous, nil
}

func (r *UserRepo) SetBlocked(ctx context.Context, id string, blocked bool) (*user.User, error) {
	return r.one(ctx, `
		UPDATE users SET is_blocked = $2 WHERE id = $1
		RETURNING `+userColumns, id, blocked)
}

func (r *UserRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET last_seen = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
