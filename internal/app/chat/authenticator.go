package chat

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"babelchat/internal/app/user"
	"babelchat/internal/pkg/auth/jwt"
	"babelchat/internal/pkg/errs"
	"babelchat/internal/pkg/logx"
)

// Authenticator resolves bearer credentials to accounts.
// It is shared by the HTTP middleware and the websocket handshake.
type Authenticator struct {
	users  user.Store
	secret string
}

func NewAuthenticator(users user.Store, secret string) *Authenticator {
	return &Authenticator{users: users, secret: secret}
}

// Authenticate verifies token and loads its account. It returns ErrUnauthenticated for a missing,
// invalid or expired token or an unknown account, and ErrAccountBlocked for a blocked one.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*user.User, error) {
	payload, err := jwt.ParseToken(token, a.secret)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnauthenticated)
	}

	u, err := a.users.FindByID(ctx, payload.ID)
	if errors.Is(err, user.ErrNotFound) {
		logx.Warn("Token references unknown account", "user_id", payload.ID)
		return nil, errs.NewError(errs.ErrUnauthenticated)
	}
	if err != nil {
		return nil, errs.NewError(errs.ErrPersistence, err)
	}

	if u.IsBlocked {
		return nil, errs.NewError(errs.ErrAccountBlocked)
	}

	return u, nil
}

// Handshake authenticates a freshly upgraded connection. When token is empty the client must send
// an auth frame within timeout. On failure the connection is closed with CloseUnauthenticated or
// CloseForbidden and the error is returned; no registry state has been touched.
func (a *Authenticator) Handshake(ctx context.Context, conn *websocket.Conn, token string, timeout time.Duration) (*user.User, error) {
	if token == "" {
		var err error
		token, err = readAuthFrame(conn, timeout)
		if err != nil {
			rejectHandshake(conn, errs.NewError(errs.ErrUnauthenticated))
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := a.Authenticate(ctx, token)
	if err != nil {
		rejectHandshake(conn, errs.From(err))
		return nil, err
	}

	return u, nil
}

func readAuthFrame(conn *websocket.Conn, timeout time.Duration) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	defer conn.SetReadDeadline(time.Time{})

	_, frame, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}

	ev, err := DecodeInbound(frame)
	if err != nil {
		return "", err
	}

	auth, ok := ev.(AuthEvent)
	if !ok || auth.Token == "" {
		return "", jwt.ErrMissingToken
	}

	return auth.Token, nil
}

// rejectHandshake writes a close frame whose code reflects the failure.
func rejectHandshake(conn *websocket.Conn, customErr *errs.CustomError) {
	code := CloseUnauthenticated
	if customErr.Code == errs.ErrAccountBlocked || customErr.Code == errs.ErrForbidden {
		code = CloseForbidden
	}
	if customErr.Code == errs.ErrPersistence {
		code = CloseTryAgainLater
	}

	deadline := time.Now().Add(writeWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, customErr.Message), deadline)
	_ = conn.Close()
}
