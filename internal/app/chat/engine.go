package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"babelchat/internal/app/message"
	"babelchat/internal/app/user"
	"babelchat/internal/pkg/errs"
	"babelchat/internal/pkg/logx"
	"babelchat/internal/pkg/textx"
)

// Engine applies message mutations and publishes their results through the Hub.
// The realtime path and the HTTP path both go through it, so authorization,
// sanitization and broadcasts are identical for the two.
type Engine struct {
	hub       *Hub
	messages  message.Store
	sanitizer *textx.Sanitizer

	// sendMu keeps message:new broadcasts in creation order.
	sendMu sync.Mutex
	locks  *keyedMutex

	now    func() time.Time
	logger zerolog.Logger
}

func NewEngine(hub *Hub, messages message.Store, sanitizer *textx.Sanitizer) *Engine {
	return &Engine{
		hub:       hub,
		messages:  messages,
		sanitizer: sanitizer,
		locks:     newKeyedMutex(),
		now:       time.Now,
		logger:    logx.Component("Engine"),
	}
}

// Hub returns the Hub the Engine publishes to.
func (e *Engine) Hub() *Hub {
	return e.hub
}

// Send creates a message authored by author and broadcasts it, followed by the author's
// removal from the typing set.
func (e *Engine) Send(ctx context.Context, author user.Profile, text string) (*message.Message, error) {
	clean, err := e.clean(text)
	if err != nil {
		return nil, err
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	msg, err := e.messages.Create(ctx, message.Author{
		ID:          author.ID,
		DisplayName: author.DisplayName,
		Avatar:      author.Avatar,
	}, clean)
	if err != nil {
		return nil, e.persistenceError(err, "create", 0)
	}

	e.hub.PublishAndClearTyping(MessageNew{Message: *msg}, author.ID)

	return msg, nil
}

// Edit replaces the text of a message authored by actor.
func (e *Engine) Edit(ctx context.Context, actor user.Profile, id int64, text string) (*message.Message, error) {
	clean, err := e.clean(text)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	msg, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if msg.IsDeleted {
		return nil, errs.NewError(errs.ErrMessageNotFound)
	}

	if msg.Author.ID != actor.ID {
		e.logger.Warn().Str("user_id", actor.ID).Int64("message_id", id).Msg("Rejected edit of another user's message.")
		return nil, errs.NewError(errs.ErrForbidden)
	}

	msg.Edit(clean, e.now())
	if err := e.messages.Save(ctx, msg); err != nil {
		return nil, e.persistenceError(err, "edit", id)
	}

	e.hub.Publish(MessageEdited{ID: msg.ID, Text: msg.Text, IsEdited: true})

	return msg, nil
}

// Delete soft-deletes a message authored by actor, or any message when actor is an admin.
// Deleting an already deleted message is a no-op.
func (e *Engine) Delete(ctx context.Context, actor user.Profile, id int64) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	msg, err := e.load(ctx, id)
	if err != nil {
		return err
	}

	if msg.IsDeleted {
		return nil
	}

	if msg.Author.ID != actor.ID && !actor.IsAdmin {
		e.logger.Warn().Str("user_id", actor.ID).Int64("message_id", id).Msg("Rejected delete of another user's message.")
		return errs.NewError(errs.ErrForbidden)
	}

	msg.SoftDelete(e.now())
	if err := e.messages.Save(ctx, msg); err != nil {
		return e.persistenceError(err, "delete", id)
	}

	e.hub.Publish(MessageDeleted{ID: msg.ID})

	return nil
}

// History returns one chronologically ordered page of messages.
func (e *Engine) History(ctx context.Context, q message.PageQuery) (message.Page, error) {
	page, err := message.FetchPage(ctx, e.messages, q)
	if err != nil {
		return message.Page{}, e.persistenceError(err, "history", 0)
	}
	return page, nil
}

// Handle runs one inbound event from c to completion. Failures other than NotFound
// are reported to c alone; nothing is broadcast for a failed event.
func (e *Engine) Handle(ctx context.Context, c Conn, ev InboundEvent) {
	profile := c.Profile()

	var err error
	switch ev := ev.(type) {
	case SendEvent:
		_, err = e.Send(ctx, profile, ev.Text)
	case EditEvent:
		_, err = e.Edit(ctx, profile, int64(ev.MessageID), ev.Text)
	case DeleteEvent:
		err = e.Delete(ctx, profile, int64(ev.MessageID))
	case TypingStartEvent:
		e.hub.StartTyping(c)
	case TypingStopEvent:
		e.hub.StopTyping(c)
	case AuthEvent:
		err = errs.NewError(errs.ErrInvalidEvent)
	default:
		err = errs.NewError(errs.ErrInvalidEvent)
	}

	if err != nil {
		e.report(c, err)
	}
}

func (e *Engine) report(c Conn, err error) {
	customErr := errs.From(err)
	if customErr.Code == errs.ErrMessageNotFound {
		return
	}

	e.hub.SendTo(c, ErrorEvent{Code: customErr.Code, Message: customErr.Message})
}

func (e *Engine) clean(text string) (string, error) {
	clean, err := e.sanitizer.Clean(text)
	switch {
	case errors.Is(err, textx.ErrTooLong):
		return "", errs.NewError(errs.ErrMessageContentTooLong, textx.MaxMessageRunes)
	case err != nil:
		return "", errs.NewError(errs.ErrMessageEmpty)
	}
	return clean, nil
}

func (e *Engine) load(ctx context.Context, id int64) (*message.Message, error) {
	msg, err := e.messages.FindByID(ctx, id)
	if errors.Is(err, message.ErrNotFound) {
		return nil, errs.NewError(errs.ErrMessageNotFound)
	}
	if err != nil {
		return nil, e.persistenceError(err, "load", id)
	}
	return msg, nil
}

func (e *Engine) persistenceError(err error, op string, id int64) error {
	e.logger.Error().Err(err).Str("op", op).Int64("message_id", id).Msg("Message store failure.")
	return errs.NewError(errs.ErrPersistence)
}
