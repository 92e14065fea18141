package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babelchat/internal/app/message"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    InboundEvent
		wantErr error
	}{
		{name: "send", frame: `{"type":"message:send","payload":{"text":"hi"}}`, want: SendEvent{Text: "hi"}},
		{name: "edit", frame: `{"type":"message:edit","payload":{"messageId":7,"text":"x"}}`, want: EditEvent{MessageID: 7, Text: "x"}},
		{name: "edit with string id", frame: `{"type":"message:edit","payload":{"messageId":"7","text":"x"}}`, want: EditEvent{MessageID: 7, Text: "x"}},
		{name: "delete bare id", frame: `{"type":"message:delete","payload":12}`, want: DeleteEvent{MessageID: 12}},
		{name: "delete string id", frame: `{"type":"message:delete","payload":"12"}`, want: DeleteEvent{MessageID: 12}},
		{name: "delete object", frame: `{"type":"message:delete","payload":{"messageId":12}}`, want: DeleteEvent{MessageID: 12}},
		{name: "typing start", frame: `{"type":"typing:start"}`, want: TypingStartEvent{}},
		{name: "typing stop", frame: `{"type":"typing:stop","payload":null}`, want: TypingStopEvent{}},
		{name: "auth", frame: `{"type":"auth","payload":{"token":"abc"}}`, want: AuthEvent{Token: "abc"}},

		{name: "not json", frame: `hello`, wantErr: ErrMalformedFrame},
		{name: "unknown type", frame: `{"type":"room:join"}`, wantErr: ErrUnknownEvent},
		{name: "send without payload", frame: `{"type":"message:send"}`, wantErr: ErrMalformedFrame},
		{name: "edit without id", frame: `{"type":"message:edit","payload":{"text":"x"}}`, wantErr: ErrMalformedFrame},
		{name: "edit negative id", frame: `{"type":"message:edit","payload":{"messageId":-3,"text":"x"}}`, wantErr: ErrMalformedFrame},
		{name: "delete garbage id", frame: `{"type":"message:delete","payload":"abc"}`, wantErr: ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.frame))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Run("empty typing set is an array", func(t *testing.T) {
		b, err := Encode(TypingUpdate(nil))
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"typing:update","payload":[]}`, string(b))
	})

	t.Run("message edited", func(t *testing.T) {
		b, err := Encode(MessageEdited{ID: 3, Text: "fixed", IsEdited: true})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"message:edited","payload":{"id":3,"text":"fixed","isEdited":true}}`, string(b))
	})

	t.Run("message new flattens the message", func(t *testing.T) {
		msg := message.Message{ID: 9, Author: message.Author{ID: "u1", DisplayName: "alice"}, Text: "hello"}
		b, err := Encode(MessageNew{Message: msg})
		require.NoError(t, err)
		assert.Contains(t, string(b), `"type":"message:new"`)
		assert.Contains(t, string(b), `"authorName":"alice"`)
		assert.Contains(t, string(b), `"isDeleted":false`)
	})
}
