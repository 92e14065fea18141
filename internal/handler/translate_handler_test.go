package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"babelchat/internal/app/translate"
	"babelchat/internal/app/user"
	"babelchat/internal/pkg/errs"
)

func TestTranslate(t *testing.T) {
	alice := &user.User{ID: "u1", Username: "alice"}

	tr := new(mockTranslator)
	tr.On("Translate", mock.Anything, "hola", "en").
		Return(&translate.Result{Translated: "hello", Source: "es"}, nil).Once()
	tr.On("Translate", mock.Anything, "boom", "de").
		Return(nil, errs.NewError(errs.ErrTranslationFailed)).Once()

	f := newFixture(t, []*user.User{alice}, withTranslator(tr))

	status, env := f.do(http.MethodPost, "/api/translate", f.token(alice), map[string]string{"text": "hola", "target": "en"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, translate.Result{Translated: "hello", Source: "es"}, data[translate.Result](t, env))

	status, env = f.do(http.MethodPost, "/api/translate", f.token(alice), map[string]string{"text": "boom", "target": "de"})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, errs.ErrTranslationFailed, env.Code)

	_, env = f.do(http.MethodPost, "/api/translate", f.token(alice), map[string]string{"text": "", "target": "de"})
	assert.Equal(t, errs.ErrInvalidParams, env.Code)

	status, _ = f.do(http.MethodPost, "/api/translate", "", map[string]string{"text": "hola", "target": "en"})
	assert.Equal(t, http.StatusUnauthorized, status)

	tr.AssertExpectations(t)
}
