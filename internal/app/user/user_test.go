package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidUsername(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"min length", "bob", true},
		{"max length", strings.Repeat("a", 20), true},
		{"mixed case with underscore", "Ana_Maria9", true},
		{"too short", "al", false},
		{"too long", strings.Repeat("a", 21), false},
		{"space", "ana maria", false},
		{"dash", "ana-maria", false},
		{"non ascii", "josé", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidUsername(tt.in))
		})
	}
}

func TestValidPassword(t *testing.T) {
	assert.False(t, ValidPassword("12345"))
	assert.True(t, ValidPassword("123456"))
	assert.False(t, ValidPassword(strings.Repeat("x", 73)))
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	u := &User{PasswordHash: hash}
	assert.True(t, u.CheckPassword("correct horse"))
	assert.False(t, u.CheckPassword("battery staple"))
}

func TestUser_Profile(t *testing.T) {
	u := &User{ID: "u1", Username: "Alice", Avatar: "avatars/a.png", IsAdmin: true}

	p := u.Profile()
	assert.Equal(t, Profile{
		ID:                "u1",
		DisplayName:       "Alice",
		Avatar:            "avatars/a.png",
		PreferredLanguage: DefaultLanguage,
		IsAdmin:           true,
	}, p)

	u.PreferredLanguage = "pt-BR"
	assert.Equal(t, "pt-BR", u.Profile().PreferredLanguage)
}
