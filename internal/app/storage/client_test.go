package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/avatars/u1/a%20b.png",
		publicURL("https://cdn.example.com/", "avatars/u1/a b.png"))
	assert.Equal(t, "https://cdn.example.com/k", publicURL("https://cdn.example.com", "k"))
}
