package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew_IsVersion7(t *testing.T) {
	assert.Equal(t, uuid.Version(7), New().Version())
}

func TestToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := Token()
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestShort(t *testing.T) {
	s := Short()
	assert.Len(t, s, 16)
	assert.NotContains(t, s, "-")
	assert.NotEqual(t, s, Short())
}
