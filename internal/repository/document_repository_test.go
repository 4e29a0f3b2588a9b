package repository

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateReasonShortPassthrough(t *testing.T) {
	assert.Equal(t, "embedding failed", truncateReason("embedding failed"))
}

func TestTruncateReasonCapsLongASCII(t *testing.T) {
	long := strings.Repeat("x", 300)

	got := truncateReason(long)

	assert.Len(t, got, 250)
}

func TestTruncateReasonKeepsValidUTF8(t *testing.T) {
	// 248 ASCII bytes followed by a three-byte rune straddling the cap.
	long := strings.Repeat("x", 248) + strings.Repeat("日", 20)

	got := truncateReason(long)

	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 250)
	assert.Equal(t, strings.Repeat("x", 248), got)
}
