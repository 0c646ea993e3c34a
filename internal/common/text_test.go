package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short text", TruncateText("  short \n text ", 40))
	assert.Equal(t, "unchanged", TruncateText("unchanged", 0))
	assert.Equal(t, "Put out the…", TruncateText("Put out the signs before noon", 14))
	assert.Equal(t, "abcdefghij…", TruncateText("abcdefghijklmnop", 10))
}
