package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaqItemID_Stable(t *testing.T) {
	a := FaqItemID("Commission", "What is the commission split?")
	b := FaqItemID(" commission ", "what is the commission split?")
	c := FaqItemID("Payroll", "What is the commission split?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "faq_"))
}

func TestNewRequestID(t *testing.T) {
	assert.NotEqual(t, NewRequestID(), NewRequestID())
	assert.True(t, strings.HasPrefix(NewRequestID(), "req_"))
}
