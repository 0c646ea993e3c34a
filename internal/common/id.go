package common

import (
	"strings"

	"github.com/google/uuid"
)

// faqNamespace scopes name-based FAQ ids so they never collide with other UUIDs
var faqNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("concierge/faq"))

// NewRequestID generates a unique request ID with the "req_" prefix
func NewRequestID() string {
	return "req_" + uuid.New().String()
}

// FaqItemID derives a stable id from a FAQ row's category and question, so the
// same row keeps its id across refreshes even when the sheet has no id column.
func FaqItemID(category, question string) string {
	key := strings.ToLower(strings.TrimSpace(category)) + "\x00" + strings.ToLower(strings.TrimSpace(question))
	return "faq_" + uuid.NewSHA1(faqNamespace, []byte(key)).String()
}
