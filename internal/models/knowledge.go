package models

import "time"

// FaqItem is a question/answer row sourced from the FAQ spreadsheet
type FaqItem struct {
	ID       string `json:"id" validate:"nonblank"`
	Category string `json:"category,omitempty"`
	Question string `json:"question" validate:"nonblank"`
	Answer   string `json:"answer" validate:"nonblank"`
}

// ProcedureItem is a titled operational document (an SOP) sourced from a document folder
type ProcedureItem struct {
	ID         string   `json:"id" validate:"nonblank"`
	Title      string   `json:"title" validate:"nonblank"`
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Content    string   `json:"content" validate:"nonblank"`
	SourceLink string   `json:"source_link,omitempty" validate:"omitempty,url"`
}

// RefreshStatus reports the outcome of the most recent refresh of one collection.
// A zero LastSuccess means the collection has never been populated.
type RefreshStatus struct {
	Collection          string     `json:"collection"`
	Configured          bool       `json:"configured"`
	ItemCount           int        `json:"item_count"`
	LastAttempt         *time.Time `json:"last_attempt,omitempty"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Dropped             int        `json:"dropped"`
}

// Healthy is true when the last attempt succeeded (or none has failed yet)
func (s RefreshStatus) Healthy() bool {
	return s.LastError == ""
}
