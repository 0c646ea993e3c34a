package interfaces

import (
	"context"

	"github.com/ternarybob/concierge/internal/models"
)

// KnowledgeSource fetches a complete set of items from an external system.
// An unconfigured source is never fetched; its collection stays empty.
type KnowledgeSource[T any] interface {
	// Name identifies the source in logs and status
	Name() string

	// Configured reports whether the source has enough settings to be fetched
	Configured() bool

	// Fetch returns every item currently held by the source. Rows that cannot be
	// parsed may be returned partially filled; the store drops them at ingest.
	Fetch(ctx context.Context) ([]T, error)
}

// KnowledgeIndex is a refreshable, queryable in-memory collection
type KnowledgeIndex[T any] interface {
	// Search returns up to limit items with a positive score, best first.
	// filter (optional) is applied after scoring.
	Search(query string, limit int, filter func(T) bool) []T

	// BestMatch returns the top item only when it clears the confidence threshold
	BestMatch(query string) (T, bool)

	// Refresh fetches from the source and swaps the snapshot. It never fails
	// outward; the returned status describes the outcome.
	Refresh(ctx context.Context) models.RefreshStatus

	// Status returns the outcome of the most recent refresh
	Status() models.RefreshStatus

	// Len returns the number of items in the current snapshot
	Len() int
}

// FaqIndex is the FAQ collection
type FaqIndex = KnowledgeIndex[models.FaqItem]

// ProcedureIndex is the procedure (SOP) collection
type ProcedureIndex = KnowledgeIndex[models.ProcedureItem]
