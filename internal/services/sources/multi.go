package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/pdf"
	"github.com/ternarybob/concierge/internal/services/transform"
)

// MultiSource merges several sources into one collection. Earlier sources win
// when ids collide, since the store keeps the first occurrence.
type MultiSource[T any] struct {
	sources []interfaces.KnowledgeSource[T]
}

// NewMultiSource combines sources in priority order
func NewMultiSource[T any](sources ...interfaces.KnowledgeSource[T]) *MultiSource[T] {
	return &MultiSource[T]{sources: sources}
}

// Name lists the configured sources
func (m *MultiSource[T]) Name() string {
	var names []string
	for _, source := range m.sources {
		if source.Configured() {
			names = append(names, source.Name())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Configured is true when any source is configured
func (m *MultiSource[T]) Configured() bool {
	for _, source := range m.sources {
		if source.Configured() {
			return true
		}
	}
	return false
}

// Fetch concatenates the items of every configured source. Any failure fails
// the whole fetch so a partial result never replaces a complete snapshot.
func (m *MultiSource[T]) Fetch(ctx context.Context) ([]T, error) {
	var items []T
	fetched := 0
	for _, source := range m.sources {
		if !source.Configured() {
			continue
		}
		batch, err := source.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source.Name(), err)
		}
		items = append(items, batch...)
		fetched++
	}
	if fetched == 0 {
		return nil, ErrNotConfigured
	}
	return items, nil
}

// NewProcedureSource builds the procedure source from the local folder and the
// GitHub folder, local files first.
func NewProcedureSource(config common.ProcedureSourceConfig, logger arbor.ILogger) *MultiSource[models.ProcedureItem] {
	parser := NewDocumentParser(transform.NewService(logger), pdf.NewExtractor(logger), logger)
	return NewMultiSource[models.ProcedureItem](
		NewFolderSource(config, parser, logger),
		NewGitHubSource(config.GitHub, parser, logger),
	)
}

var _ interfaces.KnowledgeSource[models.ProcedureItem] = (*MultiSource[models.ProcedureItem])(nil)
