// Package knowledge holds the in-memory FAQ and procedure collections. Each
// collection is an immutable snapshot swapped atomically on refresh, so readers
// never lock and never observe a half-built collection.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-retry"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
	"github.com/ternarybob/concierge/internal/models"
	"github.com/ternarybob/concierge/internal/services/scoring"
)

// Descriptor tells a Store how to identify and score one item type
type Descriptor[T any] struct {
	Collection string
	ID         func(T) string
	Fields     func(T) []scoring.Field
	Normalize  func(T) T
}

// Options tunes the refresh behaviour of a Store
type Options struct {
	Timeout   time.Duration // Upper bound for one refresh, 0 means no bound
	Retries   uint64        // Extra fetch attempts within one refresh
	RetryBase time.Duration // First backoff interval
}

// DefaultOptions retries a failed fetch twice within one refresh
func DefaultOptions() Options {
	return Options{
		Timeout:   2 * time.Minute,
		Retries:   2,
		RetryBase: 500 * time.Millisecond,
	}
}

type snapshot[T any] struct {
	items []T
}

// Store is a refreshable collection implementing interfaces.KnowledgeIndex
type Store[T any] struct {
	desc     Descriptor[T]
	source   interfaces.KnowledgeSource[T]
	events   interfaces.EventService
	logger   arbor.ILogger
	options  Options
	validate *validator.Validate

	current atomic.Pointer[snapshot[T]]

	refreshMu          sync.Mutex // serializes refreshes
	statusMu           sync.RWMutex
	status             models.RefreshStatus
	loggedUnconfigured bool
}

// NewStore creates an empty collection. source and events may be nil: a nil
// source behaves as an unconfigured one.
func NewStore[T any](desc Descriptor[T], source interfaces.KnowledgeSource[T], events interfaces.EventService, logger arbor.ILogger, options Options) *Store[T] {
	s := &Store[T]{
		desc:     desc,
		source:   source,
		events:   events,
		logger:   logger,
		options:  options,
		validate: newItemValidator(),
	}
	s.current.Store(&snapshot[T]{})
	s.status = models.RefreshStatus{
		Collection: desc.Collection,
		Configured: source != nil && source.Configured(),
	}
	return s
}

func newItemValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ReplaceAll validates items, drops malformed and duplicate-id entries, and
// swaps the result in as the new snapshot. It returns the number of items kept
// and dropped.
func (s *Store[T]) ReplaceAll(items []T) (kept int, dropped int) {
	next := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		if s.desc.Normalize != nil {
			item = s.desc.Normalize(item)
		}
		if err := s.validate.Struct(item); err != nil {
			dropped++
			s.logger.Debug().
				Str("collection", s.desc.Collection).
				Str("id", s.desc.ID(item)).
				Err(err).
				Msg("Dropping malformed knowledge item")
			continue
		}
		id := s.desc.ID(item)
		if _, dup := seen[id]; dup {
			dropped++
			s.logger.Warn().
				Str("collection", s.desc.Collection).
				Str("id", id).
				Msg("Dropping duplicate knowledge item")
			continue
		}
		seen[id] = struct{}{}
		next = append(next, item)
	}

	s.current.Store(&snapshot[T]{items: next})
	return len(next), dropped
}

type scored[T any] struct {
	item  T
	score float64
}

// rank scores every item in one snapshot, keeping positive scores in
// descending order with ties in insertion order.
func (s *Store[T]) rank(query string, filter func(T) bool) []scored[T] {
	q := scoring.NewQuery(query)
	if q.Empty() {
		return nil
	}

	snap := s.current.Load()
	ranked := make([]scored[T], 0, len(snap.items))
	for _, item := range snap.items {
		score := q.Score(s.desc.Fields(item))
		if score <= 0 {
			continue
		}
		if filter != nil && !filter(item) {
			continue
		}
		ranked = append(ranked, scored[T]{item: item, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

// Search returns up to limit items with a positive score, best first
func (s *Store[T]) Search(query string, limit int, filter func(T) bool) []T {
	if limit <= 0 {
		return nil
	}
	ranked := s.rank(query, filter)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]T, len(ranked))
	for i, r := range ranked {
		results[i] = r.item
	}
	return results
}

// BestMatch returns the top item when it clears scoring.MinConfidenceScore
func (s *Store[T]) BestMatch(query string) (T, bool) {
	var zero T
	ranked := s.rank(query, nil)
	if len(ranked) == 0 || ranked[0].score < scoring.MinConfidenceScore {
		return zero, false
	}
	return ranked[0].item, true
}

// Items returns a copy of the current snapshot in insertion order
func (s *Store[T]) Items() []T {
	snap := s.current.Load()
	out := make([]T, len(snap.items))
	copy(out, snap.items)
	return out
}

// Len returns the size of the current snapshot
func (s *Store[T]) Len() int {
	return len(s.current.Load().items)
}

// Status returns the outcome of the most recent refresh
func (s *Store[T]) Status() models.RefreshStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	status := s.status
	status.ItemCount = s.Len()
	return status
}

// Refresh fetches the full collection from the source and swaps it in. A failed
// fetch keeps the previous snapshot; the outcome is reported in the returned
// status and never as an error.
func (s *Store[T]) Refresh(ctx context.Context) models.RefreshStatus {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.source == nil || !s.source.Configured() {
		s.markUnconfigured()
		return s.Status()
	}

	started := time.Now()
	items, err := s.fetch(ctx)
	if err != nil {
		status := s.recordFailure(started, err)
		s.logger.Warn().
			Str("collection", s.desc.Collection).
			Str("source", s.source.Name()).
			Int("item_count", status.ItemCount).
			Int("consecutive_failures", status.ConsecutiveFailures).
			Err(err).
			Msg("Knowledge refresh failed, keeping previous snapshot")
		s.publish(ctx, interfaces.EventKnowledgeRefreshFailed, status)
		return status
	}

	kept, dropped := s.ReplaceAll(items)
	status := s.recordSuccess(started, dropped)

	s.logger.Info().
		Str("collection", s.desc.Collection).
		Str("source", s.source.Name()).
		Int("item_count", kept).
		Int("dropped", dropped).
		Str("duration", time.Since(started).String()).
		Msg("Knowledge refreshed")
	s.publish(ctx, interfaces.EventKnowledgeRefreshed, status)
	return status
}

func (s *Store[T]) fetch(ctx context.Context) ([]T, error) {
	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}

	base := s.options.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(s.options.Retries, retry.NewExponential(base))

	var items []T
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := s.source.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		items = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %s: %w", s.desc.Collection, s.source.Name(), err)
	}
	return items, nil
}

func (s *Store[T]) markUnconfigured() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	s.status.Configured = false
	if !s.loggedUnconfigured {
		s.loggedUnconfigured = true
		s.logger.Info().
			Str("collection", s.desc.Collection).
			Msg("Knowledge source not configured, collection stays empty")
	}
}

func (s *Store[T]) recordFailure(started time.Time, err error) models.RefreshStatus {
	s.statusMu.Lock()
	attempt := started
	s.status.Configured = true
	s.status.LastAttempt = &attempt
	s.status.LastError = err.Error()
	s.status.ConsecutiveFailures++
	s.statusMu.Unlock()
	return s.Status()
}

func (s *Store[T]) recordSuccess(started time.Time, dropped int) models.RefreshStatus {
	s.statusMu.Lock()
	attempt := started
	success := time.Now()
	s.status.Configured = true
	s.status.LastAttempt = &attempt
	s.status.LastSuccess = &success
	s.status.LastError = ""
	s.status.ConsecutiveFailures = 0
	s.status.Dropped = dropped
	s.statusMu.Unlock()
	return s.Status()
}

func (s *Store[T]) publish(ctx context.Context, eventType interfaces.EventType, status models.RefreshStatus) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: status}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish refresh event")
	}
}
