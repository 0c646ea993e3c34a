package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
)

// ErrClosed is returned once the bus has been closed
var ErrClosed = errors.New("event service is closed")

// Service is the in-process event bus
type Service struct {
	mu          sync.RWMutex
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	closed      bool
	logger      arbor.ILogger
}

// NewService creates an empty bus
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers handler for eventType
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("subscribe %s: nil handler", eventType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.subscribers[eventType] = append(s.subscribers[eventType], handler)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscribers", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")
	return nil
}

// snapshot returns a copy of the handlers for eventType so dispatch runs without the lock
func (s *Service) snapshot(eventType interfaces.EventType) ([]interfaces.EventHandler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]interfaces.EventHandler(nil), s.subscribers[eventType]...), nil
}

// Publish dispatches to every subscriber on its own goroutine
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	handlers, err := s.snapshot(event.Type)
	if err != nil || len(handlers) == 0 {
		return err
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		common.SafeGo(s.logger, "event:"+string(event.Type), func() {
			s.invoke(detached, handler, event)
		})
	}
	return nil
}

// PublishSync runs every subscriber concurrently and waits for all of them
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	handlers, err := s.snapshot(event.Type)
	if err != nil || len(handlers) == 0 {
		return err
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	errs := make([]error, len(handlers))
	var wg sync.WaitGroup
	for i, handler := range handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.invoke(ctx, handler, event)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s handlers: %w", event.Type, err)
	}
	return nil
}

// invoke runs one handler, turning a panic into an error
func (s *Service) invoke(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("event_type", string(event.Type)).
				Msg("Event handler failed")
		}
	}()
	return handler(ctx, event)
}

// Close drops all subscribers
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers = make(map[interfaces.EventType][]interfaces.EventHandler)
	s.closed = true
	s.logger.Debug().Msg("Event service closed")
	return nil
}
