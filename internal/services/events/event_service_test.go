package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/interfaces"
)

func TestPublishSync_JoinsErrorsAndPanics(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	errBoom := errors.New("boom")
	require.NoError(t, service.Subscribe(interfaces.EventMessageRouted, func(ctx context.Context, e interfaces.Event) error {
		return errBoom
	}))
	require.NoError(t, service.Subscribe(interfaces.EventMessageRouted, func(ctx context.Context, e interfaces.Event) error {
		panic("subscriber bug")
	}))

	err := service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventMessageRouted})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "handler panicked: subscriber bug")
}

func TestPublish_DetachedFromCancellation(t *testing.T) {
	service := NewService(arbor.NewLogger())
	defer service.Close()

	received := make(chan interfaces.Event, 1)
	ctxErr := make(chan error, 1)
	require.NoError(t, service.Subscribe(interfaces.EventMessageRouted, func(ctx context.Context, e interfaces.Event) error {
		ctxErr <- ctx.Err()
		received <- e
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, service.Publish(ctx, interfaces.Event{Type: interfaces.EventMessageRouted, Payload: "x"}))

	select {
	case e := <-received:
		assert.NoError(t, <-ctxErr)
		assert.Equal(t, "x", e.Payload)
		assert.False(t, e.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestPublish_AfterClose(t *testing.T) {
	service := NewService(arbor.NewLogger())
	require.NoError(t, service.Close())

	assert.ErrorIs(t, service.Publish(context.Background(), interfaces.Event{Type: interfaces.EventMessageRouted}), ErrClosed)
	assert.ErrorIs(t, service.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventMessageRouted}), ErrClosed)
}
