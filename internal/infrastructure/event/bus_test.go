package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/domain/shared"
	"go.uber.org/zap"
)

type recordingHandler struct {
	types   []string
	err     error
	panicOn bool
	mu      sync.Mutex
	seen    []shared.DomainEvent
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.seen = append(h.seen, event)
	h.mu.Unlock()
	if h.panicOn {
		panic("boom")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.seen...)
}

func appliedEvent() shared.DomainEvent {
	return inventory.NewAllocationEvent(inventory.EventTypeAllocationApplied, uuid.New(), uuid.New(), nil)
}

func releasedEvent() shared.DomainEvent {
	return inventory.NewAllocationEvent(inventory.EventTypeAllocationReleased, uuid.New(), uuid.New(), nil)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{}
	bus.Subscribe(handler, inventory.EventTypeAllocationApplied)

	event := appliedEvent()
	require.NoError(t, bus.Publish(context.Background(), event, releasedEvent()))

	require.Len(t, handler.handled(), 1)
	assert.Equal(t, event, handler.handled()[0])
}

func TestInMemoryEventBus_SubscribeUsesDeclaredTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := &recordingHandler{types: []string{inventory.EventTypeAllocationReleased}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), appliedEvent(), releasedEvent()))
	require.Len(t, handler.handled(), 1)
	assert.Equal(t, inventory.EventTypeAllocationReleased, handler.handled()[0].EventType())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{}
	bus.registry.Register(handler)

	require.NoError(t, bus.Publish(context.Background(), appliedEvent(), releasedEvent()))
	assert.Len(t, handler.handled(), 2)
}

func TestInMemoryEventBus_FailingHandlersDoNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{err: errors.New("handler error")}
	panicking := &recordingHandler{panicOn: true}
	healthy := &recordingHandler{}
	for _, h := range []*recordingHandler{failing, panicking, healthy} {
		bus.Subscribe(h, inventory.EventTypeAllocationApplied)
	}

	require.NoError(t, bus.Publish(context.Background(), appliedEvent()))

	assert.Len(t, failing.handled(), 1)
	assert.Len(t, panicking.handled(), 1)
	assert.Len(t, healthy.handled(), 1)
	delivered, failed := bus.Stats()
	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(2), failed)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{}
	bus.Subscribe(handler, inventory.EventTypeAllocationApplied)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), appliedEvent()))
	assert.Empty(t, handler.handled())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{}
	bus.Subscribe(handler, inventory.EventTypeAllocationApplied)
	ctx := context.Background()

	require.NoError(t, bus.Stop(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, appliedEvent()), ErrBusStopped)

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, appliedEvent()))
	assert.Len(t, handler.handled(), 1)
}
