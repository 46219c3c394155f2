package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	seen   []string
	err    error
	panics bool
}

func (h *recordingHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, e.EventType())
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func testProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.NewProject("OB-1", "Casa", "Cliente")
	require.NoError(t, err)
	return p
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	p := testProject(t)

	created := &recordingHandler{types: []string{project.EventTypeProjectCreated}}
	all := &recordingHandler{}
	bus.Subscribe(created)
	bus.Subscribe(all)

	err := bus.Publish(context.Background(),
		project.NewProjectCreatedEvent(p),
		project.NewProjectRecalculatedEvent(p, "edit"),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{project.EventTypeProjectCreated}, created.received())
	assert.Equal(t, []string{project.EventTypeProjectCreated, project.EventTypeProjectRecalculated}, all.received())
}

func TestInMemoryEventBus_HandlerFailures(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	p := testProject(t)

	failing := &recordingHandler{err: errors.New("nope")}
	panicking := &recordingHandler{panics: true}
	healthy := &recordingHandler{}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), project.NewProjectCreatedEvent(p)))

	assert.Len(t, healthy.received(), 1)
	assert.Equal(t, 2, recorded.FilterMessage("handler failed to process event").Len())
}

func TestInMemoryEventBus_UnsubscribeAndStop(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())
	p := testProject(t)

	h := &recordingHandler{types: []string{project.EventTypeProjectCreated}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(ctx, project.NewProjectCreatedEvent(p)))
	assert.Empty(t, h.received())

	require.NoError(t, bus.Stop(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, project.NewProjectCreatedEvent(p)), ErrBusStopped)
	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, project.NewProjectCreatedEvent(p)))
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := &recordingHandler{}
	b := &recordingHandler{}
	r.Register(a, "A", "B")
	r.Register(b)

	assert.Len(t, r.GetHandlers("A"), 2)
	assert.Len(t, r.GetHandlers("C"), 1)

	r.Unregister(a)
	assert.Len(t, r.GetHandlers("A"), 1)
	r.Unregister(b)
	assert.Empty(t, r.GetHandlers("A"))
}

func TestHandlerFunc(t *testing.T) {
	var got uuid.UUID
	h := &HandlerFunc{
		Types: []string{project.EventTypeCategoryAdded},
		Fn: func(_ context.Context, e shared.DomainEvent) error {
			got = e.AggregateID()
			return nil
		},
	}
	id := uuid.New()
	require.NoError(t, h.Handle(context.Background(), project.NewCategoryAddedEvent(id, project.Category{ID: 25, Name: "Pintura"})))
	assert.Equal(t, id, got)
	assert.Equal(t, []string{project.EventTypeCategoryAdded}, h.EventTypes())
}

func TestProjectAuditHandler(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	h := NewProjectAuditHandler(zap.New(core))
	p := testProject(t)
	p.Figures.BudgetBalance = decimal.NewFromInt(1500)

	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(h)
	require.NoError(t, bus.Publish(context.Background(),
		project.NewProjectRecalculatedEvent(p, "edit"),
		project.NewCategoryRenamedEvent(p.ID, 3, "Otros", "Pintura"),
	))

	entries := recorded.FilterMessage("project event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "edit", entries[0].ContextMap()["trigger"])
	assert.Equal(t, "1500", entries[0].ContextMap()["budget_balance"])
	assert.Equal(t, "Pintura", entries[1].ContextMap()["name"])
}
