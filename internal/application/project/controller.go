package project

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared"
	"github.com/obras/backend/internal/domain/shared/valueobject"
	"github.com/obras/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Pass triggers, reported to metrics and carried by ProjectRecalculated events
const (
	TriggerOpen     = "open"
	TriggerEdit     = "edit"
	TriggerCategory = "category"
	TriggerSync     = "sync"
	TriggerDeferred = "deferred"
)

// maxTrailingPasses bounds the passes folded in from requests that arrived
// while a pass was being delivered to listeners
const maxTrailingPasses = 3

const defaultPushTimeout = 10 * time.Second

// View is a read snapshot of the controller state
type View struct {
	Project    project.Project    `json:"project"`
	Categories []project.Category `json:"categories"`
	Editing    bool               `json:"editing"`
}

// ChangeListener receives a view after every recompute pass
type ChangeListener func(View)

// PushErrorListener receives store write failures
type PushErrorListener func(error)

// Metrics receives controller measurements
type Metrics interface {
	RecordPass(ctx context.Context, trigger string, d time.Duration)
	RecordReconcile(ctx context.Context, changed, recomputed bool)
	RecordPushFailure(ctx context.Context, operation string)
}

type noopMetrics struct{}

func (noopMetrics) RecordPass(context.Context, string, time.Duration) {}
func (noopMetrics) RecordReconcile(context.Context, bool, bool)       {}
func (noopMetrics) RecordPushFailure(context.Context, string)         {}

// ControllerOption configures a ProjectDetailController
type ControllerOption func(*ProjectDetailController)

// WithLogger sets the controller logger
func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *ProjectDetailController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventPublisher publishes domain events raised by the controller
func WithEventPublisher(p shared.EventPublisher) ControllerOption {
	return func(c *ProjectDetailController) {
		c.publisher = p
	}
}

// WithMetrics records pass and push measurements
func WithMetrics(m Metrics) ControllerOption {
	return func(c *ProjectDetailController) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPolicy sets the category membership policy
func WithPolicy(p *project.CategoryPolicy) ControllerOption {
	return func(c *ProjectDetailController) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithPushTimeout bounds every store write
func WithPushTimeout(d time.Duration) ControllerOption {
	return func(c *ProjectDetailController) {
		if d > 0 {
			c.pushTimeout = d
		}
	}
}

// ProjectDetailController owns the editable state of one open project. It
// applies edits, runs recompute passes, merges store snapshots and writes
// changes back to the store in the background.
//
// All mutation happens under mu on the calling goroutine. Store writes run
// on background goroutines serialised by pushMu; a write always sends the
// latest state, so queued older writes are skipped.
type ProjectDetailController struct {
	id uuid.UUID

	mu          sync.Mutex
	project     project.Project
	ledger      *project.CategoryLedger
	overrides   *project.OverrideTracker
	edits       *project.EditState
	coordinator *project.SyncCoordinator
	recomputing bool
	pending     bool
	passes      uint64
	outbox      []shared.DomainEvent

	// last state known to be in the store
	storedProject project.Project
	storedRows    map[int]project.Category

	store       project.ProjectStore
	policy      *project.CategoryPolicy
	publisher   shared.EventPublisher
	metrics     Metrics
	logger      *zap.Logger
	pushTimeout time.Duration

	listenerMu       sync.Mutex
	nextListenerID   int
	changeListeners  map[int]ChangeListener
	pushErrListeners map[int]PushErrorListener

	pushMu  sync.Mutex
	pushSeq atomic.Uint64
	pushWG  sync.WaitGroup
}

// NewProjectDetailController creates a controller over a project and its rows
// as loaded from the store, and runs an initial pass. The initial pass is
// not written back until the next change.
func NewProjectDetailController(
	ctx context.Context,
	p project.Project,
	rows []project.Category,
	store project.ProjectStore,
	opts ...ControllerOption,
) *ProjectDetailController {
	c := &ProjectDetailController{
		id:               p.ID,
		store:            store,
		policy:           project.DefaultPolicy(),
		metrics:          noopMetrics{},
		logger:           zap.NewNop(),
		pushTimeout:      defaultPushTimeout,
		overrides:        project.NewOverrideTracker(),
		edits:            project.NewEditState(),
		changeListeners:  make(map[int]ChangeListener),
		pushErrListeners: make(map[int]PushErrorListener),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("project_id", p.ID.String()))
	c.coordinator = project.NewSyncCoordinator(c.overrides)

	c.project = p.Clone()
	c.ledger = project.NewCategoryLedger(c.policy, rows...)
	c.storedProject = p.Clone()
	c.storedRows = make(map[int]project.Category, len(rows))
	for _, r := range c.ledger.Categories() {
		c.storedRows[r.ID] = r
	}

	c.pass(ctx, TriggerOpen)
	return c
}

// ID returns the project id
func (c *ProjectDetailController) ID() uuid.UUID {
	return c.id
}

// Project returns a copy of the current project
func (c *ProjectDetailController) Project() project.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project.Clone()
}

// Ledger returns a copy of the current rows in display order
func (c *ProjectDetailController) Ledger() []project.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Categories()
}

// View returns a read snapshot of the project and its rows
func (c *ProjectDetailController) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *ProjectDetailController) viewLocked() View {
	return View{
		Project:    c.project.Clone(),
		Categories: c.ledger.Categories(),
		Editing:    c.edits.AnyEditing(),
	}
}

// Passes returns the number of recompute passes run so far
func (c *ProjectDetailController) Passes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes
}

// Overrides returns the keys of the values committed in this session
func (c *ProjectDetailController) Overrides() []project.FieldKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overrides.Keys()
}

// Phase returns the edit phase of a field
func (c *ProjectDetailController) Phase(key project.FieldKey) project.EditPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edits.Phase(key)
}

// BeginEdit marks a field as being typed into (focus). Recompute passes are
// held back until every field being edited is committed.
func (c *ProjectDetailController) BeginEdit(key project.FieldKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits.Begin(key)
}

// SetField applies a value to a top-level input. Outside an edit session the
// value is committed at once.
func (c *ProjectDetailController) SetField(ctx context.Context, field project.ProjectField, value any) error {
	if !field.IsValid() {
		return project.ErrUnknownField
	}
	v := valueobject.ParseInput(value)
	key := project.ProjectKey(field)

	c.mu.Lock()
	if err := c.project.SetInput(field, v); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.edits.IsEditing(key) {
		c.mu.Unlock()
		return nil
	}
	c.overrides.Record(key, v)
	c.mu.Unlock()

	c.passAndPush(ctx, TriggerEdit)
	return nil
}

// SetCategoryField applies a value to a row field. It returns false when the
// row does not exist. Outside an edit session the value is committed at once.
func (c *ProjectDetailController) SetCategoryField(ctx context.Context, id int, field project.CategoryField, value any) (bool, error) {
	if !field.IsValid() {
		return false, project.ErrUnknownField
	}
	v := valueobject.ParseInput(value)
	key := project.CategoryKey(id, field)

	c.mu.Lock()
	if !c.ledger.Set(id, field, v) {
		c.mu.Unlock()
		return false, nil
	}
	if c.edits.IsEditing(key) {
		c.mu.Unlock()
		return true, nil
	}
	c.overrides.Record(key, v)
	c.mu.Unlock()

	c.passAndPush(ctx, TriggerEdit)
	return true, nil
}

// CommitEdit ends an edit session (blur): the typed value is recorded as an
// override, a pass runs and the change is written back. While another field
// is still being edited both the pass and the write wait for that commit.
func (c *ProjectDetailController) CommitEdit(ctx context.Context, key project.FieldKey) error {
	c.mu.Lock()
	v, err := c.valueLocked(key)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.edits.Commit(key) {
		c.mu.Unlock()
		return nil
	}
	c.overrides.Record(key, v)
	c.mu.Unlock()

	ran := c.pass(ctx, TriggerEdit)

	c.mu.Lock()
	c.edits.Settle(key)
	c.mu.Unlock()

	// with another field still being edited the write waits for its commit
	if ran {
		c.schedulePush(ctx)
	}
	return nil
}

func (c *ProjectDetailController) valueLocked(key project.FieldKey) (v decimal.Decimal, err error) {
	if key.IsProjectField() {
		return c.project.Input(project.ProjectField(key.Field))
	}
	field := project.CategoryField(key.Field)
	if !field.IsValid() {
		return v, project.ErrUnknownField
	}
	row, ok := c.ledger.Get(key.CategoryID)
	if !ok {
		return v, project.ErrCategoryNotFound
	}
	return row.Value(field), nil
}

// AddCategory appends a zeroed row with a fresh id
func (c *ProjectDetailController) AddCategory(ctx context.Context, name string) project.Category {
	c.mu.Lock()
	row := c.ledger.Add(name)
	c.outbox = append(c.outbox, project.NewCategoryAddedEvent(c.id, row))
	c.mu.Unlock()

	c.passAndPush(ctx, TriggerCategory)
	return row
}

// RenameCategory changes a row's display name, which may change the formulas
// that apply to it. It returns false when the row does not exist.
func (c *ProjectDetailController) RenameCategory(ctx context.Context, id int, name string) bool {
	c.mu.Lock()
	row, ok := c.ledger.Get(id)
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.ledger.Rename(id, name)
	c.outbox = append(c.outbox, project.NewCategoryRenamedEvent(c.id, id, row.Name, name))
	c.mu.Unlock()

	c.passAndPush(ctx, TriggerCategory)
	return true
}

// ApplySnapshot merges a store snapshot into local state. Fields being
// edited and committed overrides are kept; a pass runs only when an input
// changed or an earlier pass was cut short, and nothing is mid-edit.
func (c *ProjectDetailController) ApplySnapshot(ctx context.Context, snap project.SyncSnapshot) project.ReconcileResult {
	c.mu.Lock()
	res := c.coordinator.Reconcile(c.project, c.ledger, snap, c.edits)
	if res.Changed {
		c.project = res.Project
		c.ledger = res.Ledger
	}
	deferred := c.pending && !c.recomputing
	c.storedProject = snap.Project()
	for _, r := range snap.Categories() {
		r.Membership = c.policy.Classify(r.Name)
		c.storedRows[r.ID] = r
	}
	c.mu.Unlock()

	c.metrics.RecordReconcile(ctx, res.Changed, res.Recompute)
	c.logger.Debug("Snapshot reconciled",
		zap.Bool("changed", res.Changed),
		zap.Bool("recompute", res.Recompute),
		zap.Ints("appended", res.Appended),
	)

	switch {
	case res.Recompute:
		c.pass(ctx, TriggerSync)
	case deferred:
		c.pass(ctx, TriggerDeferred)
	}
	c.schedulePush(ctx)
	return res
}

// OnChange registers a listener called after every pass. The returned
// function removes it.
func (c *ProjectDetailController) OnChange(l ChangeListener) func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	id := c.nextListenerID
	c.nextListenerID++
	c.changeListeners[id] = l
	return func() {
		c.listenerMu.Lock()
		defer c.listenerMu.Unlock()
		delete(c.changeListeners, id)
	}
}

// OnPushError registers a listener for store write failures. The returned
// function removes it.
func (c *ProjectDetailController) OnPushError(l PushErrorListener) func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	id := c.nextListenerID
	c.nextListenerID++
	c.pushErrListeners[id] = l
	return func() {
		c.listenerMu.Lock()
		defer c.listenerMu.Unlock()
		delete(c.pushErrListeners, id)
	}
}

// Flush waits until every scheduled store write has finished
func (c *ProjectDetailController) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.pushWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// passAndPush runs a pass and writes the result back when the pass ran
func (c *ProjectDetailController) passAndPush(ctx context.Context, trigger string) {
	if c.pass(ctx, trigger) {
		c.schedulePush(ctx)
	}
}

// pass runs a recompute under the lock and delivers the result to listeners
// outside it. A pass requested while another one is running or being
// delivered is refused and folded into one trailing pass. It reports whether
// a recompute ran; a refused request is written back by the running pass.
//
// When the trailing passes hit maxTrailingPasses the last request stays
// pending and the next snapshot runs it.
func (c *ProjectDetailController) pass(ctx context.Context, trigger string) bool {
	for round := 0; ; round++ {
		c.mu.Lock()
		if c.recomputing {
			c.pending = true
			c.mu.Unlock()
			c.logger.Debug("Recompute refused, pass in progress", zap.String("trigger", trigger))
			return false
		}
		if c.edits.AnyEditing() {
			c.mu.Unlock()
			return false
		}
		c.recomputing = true
		c.pending = false
		view := c.recomputeLocked(ctx, trigger)
		events := c.outbox
		c.outbox = nil
		c.mu.Unlock()

		c.publish(ctx, events)
		c.notify(view)

		c.mu.Lock()
		c.recomputing = false
		again := c.pending
		stop := again && round+1 >= maxTrailingPasses
		if !stop {
			c.pending = false
		}
		c.mu.Unlock()

		if !again {
			return true
		}
		if stop {
			c.logger.Warn("Deferring recompute to the next snapshot", zap.Int("rounds", round+1))
			return true
		}
		trigger = TriggerDeferred
	}
}

func (c *ProjectDetailController) recomputeLocked(ctx context.Context, trigger string) View {
	start := time.Now()
	_, span := telemetry.StartServiceSpan(ctx, "ProjectDetailController", "Recompute",
		telemetry.WithAttribute("project.id", c.id.String()),
		telemetry.WithAttribute("trigger", trigger),
	)
	defer span.End()

	c.project, c.ledger = project.Recompute(c.project, c.ledger)
	c.project.Touch()
	c.passes++
	c.outbox = append(c.outbox, project.NewProjectRecalculatedEvent(&c.project, trigger))

	c.metrics.RecordPass(ctx, trigger, time.Since(start))
	return c.viewLocked()
}

func (c *ProjectDetailController) notify(v View) {
	c.listenerMu.Lock()
	listeners := make([]ChangeListener, 0, len(c.changeListeners))
	for _, l := range c.changeListeners {
		listeners = append(listeners, l)
	}
	c.listenerMu.Unlock()

	for _, l := range listeners {
		l(v)
	}
}

func (c *ProjectDetailController) publish(ctx context.Context, events []shared.DomainEvent) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.logger.Warn("Failed to publish project events", zap.Error(err), zap.Int("count", len(events)))
	}
}

// schedulePush writes the local changes to the store in the background
func (c *ProjectDetailController) schedulePush(ctx context.Context) {
	if c.store == nil {
		return
	}
	seq := c.pushSeq.Add(1)
	c.pushWG.Add(1)
	go func() {
		defer c.pushWG.Done()
		c.pushMu.Lock()
		defer c.pushMu.Unlock()
		if seq != c.pushSeq.Load() {
			return
		}
		c.push(context.WithoutCancel(ctx))
	}()
}

func (c *ProjectDetailController) push(ctx context.Context) {
	c.mu.Lock()
	proj, rows := c.pendingWritesLocked()
	c.mu.Unlock()
	if proj == nil && len(rows) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()
	ctx, span := telemetry.StartServiceSpan(ctx, "ProjectDetailController", "Push",
		telemetry.WithAttribute("project.id", c.id.String()),
		telemetry.WithAttribute("rows", len(rows)),
	)
	defer span.End()

	if proj != nil {
		if err := c.store.Upsert(ctx, proj); err != nil {
			c.pushFailed(ctx, "upsert_project", err)
		} else {
			c.mu.Lock()
			c.storedProject = proj.Clone()
			c.mu.Unlock()
		}
	}
	for _, r := range rows {
		if err := c.store.UpsertCategory(ctx, c.id, r); err != nil {
			c.pushFailed(ctx, "upsert_category", fmt.Errorf("category %d: %w", r.ID, err))
			continue
		}
		c.mu.Lock()
		c.storedRows[r.ID] = r
		c.mu.Unlock()
	}
}

func (c *ProjectDetailController) pushFailed(ctx context.Context, op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	telemetry.RecordError(trace.SpanFromContext(ctx), err)
	c.logger.Error("Store write failed",
		zap.String("operation", op),
		zap.String("trace_id", telemetry.GetTraceID(ctx)),
		zap.Error(err),
	)
	c.metrics.RecordPushFailure(ctx, op)

	c.listenerMu.Lock()
	listeners := make([]PushErrorListener, 0, len(c.pushErrListeners))
	for _, l := range c.pushErrListeners {
		listeners = append(listeners, l)
	}
	c.listenerMu.Unlock()

	wrapped := fmt.Errorf("%s: %w", op, err)
	for _, l := range listeners {
		l(wrapped)
	}
}

// pendingWritesLocked returns what differs from the last known store state
func (c *ProjectDetailController) pendingWritesLocked() (*project.Project, []project.Category) {
	var proj *project.Project
	if !sameProject(c.project, c.storedProject) {
		p := c.project.Clone()
		proj = &p
	}
	var rows []project.Category
	for _, r := range c.ledger.Categories() {
		stored, ok := c.storedRows[r.ID]
		if !ok || !sameRow(r, stored) {
			rows = append(rows, r)
		}
	}
	return proj, rows
}

func sameProject(a, b project.Project) bool {
	return a.ProjectNumber == b.ProjectNumber &&
		a.Name == b.Name &&
		a.Client == b.Client &&
		a.ContractAmount.Equal(b.ContractAmount) &&
		a.AdvancesReceived.Equal(b.AdvancesReceived) &&
		a.Budget.Equal(b.Budget) &&
		a.Figures.Equal(b.Figures)
}

func sameRow(a, b project.Category) bool {
	if a.Name != b.Name {
		return false
	}
	for _, f := range project.CategoryFields {
		if !a.Value(f).Equal(b.Value(f)) {
			return false
		}
	}
	return true
}
