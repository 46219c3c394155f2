package project

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared"
	"github.com/obras/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// CreateProjectRequest holds the fields of a new project
type CreateProjectRequest struct {
	ProjectNumber string
	Name          string
	Client        string
	// Inputs are parsed leniently; nil leaves the input at zero
	ContractAmount   any
	AdvancesReceived any
	Budget           any
}

// ServiceConfig configures a ProjectService
type ServiceConfig struct {
	Policy      *project.CategoryPolicy
	Publisher   shared.EventPublisher
	Metrics     Metrics
	Logger      *zap.Logger
	PushTimeout time.Duration
	// IdleTimeout closes projects not opened for this long; 0 keeps them
	// open until closed
	IdleTimeout time.Duration
}

// ProjectService keeps one controller per open project and loads, creates
// and refreshes them against the store
type ProjectService struct {
	store       project.ProjectStore
	policy      *project.CategoryPolicy
	publisher   shared.EventPublisher
	metrics     Metrics
	logger      *zap.Logger
	pushTimeout time.Duration
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	open     map[uuid.UUID]*ProjectDetailController
	lastUsed map[uuid.UUID]time.Time
}

// NewProjectService creates a new ProjectService
func NewProjectService(store project.ProjectStore, cfg ServiceConfig) *ProjectService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = project.DefaultPolicy()
	}
	return &ProjectService{
		store:       store,
		policy:      policy,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		logger:      logger,
		pushTimeout: cfg.PushTimeout,
		idleTimeout: cfg.IdleTimeout,
		now:         time.Now,
		open:        make(map[uuid.UUID]*ProjectDetailController),
		lastUsed:    make(map[uuid.UUID]time.Time),
	}
}

func (s *ProjectService) controllerOptions() []ControllerOption {
	return []ControllerOption{
		WithLogger(s.logger),
		WithEventPublisher(s.publisher),
		WithMetrics(s.metrics),
		WithPolicy(s.policy),
		WithPushTimeout(s.pushTimeout),
	}
}

// Create stores a new project seeded with the default rows and opens it
func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest) (*ProjectDetailController, error) {
	p, err := project.NewProject(req.ProjectNumber, req.Name, req.Client)
	if err != nil {
		return nil, err
	}
	inputs := map[project.ProjectField]any{
		project.FieldContractAmount:   req.ContractAmount,
		project.FieldAdvancesReceived: req.AdvancesReceived,
		project.FieldBudget:           req.Budget,
	}
	for field, raw := range inputs {
		if raw == nil {
			continue
		}
		if err := p.SetInput(field, valueobject.ParseInput(raw)); err != nil {
			return nil, err
		}
	}

	ledger := project.NewDefaultLedger(s.policy)
	computed, ledger := project.Recompute(*p, ledger)

	if err := s.store.Upsert(ctx, &computed); err != nil {
		return nil, fmt.Errorf("store project: %w", err)
	}
	for _, row := range ledger.Categories() {
		if err := s.store.UpsertCategory(ctx, computed.ID, row); err != nil {
			return nil, fmt.Errorf("store category %d: %w", row.ID, err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, p.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish project events", zap.Error(err))
		}
	}
	p.ClearDomainEvents()

	s.logger.Info("Project created",
		zap.String("project_id", computed.ID.String()),
		zap.String("project_number", computed.ProjectNumber),
	)

	ctl := NewProjectDetailController(ctx, computed, ledger.Categories(), s.store, s.controllerOptions()...)
	s.mu.Lock()
	s.open[computed.ID] = ctl
	s.lastUsed[computed.ID] = s.now()
	s.mu.Unlock()
	return ctl, nil
}

// Open returns the controller of a project, loading it on first use
func (s *ProjectService) Open(ctx context.Context, id uuid.UUID) (*ProjectDetailController, error) {
	s.mu.Lock()
	ctl, ok := s.open[id]
	if ok {
		s.lastUsed[id] = s.now()
	}
	s.mu.Unlock()
	if ok {
		return ctl, nil
	}

	snap, err := project.LoadSnapshot(ctx, s.store, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed[id] = s.now()
	if ctl, ok := s.open[id]; ok {
		return ctl, nil
	}
	ctl = NewProjectDetailController(ctx, snap.Project(), snap.Categories(), s.store, s.controllerOptions()...)
	s.open[id] = ctl
	return ctl, nil
}

// Refresh reads the project from the store and merges it into the open
// controller. A failed read leaves local state untouched.
func (s *ProjectService) Refresh(ctx context.Context, id uuid.UUID) (project.ReconcileResult, error) {
	ctl, err := s.Open(ctx, id)
	if err != nil {
		return project.ReconcileResult{}, err
	}
	return s.refresh(ctx, ctl)
}

func (s *ProjectService) refresh(ctx context.Context, ctl *ProjectDetailController) (project.ReconcileResult, error) {
	snap, err := project.LoadSnapshot(ctx, s.store, ctl.ID())
	if err != nil {
		return project.ReconcileResult{}, fmt.Errorf("refresh project %s: %w", ctl.ID(), err)
	}
	return ctl.ApplySnapshot(ctx, snap), nil
}

// OpenIDs returns the ids of the open projects
func (s *ProjectService) OpenIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	return ids
}

// OpenCount returns the number of open projects
func (s *ProjectService) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// Close flushes a project's pending writes and forgets its controller
func (s *ProjectService) Close(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	ctl, ok := s.open[id]
	delete(s.open, id)
	delete(s.lastUsed, id)
	s.mu.Unlock()
	if !ok {
		return project.ErrProjectNotFound
	}
	return ctl.Flush(ctx)
}

// EvictIdle closes the projects not opened within the idle timeout and
// returns how many were closed. Their pending writes are flushed first.
func (s *ProjectService) EvictIdle(ctx context.Context) int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	var idle []*ProjectDetailController
	for id, ctl := range s.open {
		if s.lastUsed[id].After(cutoff) {
			continue
		}
		idle = append(idle, ctl)
		delete(s.open, id)
		delete(s.lastUsed, id)
	}
	s.mu.Unlock()

	for _, ctl := range idle {
		if err := ctl.Flush(ctx); err != nil {
			s.logger.Warn("Flush of idle project failed",
				zap.String("project_id", ctl.ID().String()),
				zap.Error(err),
			)
		}
	}
	if len(idle) > 0 {
		s.logger.Info("Closed idle projects", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Shutdown flushes the pending writes of every open project
func (s *ProjectService) Shutdown(ctx context.Context) error {
	var errs []error
	for _, ctl := range s.controllers() {
		if err := ctl.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush project %s: %w", ctl.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *ProjectService) controllers() []*ProjectDetailController {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctls := make([]*ProjectDetailController, 0, len(s.open))
	for _, ctl := range s.open {
		ctls = append(ctls, ctl)
	}
	return ctls
}

// refreshOpen refreshes every open project without counting it as a use
func (s *ProjectService) refreshOpen(ctx context.Context) {
	for _, ctl := range s.controllers() {
		if _, err := s.refresh(ctx, ctl); err != nil {
			s.logger.Warn("Background refresh failed",
				zap.String("project_id", ctl.ID().String()),
				zap.Error(err),
			)
		}
	}
}

// RunRefresher refreshes every open project on each tick and then closes
// the idle ones, until ctx is done. With no refresh interval it only closes
// idle projects, checking twice per idle timeout.
func (s *ProjectService) RunRefresher(ctx context.Context, interval time.Duration) {
	tick := interval
	if tick <= 0 {
		tick = s.idleTimeout / 2
	}
	if tick <= 0 {
		return
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if interval > 0 {
				s.refreshOpen(ctx)
			}
			s.EvictIdle(ctx)
		}
	}
}
