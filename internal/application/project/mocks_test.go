package project

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockProjectStore is a mock implementation of ProjectStore
type MockProjectStore struct {
	mock.Mock
}

func (m *MockProjectStore) Get(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Project), args.Error(1)
}

func (m *MockProjectStore) Upsert(ctx context.Context, p *project.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProjectStore) ListCategories(ctx context.Context, projectID uuid.UUID) ([]project.Category, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]project.Category), args.Error(1)
}

func (m *MockProjectStore) UpsertCategory(ctx context.Context, projectID uuid.UUID, c project.Category) error {
	args := m.Called(ctx, projectID, c)
	return args.Error(0)
}

// memStore is an in-memory ProjectStore. afterWrite, when set, runs after
// every successful write with the written project id. roundInputs stores
// input columns at two places, as DECIMAL(18,2) columns do.
type memStore struct {
	mu          sync.Mutex
	projects    map[uuid.UUID]project.Project
	categories  map[uuid.UUID]map[int]project.Category
	order       map[uuid.UUID][]int
	writes      int
	afterWrite  func(id uuid.UUID)
	roundInputs bool
}

func newMemStore() *memStore {
	return &memStore{
		projects:   make(map[uuid.UUID]project.Project),
		categories: make(map[uuid.UUID]map[int]project.Category),
		order:      make(map[uuid.UUID][]int),
	}
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (s *memStore) Upsert(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	stored := p.Clone()
	if s.roundInputs {
		stored.ContractAmount = stored.ContractAmount.Round(2)
		stored.AdvancesReceived = stored.AdvancesReceived.Round(2)
		stored.Budget = stored.Budget.Round(2)
	}
	s.projects[p.ID] = stored
	s.writes++
	hook := s.afterWrite
	s.mu.Unlock()
	if hook != nil {
		hook(p.ID)
	}
	return nil
}

func (s *memStore) ListCategories(_ context.Context, projectID uuid.UUID) ([]project.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]project.Category, 0, len(s.order[projectID]))
	for _, id := range s.order[projectID] {
		rows = append(rows, s.categories[projectID][id])
	}
	return rows, nil
}

func (s *memStore) UpsertCategory(_ context.Context, projectID uuid.UUID, c project.Category) error {
	s.mu.Lock()
	if s.categories[projectID] == nil {
		s.categories[projectID] = make(map[int]project.Category)
	}
	if _, ok := s.categories[projectID][c.ID]; !ok {
		s.order[projectID] = append(s.order[projectID], c.ID)
	}
	if s.roundInputs {
		c.Budget = c.Budget.Round(2)
		c.ContractValue = c.ContractValue.Round(2)
		c.Disbursed = c.Disbursed.Round(2)
		c.OutstandingBalance = c.OutstandingBalance.Round(2)
	}
	s.categories[projectID][c.ID] = c
	s.writes++
	hook := s.afterWrite
	s.mu.Unlock()
	if hook != nil {
		hook(projectID)
	}
	return nil
}

func (s *memStore) row(projectID uuid.UUID, id int) project.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories[projectID][id]
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// recordingPublisher collects published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}
