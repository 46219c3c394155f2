package cache

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"go.uber.org/zap"
)

// CachingProjectStore decorates a ProjectStore with a read-through cache.
// Writes go to the store first and then evict the project's entries, so a
// failed write never leaves the cache ahead of the store. Cache errors are
// logged and the store is used instead.
type CachingProjectStore struct {
	inner  project.ProjectStore
	cache  SnapshotCache
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats holds cache hit counters
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewCachingProjectStore wraps inner with cache
func NewCachingProjectStore(inner project.ProjectStore, cache SnapshotCache, logger *zap.Logger) *CachingProjectStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingProjectStore{inner: inner, cache: cache, logger: logger.Named("snapshot_cache")}
}

func (s *CachingProjectStore) Get(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	p, ok, err := s.cache.GetProject(ctx, id)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("project_id", id.String()), zap.Error(err))
	}
	if ok {
		s.hits.Add(1)
		return p, nil
	}
	s.misses.Add(1)

	p, err = s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetProject(ctx, p); err != nil {
		s.logger.Warn("cache fill failed", zap.String("project_id", id.String()), zap.Error(err))
	}
	return p, nil
}

func (s *CachingProjectStore) ListCategories(ctx context.Context, projectID uuid.UUID) ([]project.Category, error) {
	rows, ok, err := s.cache.GetCategories(ctx, projectID)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("project_id", projectID.String()), zap.Error(err))
	}
	if ok {
		s.hits.Add(1)
		return rows, nil
	}
	s.misses.Add(1)

	rows, err = s.inner.ListCategories(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetCategories(ctx, projectID, rows); err != nil {
		s.logger.Warn("cache fill failed", zap.String("project_id", projectID.String()), zap.Error(err))
	}
	return rows, nil
}

func (s *CachingProjectStore) Upsert(ctx context.Context, p *project.Project) error {
	if err := s.inner.Upsert(ctx, p); err != nil {
		return err
	}
	s.evict(ctx, p.ID)
	return nil
}

func (s *CachingProjectStore) UpsertCategory(ctx context.Context, projectID uuid.UUID, c project.Category) error {
	if err := s.inner.UpsertCategory(ctx, projectID, c); err != nil {
		return err
	}
	s.evict(ctx, projectID)
	return nil
}

// Invalidate drops the cached snapshot of a project
func (s *CachingProjectStore) Invalidate(ctx context.Context, id uuid.UUID) {
	s.evict(ctx, id)
}

// Stats returns hit and miss counters since creation
func (s *CachingProjectStore) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

func (s *CachingProjectStore) evict(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("project_id", id.String()), zap.Error(err))
	}
}

var _ project.ProjectStore = (*CachingProjectStore)(nil)
