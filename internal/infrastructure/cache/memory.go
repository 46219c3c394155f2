package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
)

type memoryEntry struct {
	project      *project.Project
	projectUntil time.Time
	rows         []project.Category
	rowsUntil    time.Time
}

// InMemorySnapshotCache is a process-local SnapshotCache with per-entry TTL
type InMemorySnapshotCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemorySnapshotCache creates an empty cache. A zero ttl keeps entries
// until invalidated.
func NewInMemorySnapshotCache(ttl time.Duration) *InMemorySnapshotCache {
	return &InMemorySnapshotCache{
		entries: make(map[uuid.UUID]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *InMemorySnapshotCache) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *InMemorySnapshotCache) live(until time.Time) bool {
	return until.IsZero() || c.now().Before(until)
}

func (c *InMemorySnapshotCache) GetProject(_ context.Context, id uuid.UUID) (*project.Project, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || e.project == nil || !c.live(e.projectUntil) {
		return nil, false, nil
	}
	return cloneProject(e.project), true, nil
}

func (c *InMemorySnapshotCache) SetProject(_ context.Context, p *project.Project) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(p.ID)
	e.project = cloneProject(p)
	e.projectUntil = c.expiry()
	return nil
}

func (c *InMemorySnapshotCache) GetCategories(_ context.Context, id uuid.UUID) ([]project.Category, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || e.rows == nil || !c.live(e.rowsUntil) {
		return nil, false, nil
	}
	return cloneRows(e.rows), true, nil
}

func (c *InMemorySnapshotCache) SetCategories(_ context.Context, id uuid.UUID, rows []project.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(id)
	e.rows = cloneRows(rows)
	e.rowsUntil = c.expiry()
	return nil
}

func (c *InMemorySnapshotCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

// Len returns the number of cached projects, expired ones included
func (c *InMemorySnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// must hold c.mu
func (c *InMemorySnapshotCache) entry(id uuid.UUID) *memoryEntry {
	e, ok := c.entries[id]
	if !ok {
		e = &memoryEntry{}
		c.entries[id] = e
	}
	return e
}

var _ SnapshotCache = (*InMemorySnapshotCache)(nil)
