// Package cache keeps recently read project snapshots close to the service.
package cache

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
)

// SnapshotCache stores projects and their ledger rows by project id. A miss
// is reported with ok == false and a nil error.
type SnapshotCache interface {
	GetProject(ctx context.Context, id uuid.UUID) (p *project.Project, ok bool, err error)
	SetProject(ctx context.Context, p *project.Project) error
	GetCategories(ctx context.Context, id uuid.UUID) (rows []project.Category, ok bool, err error)
	SetCategories(ctx context.Context, id uuid.UUID, rows []project.Category) error
	// Invalidate drops both the project and its rows
	Invalidate(ctx context.Context, id uuid.UUID) error
}

func cloneProject(p *project.Project) *project.Project {
	c := p.Clone()
	return &c
}

func cloneRows(rows []project.Category) []project.Category {
	if rows == nil {
		return []project.Category{}
	}
	return slices.Clone(rows)
}
