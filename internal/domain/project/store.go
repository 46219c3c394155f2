package project

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProjectStore is the persistence boundary of the ledger. Implementations
// must be safe for concurrent use.
type ProjectStore interface {
	// Get loads a project without its categories.
	// Returns ErrProjectNotFound when the id is unknown.
	Get(ctx context.Context, id uuid.UUID) (*Project, error)

	// Upsert creates or replaces a project's inputs and figures
	Upsert(ctx context.Context, p *Project) error

	// ListCategories returns the rows of a project ordered by id
	ListCategories(ctx context.Context, projectID uuid.UUID) ([]Category, error)

	// UpsertCategory creates or replaces one row of a project
	UpsertCategory(ctx context.Context, projectID uuid.UUID, c Category) error
}

// LoadSnapshot reads a project and its rows into a snapshot
func LoadSnapshot(ctx context.Context, store ProjectStore, id uuid.UUID) (SyncSnapshot, error) {
	p, err := store.Get(ctx, id)
	if err != nil {
		return SyncSnapshot{}, err
	}
	rows, err := store.ListCategories(ctx, id)
	if err != nil {
		return SyncSnapshot{}, fmt.Errorf("list categories of project %s: %w", id, err)
	}
	return NewSyncSnapshot(*p, rows), nil
}
