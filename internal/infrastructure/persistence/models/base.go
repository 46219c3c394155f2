// Package models holds the GORM row types of the ledger tables.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/shared"
)

// AggregateModel carries identity, timestamps and the optimistic version
// of an aggregate root.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// FromDomain copies the aggregate header
func (m *AggregateModel) FromDomain(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
}

// ToDomain rebuilds the aggregate header
func (m *AggregateModel) ToDomain() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Version: m.Version,
	}
}
