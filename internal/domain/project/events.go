package project

import (
	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeProject = "Project"

// Event type constants
const (
	EventTypeProjectCreated      = "ProjectCreated"
	EventTypeProjectRecalculated = "ProjectRecalculated"
	EventTypeCategoryAdded       = "CategoryAdded"
	EventTypeCategoryRenamed     = "CategoryRenamed"
)

// ProjectCreatedEvent is published when a new project is created
type ProjectCreatedEvent struct {
	shared.BaseDomainEvent
	ProjectID     uuid.UUID `json:"project_id"`
	ProjectNumber string    `json:"project_number"`
	Name          string    `json:"name"`
	Client        string    `json:"client,omitempty"`
}

// NewProjectCreatedEvent creates a new ProjectCreatedEvent
func NewProjectCreatedEvent(p *Project) *ProjectCreatedEvent {
	return &ProjectCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProjectCreated, AggregateTypeProject, p.ID),
		ProjectID:       p.ID,
		ProjectNumber:   p.ProjectNumber,
		Name:            p.Name,
		Client:          p.Client,
	}
}

// ProjectRecalculatedEvent is published after a recompute pass
type ProjectRecalculatedEvent struct {
	shared.BaseDomainEvent
	ProjectID         uuid.UUID       `json:"project_id"`
	Trigger           string          `json:"trigger"`
	ContractAmount    decimal.Decimal `json:"contract_amount"`
	BudgetBalance     decimal.Decimal `json:"budget_balance"`
	ReceivableBalance decimal.Decimal `json:"receivable_balance"`
	RealTax           decimal.Decimal `json:"real_tax"`
}

// NewProjectRecalculatedEvent creates a new ProjectRecalculatedEvent
func NewProjectRecalculatedEvent(p *Project, trigger string) *ProjectRecalculatedEvent {
	return &ProjectRecalculatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeProjectRecalculated, AggregateTypeProject, p.ID),
		ProjectID:         p.ID,
		Trigger:           trigger,
		ContractAmount:    p.ContractAmount,
		BudgetBalance:     p.Figures.BudgetBalance,
		ReceivableBalance: p.Figures.ReceivableBalance,
		RealTax:           p.Figures.RealTax,
	}
}

// CategoryAddedEvent is published when a row is added to a project ledger
type CategoryAddedEvent struct {
	shared.BaseDomainEvent
	ProjectID  uuid.UUID `json:"project_id"`
	CategoryID int       `json:"category_id"`
	Name       string    `json:"name"`
}

// NewCategoryAddedEvent creates a new CategoryAddedEvent
func NewCategoryAddedEvent(projectID uuid.UUID, c Category) *CategoryAddedEvent {
	return &CategoryAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryAdded, AggregateTypeProject, projectID),
		ProjectID:       projectID,
		CategoryID:      c.ID,
		Name:            c.Name,
	}
}

// CategoryRenamedEvent is published when a row changes its display name
type CategoryRenamedEvent struct {
	shared.BaseDomainEvent
	ProjectID  uuid.UUID `json:"project_id"`
	CategoryID int       `json:"category_id"`
	OldName    string    `json:"old_name"`
	NewName    string    `json:"new_name"`
}

// NewCategoryRenamedEvent creates a new CategoryRenamedEvent
func NewCategoryRenamedEvent(projectID uuid.UUID, id int, oldName, newName string) *CategoryRenamedEvent {
	return &CategoryRenamedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCategoryRenamed, AggregateTypeProject, projectID),
		ProjectID:       projectID,
		CategoryID:      id,
		OldName:         oldName,
		NewName:         newName,
	}
}
