package models

import (
	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/shopspring/decimal"
)

// ProjectModel is a row of the projects table. Derived figures are stored
// next to the inputs so readers outside the service see the same numbers.
type ProjectModel struct {
	AggregateModel
	ProjectNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name             string          `gorm:"type:varchar(200);not null;default:''"`
	Client           string          `gorm:"type:varchar(200);not null;default:''"`
	ContractAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	AdvancesReceived decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Budget           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Figures          project.Figures `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ProjectModelFromDomain converts a project aggregate to its row
func ProjectModelFromDomain(p *project.Project) *ProjectModel {
	m := &ProjectModel{
		ProjectNumber:    p.ProjectNumber,
		Name:             p.Name,
		Client:           p.Client,
		ContractAmount:   p.ContractAmount,
		AdvancesReceived: p.AdvancesReceived,
		Budget:           p.Budget,
		Figures:          p.Figures,
	}
	m.FromDomain(p.BaseAggregateRoot)
	return m
}

// ToDomain converts the row back to an aggregate without pending events
func (m *ProjectModel) ToDomain() *project.Project {
	return &project.Project{
		BaseAggregateRoot: m.AggregateModel.ToDomain(),
		ProjectNumber:     m.ProjectNumber,
		Name:              m.Name,
		Client:            m.Client,
		ContractAmount:    m.ContractAmount,
		AdvancesReceived:  m.AdvancesReceived,
		Budget:            m.Budget,
		Figures:           m.Figures,
	}
}

// ProjectCategoryModel is one ledger row. The pair (project_id, category_id)
// is the key; rows are never addressed by name.
type ProjectCategoryModel struct {
	ProjectID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CategoryID         int             `gorm:"primaryKey;autoIncrement:false"`
	Name               string          `gorm:"type:varchar(200);not null"`
	Budget             decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ContractValue      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Disbursed          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ContractBased      bool            `gorm:"not null;default:false"`
	InvoiceFlag        bool            `gorm:"not null;default:false"`
	PurchaseBudget     bool            `gorm:"not null;default:false"`
	PurchaseContract   bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProjectCategoryModel) TableName() string {
	return "project_categories"
}

// ProjectCategoryModelFromDomain converts a ledger row
func ProjectCategoryModelFromDomain(projectID uuid.UUID, c project.Category) *ProjectCategoryModel {
	return &ProjectCategoryModel{
		ProjectID:          projectID,
		CategoryID:         c.ID,
		Name:               c.Name,
		Budget:             c.Budget,
		ContractValue:      c.ContractValue,
		Disbursed:          c.Disbursed,
		OutstandingBalance: c.OutstandingBalance,
		ContractBased:      c.ContractBased,
		InvoiceFlag:        c.InvoiceFlag,
		PurchaseBudget:     c.PurchaseBudget,
		PurchaseContract:   c.PurchaseContract,
	}
}

// ToDomain converts the row back to a ledger category
func (m *ProjectCategoryModel) ToDomain() project.Category {
	return project.Category{
		ID:                 m.CategoryID,
		Name:               m.Name,
		Budget:             m.Budget,
		ContractValue:      m.ContractValue,
		Disbursed:          m.Disbursed,
		OutstandingBalance: m.OutstandingBalance,
		Membership: project.Membership{
			ContractBased:    m.ContractBased,
			InvoiceFlag:      m.InvoiceFlag,
			PurchaseBudget:   m.PurchaseBudget,
			PurchaseContract: m.PurchaseContract,
		},
	}
}
