package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var projectUpdateColumns = []string{
	"updated_at", "version", "project_number", "name", "client",
	"contract_amount", "advances_received", "budget",
	"total_budget", "total_contract", "total_disbursed", "total_outstanding",
	"estimated_profit_no_invoice", "real_profit_no_invoice", "balance_profit_no_invoice",
	"vat", "estimated_vat_credit_base", "estimated_vat_credit", "estimated_tax",
	"real_vat_credit_base", "real_vat_credit", "real_tax",
	"estimated_profit_with_invoice", "real_profit_with_invoice", "balance_profit_with_invoice",
	"receivable_balance", "purchases_balance", "budget_balance",
}

var categoryUpdateColumns = []string{
	"name", "budget", "contract_value", "disbursed", "outstanding_balance",
	"contract_based", "invoice_flag", "purchase_budget", "purchase_contract",
}

// GormProjectStore implements project.ProjectStore using GORM
type GormProjectStore struct {
	db *gorm.DB
}

// NewGormProjectStore creates a new GormProjectStore
func NewGormProjectStore(db *gorm.DB) *GormProjectStore {
	return &GormProjectStore{db: db}
}

// Get loads a project by id
func (s *GormProjectStore) Get(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	var m models.ProjectModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return m.ToDomain(), nil
}

// FindByNumber loads a project by its human-facing number
func (s *GormProjectStore) FindByNumber(ctx context.Context, number string) (*project.Project, error) {
	var m models.ProjectModel
	if err := s.db.WithContext(ctx).First(&m, "project_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project %q: %w", number, err)
	}
	return m.ToDomain(), nil
}

// List returns projects ordered by number
func (s *GormProjectStore) List(ctx context.Context, limit int) ([]*project.Project, error) {
	var rows []models.ProjectModel
	q := s.db.WithContext(ctx).Order("project_number")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]*project.Project, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Upsert inserts the project or overwrites its inputs and figures
func (s *GormProjectStore) Upsert(ctx context.Context, p *project.Project) error {
	m := models.ProjectModelFromDomain(p)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(projectUpdateColumns),
	}).Create(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return project.ErrDuplicateProjectNumber
	}
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", p.ID, err)
	}
	return nil
}

// ListCategories returns the rows of a project ordered by id
func (s *GormProjectStore) ListCategories(ctx context.Context, projectID uuid.UUID) ([]project.Category, error) {
	var rows []models.ProjectCategoryModel
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("category_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list categories of project %s: %w", projectID, err)
	}
	out := make([]project.Category, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// UpsertCategory inserts or overwrites one ledger row
func (s *GormProjectStore) UpsertCategory(ctx context.Context, projectID uuid.UUID, c project.Category) error {
	m := models.ProjectCategoryModelFromDomain(projectID, c)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "category_id"}},
		DoUpdates: clause.AssignmentColumns(categoryUpdateColumns),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("upsert category %d of project %s: %w", c.ID, projectID, err)
	}
	return nil
}

// SaveLedger writes a project and all its rows in one transaction
func (s *GormProjectStore) SaveLedger(ctx context.Context, p *project.Project, rows []project.Category) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := NewGormProjectStore(tx)
		if err := txStore.Upsert(ctx, p); err != nil {
			return err
		}
		for _, c := range rows {
			if err := txStore.UpsertCategory(ctx, p.ID, c); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ project.ProjectStore = (*GormProjectStore)(nil)
