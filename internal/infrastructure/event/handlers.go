package event

import (
	"context"

	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// HandlerFunc adapts a function to shared.EventHandler
type HandlerFunc struct {
	Types []string
	Fn    func(ctx context.Context, event shared.DomainEvent) error
}

func (h *HandlerFunc) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.Fn(ctx, event)
}

func (h *HandlerFunc) EventTypes() []string {
	return h.Types
}

// ProjectAuditHandler writes one structured log line per project event
type ProjectAuditHandler struct {
	logger *zap.Logger
}

// NewProjectAuditHandler creates the audit handler
func NewProjectAuditHandler(logger *zap.Logger) *ProjectAuditHandler {
	return &ProjectAuditHandler{logger: logger.Named("project_audit")}
}

func (h *ProjectAuditHandler) EventTypes() []string {
	return []string{
		project.EventTypeProjectCreated,
		project.EventTypeProjectRecalculated,
		project.EventTypeCategoryAdded,
		project.EventTypeCategoryRenamed,
	}
}

func (h *ProjectAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("project_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	switch e := event.(type) {
	case *project.ProjectCreatedEvent:
		fields = append(fields, zap.String("project_number", e.ProjectNumber))
	case *project.ProjectRecalculatedEvent:
		fields = append(fields,
			zap.String("trigger", e.Trigger),
			zap.String("budget_balance", e.BudgetBalance.String()),
			zap.String("receivable_balance", e.ReceivableBalance.String()),
		)
	case *project.CategoryAddedEvent:
		fields = append(fields, zap.Int("category_id", e.CategoryID), zap.String("name", e.Name))
	case *project.CategoryRenamedEvent:
		fields = append(fields, zap.Int("category_id", e.CategoryID), zap.String("name", e.NewName))
	}
	h.logger.Info("project event", fields...)
	return nil
}
