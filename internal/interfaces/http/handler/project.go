package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	projectapp "github.com/obras/backend/internal/application/project"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared/valueobject"
	"github.com/obras/backend/internal/interfaces/http/dto"
)

// ProjectHandler exposes the ledger of open projects over HTTP
type ProjectHandler struct {
	BaseHandler
	service  *projectapp.ProjectService
	currency valueobject.Currency
}

// NewProjectHandler creates a new ProjectHandler. Display views are
// formatted in currency.
func NewProjectHandler(service *projectapp.ProjectService, currency valueobject.Currency) *ProjectHandler {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &ProjectHandler{
		service:  service,
		currency: currency,
	}
}

// Get handles GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	ctl, ok := h.open(c)
	if !ok {
		return
	}
	h.Success(c, toProjectResponse(ctl))
}

// Display handles GET /projects/:id/display
func (h *ProjectHandler) Display(c *gin.Context) {
	ctl, ok := h.open(c)
	if !ok {
		return
	}
	h.Success(c, projectapp.BuildDisplayView(ctl.View(), h.currency))
}

// Create handles POST /projects. The project is seeded with the default rows.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ctl, err := h.service.Create(c.Request.Context(), projectapp.CreateProjectRequest{
		ProjectNumber:    req.ProjectNumber,
		Name:             req.Name,
		Client:           req.Client,
		ContractAmount:   dto.AmountInput(req.ContractAmount),
		AdvancesReceived: dto.AmountInput(req.AdvancesReceived),
		Budget:           dto.AmountInput(req.Budget),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toProjectResponse(ctl))
}

// SetField handles PATCH /projects/:id/fields
func (h *ProjectHandler) SetField(c *gin.Context) {
	var req dto.SetFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	ctl, ok := h.open(c)
	if !ok {
		return
	}

	if err := ctl.SetField(c.Request.Context(), project.ProjectField(req.Field), dto.AmountInput(req.Value)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProjectResponse(ctl))
}

// SetCategoryField handles PATCH /projects/:id/categories/:categoryId
func (h *ProjectHandler) SetCategoryField(c *gin.Context) {
	var uri dto.CategoryURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var req dto.SetFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	ctl, ok := h.open(c)
	if !ok {
		return
	}

	found, err := ctl.SetCategoryField(c.Request.Context(), uri.CategoryID, project.CategoryField(req.Field), dto.AmountInput(req.Value))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !found {
		h.HandleError(c, project.ErrCategoryNotFound)
		return
	}
	h.respondCategory(c, ctl, uri.CategoryID)
}

// AddCategory handles POST /projects/:id/categories
func (h *ProjectHandler) AddCategory(c *gin.Context) {
	var req dto.CategoryNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	ctl, ok := h.open(c)
	if !ok {
		return
	}

	row := ctl.AddCategory(c.Request.Context(), req.Name)
	h.Created(c, dto.CategoryResponse{
		Category: row,
		Project:  ctl.Project(),
	})
}

// RenameCategory handles PUT /projects/:id/categories/:categoryId/name
func (h *ProjectHandler) RenameCategory(c *gin.Context) {
	var uri dto.CategoryURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var req dto.CategoryNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	ctl, ok := h.open(c)
	if !ok {
		return
	}

	if !ctl.RenameCategory(c.Request.Context(), uri.CategoryID, req.Name) {
		h.HandleError(c, project.ErrCategoryNotFound)
		return
	}
	h.respondCategory(c, ctl, uri.CategoryID)
}

// Refresh handles POST /projects/:id/refresh
func (h *ProjectHandler) Refresh(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	appended := res.Appended
	if appended == nil {
		appended = []int{}
	}
	h.Success(c, dto.RefreshResponse{
		Changed:    res.Changed,
		Recomputed: res.Recompute,
		Appended:   appended,
	})
}

// Close handles DELETE /projects/:id/session. Pending writes are flushed
// and the project is dropped from memory; the next request reloads it.
func (h *ProjectHandler) Close(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}
	if err := h.service.Close(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ProjectHandler) projectID(c *gin.Context) (uuid.UUID, bool) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(uri.ID), true
}

func (h *ProjectHandler) open(c *gin.Context) (*projectapp.ProjectDetailController, bool) {
	id, ok := h.projectID(c)
	if !ok {
		return nil, false
	}
	ctl, err := h.service.Open(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return ctl, true
}

func (h *ProjectHandler) respondCategory(c *gin.Context, ctl *projectapp.ProjectDetailController, categoryID int) {
	view := ctl.View()
	for _, row := range view.Categories {
		if row.ID == categoryID {
			h.Success(c, dto.CategoryResponse{Category: row, Project: view.Project})
			return
		}
	}
	h.HandleError(c, project.ErrCategoryNotFound)
}

func toProjectResponse(ctl *projectapp.ProjectDetailController) dto.ProjectResponse {
	view := ctl.View()
	return dto.ProjectResponse{
		Project:    view.Project,
		Categories: view.Categories,
		Editing:    view.Editing,
		Passes:     ctl.Passes(),
	}
}
