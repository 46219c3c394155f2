package dto

import (
	"bytes"
	"encoding/json"

	"github.com/obras/backend/internal/domain/project"
)

// CreateProjectRequest is the body of POST /projects. Amount fields accept
// JSON numbers or locale formatted strings such as "S/ 1.234,50".
type CreateProjectRequest struct {
	ProjectNumber    string          `json:"project_number" binding:"required,max=50"`
	Name             string          `json:"name" binding:"max=200"`
	Client           string          `json:"client" binding:"max=200"`
	ContractAmount   json.RawMessage `json:"contract_amount"`
	AdvancesReceived json.RawMessage `json:"advances_received"`
	Budget           json.RawMessage `json:"budget"`
}

// SetFieldRequest is the body of PATCH /projects/:id/fields and of
// PATCH /projects/:id/categories/:categoryId
type SetFieldRequest struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value" binding:"required"`
}

// CategoryNameRequest carries a category display name
type CategoryNameRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// ProjectResponse is the raw state of an open project. Amounts are decimal strings.
type ProjectResponse struct {
	Project    project.Project    `json:"project"`
	Categories []project.Category `json:"categories"`
	Editing    bool               `json:"editing"`
	Passes     uint64             `json:"passes"`
}

// CategoryResponse reports a row and its project after a row change
type CategoryResponse struct {
	Category project.Category `json:"category"`
	Project  project.Project  `json:"project"`
}

// RefreshResponse reports the outcome of merging the stored state
type RefreshResponse struct {
	Changed    bool  `json:"changed"`
	Recomputed bool  `json:"recomputed"`
	Appended   []int `json:"appended"`
}

// AmountInput converts a raw JSON amount into a value the amount parser
// accepts. Strings are unquoted, numbers keep their literal text, and null or
// an absent value yields nil.
func AmountInput(raw json.RawMessage) any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return json.Number(raw)
}
