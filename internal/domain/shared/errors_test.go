package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	notFound := NewDomainError("PROJECT_NOT_FOUND", "Project not found")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"domain error", notFound, "PROJECT_NOT_FOUND"},
		{"wrapped", fmt.Errorf("open: %w", notFound), "PROJECT_NOT_FOUND"},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestBaseAggregateRoot_Events(t *testing.T) {
	root := NewBaseAggregateRoot()
	assert.Equal(t, 1, root.GetVersion())
	assert.Empty(t, root.GetDomainEvents())

	evt := NewBaseDomainEvent("ProjectCreated", "Project", root.ID)
	root.AddDomainEvent(&evt)
	assert.Len(t, root.GetDomainEvents(), 1)
	assert.Equal(t, root.ID, root.GetDomainEvents()[0].AggregateID())

	root.ClearDomainEvents()
	assert.Empty(t, root.GetDomainEvents())
}
