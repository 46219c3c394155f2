package project

// EditPhase is the lifecycle position of one editable field
type EditPhase int

const (
	// PhaseClean means the field shows the stored value
	PhaseClean EditPhase = iota
	// PhaseEditing means the user is typing into the field
	PhaseEditing
	// PhaseCommitted means the value was committed and awaits its recompute
	PhaseCommitted
)

func (p EditPhase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseCommitted:
		return "committed"
	default:
		return "clean"
	}
}

// EditingView answers whether fields are being typed into
type EditingView interface {
	IsEditing(key FieldKey) bool
	AnyEditing() bool
}

// EditState tracks the edit phase of every field touched in the session.
// Fields not present are Clean.
type EditState struct {
	phases map[FieldKey]EditPhase
}

// NewEditState creates a state with every field Clean
func NewEditState() *EditState {
	return &EditState{phases: make(map[FieldKey]EditPhase)}
}

// Begin moves a field to Editing (focus)
func (s *EditState) Begin(key FieldKey) {
	s.phases[key] = PhaseEditing
}

// Commit moves a field to Committed (blur). It reports false when the field
// was not being edited.
func (s *EditState) Commit(key FieldKey) bool {
	if s.phases[key] != PhaseEditing {
		return false
	}
	s.phases[key] = PhaseCommitted
	return true
}

// Settle returns a field to Clean
func (s *EditState) Settle(key FieldKey) {
	delete(s.phases, key)
}

// Phase returns the current phase of a field
func (s *EditState) Phase(key FieldKey) EditPhase {
	return s.phases[key]
}

// IsEditing reports whether the field is mid-edit
func (s *EditState) IsEditing(key FieldKey) bool {
	return s.phases[key] == PhaseEditing
}

// AnyEditing reports whether any field is mid-edit
func (s *EditState) AnyEditing() bool {
	for _, p := range s.phases {
		if p == PhaseEditing {
			return true
		}
	}
	return false
}
