package project

import (
	"strings"
	"time"
)

// SyncSnapshot is a project and its categories as read from the store.
// It is immutable; accessors return copies.
type SyncSnapshot struct {
	project    Project
	categories []Category
	receivedAt time.Time
}

// NewSyncSnapshot captures a copy of a stored project and its rows
func NewSyncSnapshot(p Project, categories []Category) SyncSnapshot {
	rows := make([]Category, len(categories))
	copy(rows, categories)
	return SyncSnapshot{
		project:    p.Clone(),
		categories: rows,
		receivedAt: time.Now(),
	}
}

// Project returns the stored project
func (s SyncSnapshot) Project() Project {
	return s.project.Clone()
}

// Categories returns the stored rows in store order
func (s SyncSnapshot) Categories() []Category {
	rows := make([]Category, len(s.categories))
	copy(rows, s.categories)
	return rows
}

// ReceivedAt returns when the snapshot was captured
func (s SyncSnapshot) ReceivedAt() time.Time {
	return s.receivedAt
}

// ReconcileResult is the outcome of merging a snapshot into local state
type ReconcileResult struct {
	Project Project
	Ledger  *CategoryLedger
	// Changed is true when any local value was replaced
	Changed bool
	// Recompute is true when a formula input changed and nothing is mid-edit
	Recompute bool
	// Appended lists the ids of rows that only existed in the snapshot
	Appended []int
}

// SyncCoordinator merges store snapshots into the local project without
// clobbering edits
type SyncCoordinator struct {
	overrides *OverrideTracker
}

// NewSyncCoordinator creates a coordinator that resolves fields through overrides
func NewSyncCoordinator(overrides *OverrideTracker) *SyncCoordinator {
	if overrides == nil {
		overrides = NewOverrideTracker()
	}
	return &SyncCoordinator{overrides: overrides}
}

// Reconcile merges snap into copies of the local project and ledger. Derived
// figures are never taken from the snapshot; callers recompute them when
// the result asks for it.
func (c *SyncCoordinator) Reconcile(local Project, localLedger *CategoryLedger, snap SyncSnapshot, editing EditingView) ReconcileResult {
	if editing == nil {
		editing = NewEditState()
	}
	out := local.Clone()
	ledger := localLedger.Clone()
	incoming := snap.project

	changed := false
	inputsChanged := false

	if strings.TrimSpace(out.Name) == "" && incoming.Name != "" {
		out.Name = incoming.Name
		changed = true
	}
	if strings.TrimSpace(out.Client) == "" && incoming.Client != "" {
		out.Client = incoming.Client
		changed = true
	}

	for _, f := range ProjectFields {
		key := ProjectKey(f)
		if editing.IsEditing(key) {
			continue
		}
		prev, _ := out.Input(f)
		next, _ := incoming.Input(f)
		v := c.overrides.Resolve(key, next, prev)
		if !v.Equal(prev) {
			_ = out.SetInput(f, v)
			inputsChanged = true
		}
	}

	var appended []int
	for _, in := range snap.categories {
		row, ok := ledger.Get(in.ID)
		if !ok {
			if ledger.Append(in) {
				appended = append(appended, in.ID)
				inputsChanged = true
			}
			continue
		}

		if strings.TrimSpace(row.Name) == "" && in.Name != "" {
			ledger.Rename(row.ID, in.Name)
			inputsChanged = true
		}

		for _, f := range CategoryFields {
			key := CategoryKey(row.ID, f)
			if editing.IsEditing(key) {
				continue
			}
			prev := row.Value(f)
			v := c.overrides.Resolve(key, in.Value(f), prev)
			if !v.Equal(prev) {
				ledger.Set(row.ID, f, v)
				inputsChanged = true
			}
		}
	}

	changed = changed || inputsChanged
	return ReconcileResult{
		Project:   out,
		Ledger:    ledger,
		Changed:   changed,
		Recompute: inputsChanged && !editing.AnyEditing(),
		Appended:  appended,
	}
}
