package project

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedProject stores a fresh project with the default rows
func seedProject(t *testing.T, store *memStore) (project.Project, []project.Category) {
	t.Helper()
	p, err := project.NewProject("OB-100", "Departamento Barranco", "Inmobiliaria Sur")
	require.NoError(t, err)
	rows := project.NewDefaultLedger(nil).Categories()

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, p))
	for _, r := range rows {
		require.NoError(t, store.UpsertCategory(ctx, p.ID, r))
	}
	return p.Clone(), rows
}

func flush(t *testing.T, c *ProjectDetailController) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
}

func row(t *testing.T, c *ProjectDetailController, id int) project.Category {
	t.Helper()
	for _, r := range c.Ledger() {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("row %d not found", id)
	return project.Category{}
}

func TestProjectDetailController_Open(t *testing.T) {
	store := newMemStore()
	p, rows := seedProject(t, store)
	rows[19].Budget = d("5000") // Transporte
	rows[19].Disbursed = d("1200")

	ctl := NewProjectDetailController(context.Background(), p, rows, store)

	assert.Equal(t, p.ID, ctl.ID())
	assert.Equal(t, uint64(1), ctl.Passes())
	assert.True(t, row(t, ctl, 20).OutstandingBalance.Equal(d("3800")))
	assert.True(t, ctl.Project().Figures.BudgetBalance.Equal(d("3800")))

	flush(t, ctl)
	assert.True(t, store.row(p.ID, 20).OutstandingBalance.IsZero(), "opening does not write back")
}

func TestProjectDetailController_SetField(t *testing.T) {
	ctx := context.Background()

	t.Run("commits immediately outside an edit session", func(t *testing.T) {
		store := newMemStore()
		p, rows := seedProject(t, store)
		ctl := NewProjectDetailController(ctx, p, rows, store)

		require.NoError(t, ctl.SetField(ctx, project.FieldContractAmount, "S/ 100,000.00"))
		require.NoError(t, ctl.SetField(ctx, project.FieldAdvancesReceived, 20000))

		got := ctl.Project()
		assert.True(t, got.ContractAmount.Equal(d("100000")))
		assert.True(t, got.Figures.ReceivableBalance.Equal(d("80000")))
		assert.Equal(t, uint64(3), ctl.Passes())
		assert.Equal(t, []project.FieldKey{
			project.ProjectKey(project.FieldAdvancesReceived),
			project.ProjectKey(project.FieldContractAmount),
		}, ctl.Overrides())

		flush(t, ctl)
		stored, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, stored.ContractAmount.Equal(d("100000")))
		assert.True(t, stored.Figures.ReceivableBalance.Equal(d("80000")))
	})

	t.Run("unknown field", func(t *testing.T) {
		store := newMemStore()
		p, rows := seedProject(t, store)
		ctl := NewProjectDetailController(ctx, p, rows, store)

		err := ctl.SetField(ctx, project.ProjectField("margin"), "1")
		assert.True(t, errors.Is(err, project.ErrUnknownField))
	})

	t.Run("unparsable input becomes zero", func(t *testing.T) {
		store := newMemStore()
		p, rows := seedProject(t, store)
		ctl := NewProjectDetailController(ctx, p, rows, store)

		require.NoError(t, ctl.SetField(ctx, project.FieldContractAmount, "abc"))
		assert.True(t, ctl.Project().ContractAmount.IsZero())
	})
}

func TestProjectDetailController_SetCategoryField(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p, rows := seedProject(t, store)
	ctl := NewProjectDetailController(ctx, p, rows, store)

	ok, err := ctl.SetCategoryField(ctx, 20, project.CategoryBudget, "5,000.00")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = ctl.SetCategoryField(ctx, 20, project.CategoryDisbursed, "1.200,00")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, row(t, ctl, 20).OutstandingBalance.Equal(d("3800")))

	t.Run("missing row", func(t *testing.T) {
		ok, err := ctl.SetCategoryField(ctx, 999, project.CategoryBudget, "1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ctl.SetCategoryField(ctx, 20, project.CategoryField("margin"), "1")
		assert.True(t, errors.Is(err, project.ErrUnknownField))
	})

	t.Run("write reaches the store", func(t *testing.T) {
		flush(t, ctl)
		stored := store.row(p.ID, 20)
		assert.True(t, stored.Budget.Equal(d("5000")))
		assert.True(t, stored.OutstandingBalance.Equal(d("3800")))
	})
}

func TestProjectDetailController_EditSession(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p, rows := seedProject(t, store)
	ctl := NewProjectDetailController(ctx, p, rows, store)

	key := project.CategoryKey(20, project.CategoryBudget)
	ctl.BeginEdit(key)
	assert.Equal(t, project.PhaseEditing, ctl.Phase(key))

	for _, typed := range []string{"5", "50", "500", "5000"} {
		ok, err := ctl.SetCategoryField(ctx, 20, project.CategoryBudget, typed)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, uint64(1), ctl.Passes(), "no pass while typing")
	assert.True(t, row(t, ctl, 20).Budget.Equal(d("5000")))
	assert.True(t, row(t, ctl, 20).OutstandingBalance.IsZero())
	assert.Empty(t, ctl.Overrides())

	t.Run("snapshot does not clobber the typed value", func(t *testing.T) {
		remote := p.Clone()
		remote.ContractAmount = d("70000")
		remoteRows := project.NewDefaultLedger(nil).Categories()
		remoteRows[19].Budget = d("10")

		res := ctl.ApplySnapshot(ctx, project.NewSyncSnapshot(remote, remoteRows))
		assert.True(t, res.Changed)
		assert.False(t, res.Recompute)
		assert.True(t, row(t, ctl, 20).Budget.Equal(d("5000")))
		assert.True(t, ctl.Project().ContractAmount.Equal(d("70000")))
		assert.Equal(t, uint64(1), ctl.Passes())
	})

	require.NoError(t, ctl.CommitEdit(ctx, key))
	assert.Equal(t, project.PhaseClean, ctl.Phase(key))
	assert.Equal(t, uint64(2), ctl.Passes())
	assert.True(t, row(t, ctl, 20).OutstandingBalance.Equal(d("5000")))
	assert.Equal(t, []project.FieldKey{key}, ctl.Overrides())
	assert.True(t, ctl.Project().Figures.ReceivableBalance.Equal(d("70000")))

	t.Run("commit of a missing row", func(t *testing.T) {
		err := ctl.CommitEdit(ctx, project.CategoryKey(999, project.CategoryBudget))
		assert.True(t, errors.Is(err, project.ErrCategoryNotFound))
	})

	t.Run("blur without focus is a no-op", func(t *testing.T) {
		require.NoError(t, ctl.CommitEdit(ctx, project.CategoryKey(21, project.CategoryBudget)))
		assert.Equal(t, uint64(2), ctl.Passes())
	})
}

func TestProjectDetailController_StoreEcho(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p, rows := seedProject(t, store)
	ctl := NewProjectDetailController(ctx, p, rows, store)

	var mu sync.Mutex
	var results []project.ReconcileResult
	store.afterWrite = func(id uuid.UUID) {
		snap, err := project.LoadSnapshot(ctx, store, id)
		if !assert.NoError(t, err) {
			return
		}
		res := ctl.ApplySnapshot(ctx, snap)
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	}

	_, err := ctl.SetCategoryField(ctx, 20, project.CategoryBudget, "5000")
	require.NoError(t, err)
	require.NoError(t, ctl.SetField(ctx, project.FieldContractAmount, "11800"))
	first := ctl.Project().Figures
	flush(t, ctl)

	assert.Equal(t, uint64(3), ctl.Passes(), "echoed writes trigger no further pass")
	assert.True(t, first.Equal(ctl.Project().Figures))
	assert.Equal(t, "1800.00", ctl.Project().Figures.VAT.StringFixed(2))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, results)
	for _, res := range results {
		assert.False(t, res.Recompute)
	}
}

func TestProjectDetailController_ListenerReentrancy(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p, rows := seedProject(t, store)
	ctl := NewProjectDetailController(ctx, p, rows, store)

	var once sync.Once
	var views []View
	ctl.OnChange(func(v View) {
		views = append(views, v)
		once.Do(func() {
			ok, err := ctl.SetCategoryField(ctx, 21, project.CategoryBudget, "800")
			assert.NoError(t, err)
			assert.True(t, ok)
		})
	})

	_, err := ctl.SetCategoryField(ctx, 20, project.CategoryBudget, "5000")
	require.NoError(t, err)

	assert.Equal(t, uint64(3), ctl.Passes(), "refused pass is folded into one trailing pass")
	require.Len(t, views, 2)
	assert.True(t, row(t, ctl, 21).OutstandingBalance.Equal(d("800")))

	want, _ := project.Recompute(ctl.Project(), project.NewCategoryLedger(nil, ctl.Ledger()...))
	assert.True(t, want.Figures.Equal(ctl.Project().Figures))
	flush(t, ctl)
}

func TestProjectDetailController_TrailingPassLimit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p, rows := seedProject(t, store)
	ctl := NewProjectDetailController(ctx, p, rows, store)

	// every delivered view triggers another edit, until the list runs out
	budgets := []string{"100", "200", "300"}
	edits := 0
	ctl.OnChange(func(View) {
		if edits == len(budgets) {
			return
		}
		b := budgets[edits]
		edits++
		_, err := ctl.SetCategoryField(ctx, 21, project.CategoryBudget, b)
		assert.NoError(t, err)
	})

	_, err := ctl.SetCategoryField(ctx, 20, project.CategoryBudget, "5000")
	require.NoError(t, err)
	assert.Equal(t, uint64(1+maxTrailingPasses), ctl.Passes())
	assert.True(t, row(t, ctl, 21).Budget.Equal(d("300")))
	assert.True(t, row(t, ctl, 21).OutstandingBalance.Equal(d("200")), "last request is held back")
	flush(t, ctl)

	snap, err := project.LoadSnapshot(ctx, store, p.ID)
	require.NoError(t, err)
	res := ctl.ApplySnapshot(ctx, snap)
	assert.False(t, res.Recompute)
	assert.Equal(t, uint64(2+maxTrailingPasses), ctl.Passes(), "held back request runs on the next snapshot")
	assert.True(t, row(t, ctl, 21).OutstandingBalance.Equal(d("300")))

	flush(t, ctl)
	assert.True(t, store.row(p.ID, 21).OutstandingBalance.Equal(d("300")))

	t.Run("nothing left over", func(t *testing.T) {
		snap, err := project.LoadSnapshot(ctx, store, p.ID)
		require.NoError(t, err)
		ctl.ApplySnapshot(ctx, snap)
		assert.Equal(t, uint64(2+maxTrailingPasses), ctl.Passes())
		flush(t, ctl)
	})
}

func TestProjectDetailController_CommitWhileAnotherFieldEdits(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p, rows := seedProject(t, store)
	ctl := NewProjectDetailController(ctx, p, rows, store)

	budget := project.CategoryKey(20, project.CategoryBudget)
	contract := project.ProjectKey(project.FieldContractAmount)
	ctl.BeginEdit(budget)
	ctl.BeginEdit(contract)

	_, err := ctl.SetCategoryField(ctx, 20, project.CategoryBudget, "5000")
	require.NoError(t, err)
	require.NoError(t, ctl.SetField(ctx, project.FieldContractAmount, "11800"))
	writes := store.writeCount()

	require.NoError(t, ctl.CommitEdit(ctx, budget))
	flush(t, ctl)
	assert.Equal(t, uint64(1), ctl.Passes())
	assert.Equal(t, writes, store.writeCount(), "no write while a field is still being edited")
	assert.True(t, store.row(p.ID, 20).Budget.IsZero())

	require.NoError(t, ctl.CommitEdit(ctx, contract))
	flush(t, ctl)
	assert.Equal(t, uint64(2), ctl.Passes())
	assert.Greater(t, store.writeCount(), writes)

	stored := store.row(p.ID, 20)
	assert.True(t, stored.Budget.Equal(d("5000")))
	assert.True(t, stored.OutstandingBalance.Equal(d("5000")))
	sp, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, sp.ContractAmount.Equal(d("11800")))
	assert.Equal(t, "1800.00", sp.Figures.VAT.StringFixed(2))
	assert.True(t, sp.Figures.Equal(ctl.Project().Figures))
}

func TestProjectDetailController_Listeners(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p, rows := seedProject(t, store)
	ctl := NewProjectDetailController(ctx, p, rows, store)

	calls := 0
	unsubscribe := ctl.OnChange(func(View) { calls++ })

	require.NoError(t, ctl.SetField(ctx, project.FieldBudget, "10"))
	assert.Equal(t, 1, calls)

	unsubscribe()
	require.NoError(t, ctl.SetField(ctx, project.FieldBudget, "20"))
	assert.Equal(t, 1, calls)
	flush(t, ctl)
}

func TestProjectDetailController_PushError(t *testing.T) {
	ctx := context.Background()
	p, err := project.NewProject("OB-200", "Local", "")
	require.NoError(t, err)
	rows := project.NewDefaultLedger(nil).Categories()

	store := new(MockProjectStore)
	store.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	store.On("UpsertCategory", mock.Anything, p.ID, mock.Anything).Return(nil).Maybe()

	ctl := NewProjectDetailController(ctx, p.Clone(), rows, store)

	var mu sync.Mutex
	var pushErrs []error
	ctl.OnPushError(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		pushErrs = append(pushErrs, err)
	})

	require.NoError(t, ctl.SetField(ctx, project.FieldContractAmount, "500"))
	flush(t, ctl)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pushErrs, 1)
	assert.Contains(t, pushErrs[0].Error(), "connection refused")
	assert.True(t, ctl.Project().ContractAmount.Equal(d("500")), "local state is kept")
	store.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestProjectDetailController_Categories(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p, rows := seedProject(t, store)
	publisher := &recordingPublisher{}
	ctl := NewProjectDetailController(ctx, p, rows, store, WithEventPublisher(publisher))

	added := ctl.AddCategory(ctx, "Mano de Obra")
	assert.Equal(t, 25, added.ID)
	assert.True(t, added.ContractBased)

	ok, err := ctl.SetCategoryField(ctx, added.ID, project.CategoryContractValue, "3000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, row(t, ctl, 25).OutstandingBalance.Equal(d("3000")))

	require.True(t, ctl.RenameCategory(ctx, added.ID, "Pintura"))
	renamed := row(t, ctl, 25)
	assert.False(t, renamed.ContractBased)
	assert.True(t, renamed.OutstandingBalance.Equal(d("3000")), "manual rows keep their balance")

	assert.False(t, ctl.RenameCategory(ctx, 999, "x"))

	flush(t, ctl)
	assert.Equal(t, "Pintura", store.row(p.ID, 25).Name)
	assert.Contains(t, publisher.types(), project.EventTypeCategoryAdded)
	assert.Contains(t, publisher.types(), project.EventTypeCategoryRenamed)
	assert.Contains(t, publisher.types(), project.EventTypeProjectRecalculated)
}
