package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newSQLiteStore(t *testing.T) *GormProjectStore {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return NewGormProjectStore(db.DB)
}

func newMockStore(t *testing.T) (*GormProjectStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewGormProjectStore(gormDB), mock
}

func computedProject(t *testing.T) (*project.Project, []project.Category) {
	t.Helper()
	p, err := project.NewProject("OB-2024-001", "Casa Miraflores", "Inmobiliaria Sur")
	require.NoError(t, err)
	require.NoError(t, p.SetInput(project.FieldContractAmount, d("100000")))
	require.NoError(t, p.SetInput(project.FieldAdvancesReceived, d("20000")))

	ledger := project.NewDefaultLedger(nil)
	ledger.Set(1, project.CategoryBudget, d("30000"))
	ledger.Set(1, project.CategoryDisbursed, d("12000"))
	ledger.Set(9, project.CategoryContractValue, d("5000"))
	ledger.Set(9, project.CategoryDisbursed, d("1200"))

	computed, l := project.Recompute(*p, ledger)
	return &computed, l.Categories()
}

func TestGormProjectStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p, rows := computedProject(t)

	require.NoError(t, store.SaveLedger(ctx, p, rows))

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ProjectNumber, got.ProjectNumber)
	assert.Equal(t, p.Client, got.Client)
	assert.True(t, p.ContractAmount.Equal(got.ContractAmount))
	assert.True(t, p.Figures.Equal(got.Figures), "figures should survive storage")
	assert.Empty(t, got.GetDomainEvents())

	stored, err := store.ListCategories(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].ID, stored[i].ID)
		assert.Equal(t, rows[i].Name, stored[i].Name)
		assert.Equal(t, rows[i].Membership, stored[i].Membership)
		assert.True(t, rows[i].OutstandingBalance.Equal(stored[i].OutstandingBalance), "row %d", rows[i].ID)
	}
}

func TestGormProjectStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p, rows := computedProject(t)
	require.NoError(t, store.SaveLedger(ctx, p, rows))

	p.Name = "Casa Barranco"
	p.Budget = d("75000")
	require.NoError(t, store.Upsert(ctx, p))

	row := rows[0]
	row.Name = "Melamina"
	row.Budget = d("31000")
	require.NoError(t, store.UpsertCategory(ctx, p.ID, row))

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Casa Barranco", got.Name)
	assert.True(t, d("75000").Equal(got.Budget))

	stored, err := store.ListCategories(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored, len(rows))
	assert.Equal(t, "Melamina", stored[0].Name)
	assert.True(t, d("31000").Equal(stored[0].Budget))
}

func TestGormProjectStore_Lookups(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p, rows := computedProject(t)
	require.NoError(t, store.SaveLedger(ctx, p, rows))

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, project.ErrProjectNotFound)
	})

	t.Run("by number", func(t *testing.T) {
		got, err := store.FindByNumber(ctx, "OB-2024-001")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)

		_, err = store.FindByNumber(ctx, "OB-404")
		assert.ErrorIs(t, err, project.ErrProjectNotFound)
	})

	t.Run("list", func(t *testing.T) {
		all, err := store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, p.ID, all[0].ID)
	})

	t.Run("no rows", func(t *testing.T) {
		stored, err := store.ListCategories(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, stored)
	})
}

func TestGormProjectStore_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	down := errors.New("connection refused")

	t.Run("get", func(t *testing.T) {
		store, mock := newMockStore(t)
		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "projects" WHERE id = \$1`).
			WithArgs(id, 1).
			WillReturnError(down)

		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, down)
		assert.NotErrorIs(t, err, project.ErrProjectNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list categories", func(t *testing.T) {
		store, mock := newMockStore(t)
		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "project_categories" WHERE project_id = \$1 ORDER BY category_id`).
			WithArgs(id).
			WillReturnError(down)

		_, err := store.ListCategories(ctx, id)
		assert.ErrorIs(t, err, down)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("upsert category", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO "project_categories" .* ON CONFLICT \("project_id","category_id"\) DO UPDATE SET`).
			WillReturnError(down)

		err := store.UpsertCategory(ctx, uuid.New(), project.Category{ID: 3, Name: "Otros"})
		assert.ErrorIs(t, err, down)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProjectStore_DuplicateProjectNumber(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	p, _ := computedProject(t)
	require.NoError(t, store.Upsert(ctx, p))

	other, err := project.NewProject(p.ProjectNumber, "Otra obra", "")
	require.NoError(t, err)

	err = store.Upsert(ctx, other)
	assert.ErrorIs(t, err, project.ErrDuplicateProjectNumber)
}
