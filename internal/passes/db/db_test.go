package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-gatepass/internal/models"
	"ms-gatepass/internal/passes/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupPassDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	passDB := &db.DB{Bun: bunDB}
	require.NoError(t, passDB.CreateSchema(context.Background()))
	return passDB
}

func samplePass(name string, start time.Time) *models.VisitorPass {
	return &models.VisitorPass{
		Name:      name,
		Email:     "visitor@example.com",
		Phone:     "555-0100",
		Address:   "1 Main St",
		Reason:    "meeting",
		DateStart: start,
		DateEnd:   start.Add(24 * time.Hour),
		CreatedAt: time.Now().UTC(),
	}
}

func TestInsertAndListPasses(t *testing.T) {
	passDB := setupPassDB(t)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := samplePass("First", start)
	require.NoError(t, passDB.InsertPass(ctx, first))
	second := samplePass("Second", start)
	require.NoError(t, passDB.InsertPass(ctx, second))

	assert.Greater(t, first.ID, int64(0))
	assert.Greater(t, second.ID, first.ID)

	passes, err := passDB.ListPasses(ctx)
	require.NoError(t, err)
	require.Len(t, passes, 2)

	// newest first
	assert.Equal(t, second.ID, passes[0].ID)
	assert.Equal(t, first.ID, passes[1].ID)

	got := passes[1]
	assert.Equal(t, "First", got.Name)
	assert.Equal(t, "visitor@example.com", got.Email)
	assert.Equal(t, "555-0100", got.Phone)
	assert.Equal(t, "1 Main St", got.Address)
	assert.Equal(t, "meeting", got.Reason)
	assert.True(t, start.Equal(got.DateStart), "dateStart %s", got.DateStart)
	assert.Equal(t, 24*time.Hour, got.DateEnd.Sub(got.DateStart))
}

func TestListPassesEmpty(t *testing.T) {
	passDB := setupPassDB(t)

	passes, err := passDB.ListPasses(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, passes)
	assert.Empty(t, passes)
}

func TestDeletePass(t *testing.T) {
	passDB := setupPassDB(t)
	ctx := context.Background()

	pass := samplePass("Doomed", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, passDB.InsertPass(ctx, pass))

	affected, err := passDB.DeletePass(ctx, pass.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	count, err := passDB.CountPasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDeleteUnknownPassIsNoOp(t *testing.T) {
	passDB := setupPassDB(t)
	ctx := context.Background()

	require.NoError(t, passDB.InsertPass(ctx, samplePass("Keeper", time.Now().UTC().Truncate(time.Second))))

	affected, err := passDB.DeletePass(ctx, 9999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	count, err := passDB.CountPasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetPassByID(t *testing.T) {
	passDB := setupPassDB(t)
	ctx := context.Background()

	pass := samplePass("Lookup", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, passDB.InsertPass(ctx, pass))

	got, err := passDB.GetPassByID(ctx, pass.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lookup", got.Name)

	_, err = passDB.GetPassByID(ctx, pass.ID+100)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
