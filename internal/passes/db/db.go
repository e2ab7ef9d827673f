package db

import (
	"context"

	"ms-gatepass/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateSchema creates the visitor_passes table when migrations are not run (sqlite, tests)
func (d *DB) CreateSchema(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.VisitorPass)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// InsertPass stores a new pass and fills in the id assigned by the store
func (d *DB) InsertPass(ctx context.Context, pass *models.VisitorPass) error {
	_, err := d.Bun.NewInsert().
		Model(pass).
		Exec(ctx)
	return err
}

// ListPasses returns every pass, newest id first
func (d *DB) ListPasses(ctx context.Context) ([]models.VisitorPass, error) {
	passes := make([]models.VisitorPass, 0)
	err := d.Bun.NewSelect().
		Model(&passes).
		OrderExpr("id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return passes, nil
}

func (d *DB) GetPassByID(ctx context.Context, id int64) (*models.VisitorPass, error) {
	var pass models.VisitorPass
	err := d.Bun.NewSelect().
		Model(&pass).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

// DeletePass removes the pass with the given id and reports how many rows went away.
// Deleting an unknown id affects zero rows and is not an error.
func (d *DB) DeletePass(ctx context.Context, id int64) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.VisitorPass)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) CountPasses(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.VisitorPass)(nil)).
		Count(ctx)
}

// PingContext lets the store back the /healthz probe
func (d *DB) PingContext(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}
