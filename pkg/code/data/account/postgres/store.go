package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
	"github.com/code-payments/bounty-board/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed account.Store
func New(db *sql.DB) account.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Get implements account.Store.Get
func (s *store) Get(ctx context.Context, address string) (*account.Record, error) {
	model, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}

	return fromModel(model), nil
}

// GetAllByOwner implements account.Store.GetAllByOwner
func (s *store) GetAllByOwner(ctx context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*account.Record, error) {
	models, err := dbGetAllByOwner(ctx, s.db, owner, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*account.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// Commit implements account.Store.Commit
func (s *store) Commit(ctx context.Context, upserts []*account.Record, deletes []*account.Record) error {
	if err := account.ValidateCommit(upserts, deletes); err != nil {
		return err
	}

	upsertModels := make([]*model, len(upserts))
	for i, record := range upserts {
		upsertModels[i] = toModel(record)
	}

	deleteModels := make([]*model, len(deletes))
	for i, record := range deletes {
		deleteModels[i] = toModel(record)
	}

	if err := dbCommit(ctx, s.db, upsertModels, deleteModels); err != nil {
		return err
	}

	for i, model := range upsertModels {
		fromModel(model).CopyTo(upserts[i])
	}
	return nil
}
