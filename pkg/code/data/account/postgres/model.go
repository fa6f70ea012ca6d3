package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/bounty-board/pkg/code/data/account"
	pgutil "github.com/code-payments/bounty-board/pkg/database/postgres"
	q "github.com/code-payments/bounty-board/pkg/database/query"
)

const (
	tableName = "bountyboard__core_account"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address string `db:"address"`
	Owner   string `db:"owner"`

	Lamports uint64 `db:"lamports"`
	Data     []byte `db:"data"`

	Version uint64 `db:"version"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *account.Record) *model {
	data := obj.Data
	if data == nil {
		data = []byte{}
	}

	return &model{
		Id: sql.NullInt64{Int64: int64(obj.Id), Valid: obj.Id > 0},

		Address: obj.Address,
		Owner:   obj.Owner,

		Lamports: obj.Lamports,
		Data:     data,

		Version: obj.Version,

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func fromModel(obj *model) *account.Record {
	return &account.Record{
		Id: uint64(obj.Id.Int64),

		Address: obj.Address,
		Owner:   obj.Owner,

		Lamports: obj.Lamports,
		Data:     obj.Data,

		Version: obj.Version,

		LastUpdatedAt: obj.LastUpdatedAt.UTC(),
	}
}

func (m *model) dbInsert(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + tableName + `
		(address, owner, lamports, data, version, last_updated_at)
		VALUES ($1, $2, $3, $4, 1, $5)

		RETURNING
			id, address, owner, lamports, data, version, last_updated_at`

	err := tx.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.Owner,
		m.Lamports,
		m.Data,
		m.LastUpdatedAt.UTC(),
	).StructScan(m)

	// Another writer created the account first
	return pgutil.CheckUniqueViolation(err, account.ErrStaleVersion)
}

func (m *model) dbUpdate(ctx context.Context, tx *sqlx.Tx) error {
	query := `UPDATE ` + tableName + `
		SET owner = $3, lamports = $4, data = $5, version = version + 1, last_updated_at = $6
		WHERE address = $1 AND version = $2

		RETURNING
			id, address, owner, lamports, data, version, last_updated_at`

	err := tx.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.Version,
		m.Owner,
		m.Lamports,
		m.Data,
		m.LastUpdatedAt.UTC(),
	).StructScan(m)

	return pgutil.CheckNoRows(err, account.ErrStaleVersion)
}

func (m *model) dbDelete(ctx context.Context, tx *sqlx.Tx) error {
	query := `DELETE FROM ` + tableName + `
		WHERE address = $1 AND version = $2`

	res, err := tx.ExecContext(ctx, query, m.Address, m.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return account.ErrStaleVersion
	}
	return nil
}

func dbCommit(ctx context.Context, db *sqlx.DB, upserts, deletes []*model) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		now := time.Now()

		for _, m := range deletes {
			if err := m.dbDelete(ctx, tx); err != nil {
				return err
			}
		}

		for _, m := range upserts {
			m.LastUpdatedAt = now

			var err error
			if m.Version == 0 {
				err = m.dbInsert(ctx, tx)
			} else {
				err = m.dbUpdate(ctx, tx)
			}
			if err != nil {
				return err
			}
		}

		return nil
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT
		id, address, owner, lamports, data, version, last_updated_at
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, account.ErrAccountNotFound)
	}
	return res, nil
}

func dbGetAllByOwner(ctx context.Context, db *sqlx.DB, owner string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT
		id, address, owner, lamports, data, version, last_updated_at
		FROM ` + tableName + `
		WHERE (owner = $1)
	`

	opts := []interface{}{owner}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, account.ErrAccountNotFound)
	}

	if len(res) == 0 {
		return nil, account.ErrAccountNotFound
	}
	return res, nil
}
