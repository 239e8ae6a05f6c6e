package messagesinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Entity names used in store_mappings.
const (
	entityTemplate = "MessageTemplate"
	entityLanguage = "Language"
)

func isPostgres(db *sqlx.DB) bool {
	switch db.DriverName() {
	case "postgres", "pgx":
		return true
	}
	return false
}

func storageError(err error, op string) *errx.Error {
	return messages.Errors.NewWithCause(messages.ErrStorage, err).WithDetail("op", op)
}

// getOne runs a single-row query; no row yields (false, nil).
func getOne(ctx context.Context, db *sqlx.DB, dest any, query string, args ...any) (bool, error) {
	err := db.GetContext(ctx, dest, db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// selectByIDs runs query, whose last condition is "<column> IN (?)", for
// ids. Postgres receives a single array parameter.
func selectByIDs(ctx context.Context, db *sqlx.DB, dest any, pgQuery, query string, ids []int64, args ...any) error {
	if len(ids) == 0 {
		return nil
	}
	if isPostgres(db) {
		return db.SelectContext(ctx, dest, db.Rebind(pgQuery), append(args, pq.Array(ids))...)
	}
	q, inArgs, err := sqlx.In(query, append(args, ids)...)
	if err != nil {
		return err
	}
	return db.SelectContext(ctx, dest, db.Rebind(q), inArgs...)
}

type storeMapping struct {
	EntityID int64          `db:"entity_id"`
	StoreID  kernel.StoreID `db:"store_id"`
}

// storeMappings returns the stores each entity is limited to.
func storeMappings(ctx context.Context, db *sqlx.DB, entity string, ids []int64) (map[int64][]kernel.StoreID, error) {
	var rows []storeMapping
	err := selectByIDs(ctx, db, &rows,
		`SELECT entity_id, store_id FROM store_mappings WHERE entity_name = ? AND entity_id = ANY(?) ORDER BY store_id`,
		`SELECT entity_id, store_id FROM store_mappings WHERE entity_name = ? AND entity_id IN (?) ORDER BY store_id`,
		ids, entity)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]kernel.StoreID, len(ids))
	for _, r := range rows {
		out[r.EntityID] = append(out[r.EntityID], r.StoreID)
	}
	return out, nil
}

// storeFilter limits a query on alias to rows available in store. Store 0
// matches everything.
func storeFilter(alias, entity string, store kernel.StoreID) (string, []any) {
	if store.IsZero() {
		return "", nil
	}
	return ` AND (` + alias + `.limited_to_stores = FALSE OR EXISTS (
		SELECT 1 FROM store_mappings m
		WHERE m.entity_name = ? AND m.entity_id = ` + alias + `.id AND m.store_id = ?))`,
		[]any{entity, store}
}
