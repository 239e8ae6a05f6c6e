package messagesinfra

import (
	"context"
	_ "embed"
	"strings"

	"github.com/Abraxas-365/courier/pkg/logx"
	"github.com/jmoiron/sqlx"
)

var (
	//go:embed schema_postgres.sql
	postgresSchema string

	//go:embed schema_mysql.sql
	mysqlSchema string
)

// Migrate creates the tables the SQL adapters need. It is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := mysqlSchema
	if isPostgres(db) {
		schema = postgresSchema
	}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return storageError(err, "migrate").WithDetail("statement", firstLine(stmt))
		}
	}
	logx.WithField("driver", db.DriverName()).Info("messagesinfra: schema ready")
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
