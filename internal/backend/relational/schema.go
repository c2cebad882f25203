package relational

import (
	"context"
	"fmt"
	"regexp"

	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/postgres"
	"github.com/lib/pq"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName rejects names that are not plain identifiers
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return ierr.NewErrorf("invalid table name %q", table).
			WithHint("Table name must be a plain identifier").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DDL returns the statements that create the employee table and its indexes.
// The identity column is the sequence counter that allocates ids.
func DDL(table string) []string {
	t := pq.QuoteIdentifier(table)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name          TEXT        NOT NULL,
	email         TEXT        NOT NULL,
	phone         TEXT        NOT NULL DEFAULT '',
	department    TEXT        NOT NULL DEFAULT '',
	position      TEXT        NOT NULL DEFAULT '',
	profile_image TEXT        NOT NULL DEFAULT '',
	status        SMALLINT    NOT NULL DEFAULT 1 CHECK (status IN (0, 1)),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (lower(email))`,
			pq.QuoteIdentifier("idx_"+table+"_email_lower"), t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (lower(name))`,
			pq.QuoteIdentifier("idx_"+table+"_name_lower"), t),
	}
}

// OpenDBFunc opens a database handle, replaced in tests
type OpenDBFunc func(ctx context.Context, dsn string, log *logger.Logger) (*postgres.DB, error)

// ensureTable runs the DDL in a single transaction over a direct connection
func ensureTable(ctx context.Context, open OpenDBFunc, dsn, table string, log *logger.Logger) error {
	if dsn == "" {
		return ierr.NewError("relational.dsn is not configured").
			WithHint("Creating the table needs a direct database connection (relational.dsn)").
			Mark(ierr.ErrInvalidOperation)
	}
	if err := ValidateTableName(table); err != nil {
		return err
	}

	db, err := open(ctx, dsn, log)
	if err != nil {
		return err
	}
	defer db.Close()

	var existed bool
	err = db.GetQuerier(ctx).GetContext(ctx, &existed, `SELECT to_regclass($1) IS NOT NULL`, table)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Could not inspect the database schema").
			Mark(ierr.ErrDatabase)
	}

	err = db.WithTx(ctx, func(ctx context.Context) error {
		q := db.GetQuerier(ctx)
		for _, stmt := range DDL(table) {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return ierr.WithError(err).
					WithHint("Could not create the employee table").
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Infow("relational storage ready", "table", table, "created", !existed)
	return nil
}
