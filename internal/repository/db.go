package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const dateLayout = "2006-01-02"

// target returns the transaction when one is supplied, otherwise the pool.
func target(db *sqlx.DB, exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// maxID returns the greatest identifier stored in column, ordering by length first so
// that counters which outgrew their zero padding still sort last. Empty tables yield "".
func maxID(ctx context.Context, exec sqlx.ExtContext, table, column string) (string, error) {
	query := fmt.Sprintf(`SELECT %[2]s FROM %[1]s ORDER BY LENGTH(%[2]s) DESC, %[2]s DESC LIMIT 1`, table, column)
	var id string
	if err := sqlx.GetContext(ctx, exec, &id, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select max %s: %w", column, err)
	}
	return id, nil
}

func affectedOrNotFound(result sql.Result, label string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", label, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
