package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-events-api/pkg/database"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Check-then-write sequences run serialisable so concurrent bookings cannot both pass the check.
var serializableTx = &sql.TxOptions{Isolation: sql.LevelSerializable}

func classify(err error, message string) error {
	return database.Classify(err, message)
}

func rollbackTx(tx *sqlx.Tx, logger *zap.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Warn("failed to rollback transaction", zap.Error(err))
	}
}
