package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/spendwise/internal/report"
)

// bindvars are rebound for the driver in use
const selectTransactions = `
	SELECT id, amount, category, description, date, user_id
	FROM transactions
	WHERE user_id = ?
`

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// FetchTransactions returns every transaction owned by userID. Each call holds
// its own connection and gives it back before returning, on success or failure.
func (s *Storage) FetchTransactions(ctx context.Context, userID int64) ([]report.Transaction, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	txs := []report.Transaction{}
	if err := conn.SelectContext(ctx, &txs, s.db.Rebind(selectTransactions), userID); err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	s.logger.Debug("Transactions fetched",
		slog.Int64("user_id", userID),
		slog.Int("count", len(txs)),
	)

	return txs, nil
}
