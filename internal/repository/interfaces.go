package repository

import (
	"context"

	"roulette-bot/internal/model"
)

// Ledger is the durable store of item ownership: an aggregate table plus the
// append-only grant log it is derived from.
type Ledger interface {
	// Grant credits one unit of an item to a user. The aggregate upsert and the
	// log append commit together or not at all. Failures wrap model.ErrPersistence.
	Grant(ctx context.Context, g model.Grant) error

	// ListEntries returns a user's committed inventory ordered by item id.
	ListEntries(ctx context.Context, userID int64) ([]model.InventoryEntry, error)

	// ListGrants returns a user's grant log, newest first, at most limit rows.
	ListGrants(ctx context.Context, userID int64, limit int) ([]model.GrantLogRecord, error)

	// Rebuild recomputes the aggregate table from the grant log and returns the
	// number of aggregate rows written.
	Rebuild(ctx context.Context) (int64, error)

	// Verify lists pairs whose aggregate count disagrees with the log.
	Verify(ctx context.Context) ([]model.LedgerMismatch, error)

	// GetStats returns statistics about the ledger database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error

	// Close closes the repository connection.
	Close() error
}
