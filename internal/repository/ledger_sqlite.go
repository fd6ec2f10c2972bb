package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS inventory (
			user_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			count INTEGER NOT NULL CHECK (count >= 1),
			PRIMARY KEY (user_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			granted_at TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			username TEXT NOT NULL,
			chat_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			delta INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_log_user_item ON inventory_log(user_id, item_id)`,
	},
	upsert: `
		INSERT INTO inventory (user_id, item_id, count)
		VALUES (?, ?, 1)
		ON CONFLICT(user_id, item_id) DO UPDATE SET count = count + 1`,
	appendLog: `
		INSERT INTO inventory_log (granted_at, user_id, username, chat_id, item_id, delta)
		VALUES (?, ?, ?, ?, ?, ?)`,
	listEntries: `SELECT item_id, count FROM inventory WHERE user_id = ? ORDER BY item_id ASC`,
	listGrants: `
		SELECT id, granted_at, user_id, username, chat_id, item_id, delta
		FROM inventory_log WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
	stats: func(ctx context.Context, db *sql.DB, out map[string]interface{}) {
		// Database file size (approximate from page count)
		var pageCount, pageSize int64
		db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
		db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		out["db_size_bytes"] = pageCount * pageSize
	},
}

// SQLiteLedger implements Ledger using SQLite in WAL mode.
type SQLiteLedger struct {
	*sqlLedger
}

// NewSQLiteLedger opens (creating if needed) the ledger database at dbPath.
// busyTimeout bounds how long a writer waits for a lock held by another
// connection or process; writeTimeout bounds a whole grant.
func NewSQLiteLedger(dbPath string, busyTimeout, writeTimeout time.Duration) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_txlock=immediate",
		dbPath, busyTimeout.Milliseconds(),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	base, err := newSQLLedger(db, sqliteDialect, writeTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("component", "ledger").Str("path", dbPath).Msg("SQLite ledger initialized")
	return &SQLiteLedger{sqlLedger: base}, nil
}

var _ Ledger = (*SQLiteLedger)(nil)
