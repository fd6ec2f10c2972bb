package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"roulette-bot/internal/model"
)

// dialect holds the statements one SQL backend needs. Placeholders follow the
// driver: "?" for SQLite and MySQL, "$n" for PostgreSQL.
type dialect struct {
	name string

	// schema statements run one by one at startup
	schema []string

	// upsert takes (user_id, item_id) and inserts count 1 or increments it
	upsert string

	// appendLog takes (granted_at, user_id, username, chat_id, item_id, delta)
	appendLog string

	// listEntries takes (user_id)
	listEntries string

	// listGrants takes (user_id, limit)
	listGrants string

	// stats adds backend-specific numbers to GetStats
	stats func(ctx context.Context, db *sql.DB, out map[string]interface{})
}

const (
	rebuildDeleteQuery = `DELETE FROM inventory`
	rebuildInsertQuery = `
		INSERT INTO inventory (user_id, item_id, count)
		SELECT user_id, item_id, SUM(delta)
		FROM inventory_log
		GROUP BY user_id, item_id
		HAVING SUM(delta) > 0`

	verifyQuery = `
		SELECT l.user_id, l.item_id, COALESCE(i.count, 0), l.total
		FROM (
			SELECT user_id, item_id, SUM(delta) AS total
			FROM inventory_log
			GROUP BY user_id, item_id
		) l
		LEFT JOIN inventory i ON i.user_id = l.user_id AND i.item_id = l.item_id
		WHERE COALESCE(i.count, 0) <> l.total
		UNION ALL
		SELECT i.user_id, i.item_id, i.count, 0
		FROM inventory i
		WHERE NOT EXISTS (
			SELECT 1 FROM inventory_log l
			WHERE l.user_id = i.user_id AND l.item_id = i.item_id
		)`
)

// sqlLedger implements Ledger on top of database/sql for any dialect.
type sqlLedger struct {
	db           *sql.DB
	d            dialect
	writeTimeout time.Duration
}

func newSQLLedger(db *sql.DB, d dialect, writeTimeout time.Duration) (*sqlLedger, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create %s tables: %w", d.name, err)
		}
	}

	return &sqlLedger{db: db, d: d, writeTimeout: writeTimeout}, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrPersistence, err)
}

// Grant upserts the aggregate and appends the log row in one transaction.
func (l *sqlLedger) Grant(ctx context.Context, g model.Grant) error {
	if l.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.writeTimeout)
		defer cancel()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceError("begin grant", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, l.d.upsert, g.UserID, g.ItemID); err != nil {
		return persistenceError("upsert inventory", err)
	}

	grantedAt := g.Timestamp.UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, l.d.appendLog, grantedAt, g.UserID, g.Username, g.ChatID, g.ItemID, 1); err != nil {
		return persistenceError("append grant log", err)
	}

	if err := tx.Commit(); err != nil {
		return persistenceError("commit grant", err)
	}
	return nil
}

// ListEntries returns the user's aggregate rows ordered by item id.
func (l *sqlLedger) ListEntries(ctx context.Context, userID int64) ([]model.InventoryEntry, error) {
	rows, err := l.db.QueryContext(ctx, l.d.listEntries, userID)
	if err != nil {
		return nil, persistenceError("list inventory", err)
	}
	defer rows.Close()

	entries := make([]model.InventoryEntry, 0)
	for rows.Next() {
		e := model.InventoryEntry{UserID: userID}
		if err := rows.Scan(&e.ItemID, &e.Count); err != nil {
			return nil, persistenceError("scan inventory", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list inventory", err)
	}
	return entries, nil
}

// ListGrants returns the user's newest log rows.
func (l *sqlLedger) ListGrants(ctx context.Context, userID int64, limit int) ([]model.GrantLogRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, l.d.listGrants, userID, limit)
	if err != nil {
		return nil, persistenceError("list grants", err)
	}
	defer rows.Close()

	records := make([]model.GrantLogRecord, 0)
	for rows.Next() {
		var (
			rec       model.GrantLogRecord
			grantedAt string
		)
		if err := rows.Scan(&rec.ID, &grantedAt, &rec.UserID, &rec.Username, &rec.ChatID, &rec.ItemID, &rec.Delta); err != nil {
			return nil, persistenceError("scan grant", err)
		}
		rec.Timestamp, _ = time.Parse(time.RFC3339Nano, grantedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list grants", err)
	}
	return records, nil
}

// Rebuild replaces the aggregate table with sums over the log.
func (l *sqlLedger) Rebuild(ctx context.Context) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistenceError("begin rebuild", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, rebuildDeleteQuery); err != nil {
		return 0, persistenceError("clear inventory", err)
	}
	res, err := tx.ExecContext(ctx, rebuildInsertQuery)
	if err != nil {
		return 0, persistenceError("rebuild inventory", err)
	}
	written, err := res.RowsAffected()
	if err != nil {
		return 0, persistenceError("rebuild inventory", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, persistenceError("commit rebuild", err)
	}
	return written, nil
}

// Verify compares every aggregate row against the log.
func (l *sqlLedger) Verify(ctx context.Context) ([]model.LedgerMismatch, error) {
	rows, err := l.db.QueryContext(ctx, verifyQuery)
	if err != nil {
		return nil, persistenceError("verify ledger", err)
	}
	defer rows.Close()

	mismatches := make([]model.LedgerMismatch, 0)
	for rows.Next() {
		var m model.LedgerMismatch
		if err := rows.Scan(&m.UserID, &m.ItemID, &m.Aggregate, &m.Logged); err != nil {
			return nil, persistenceError("scan mismatch", err)
		}
		mismatches = append(mismatches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("verify ledger", err)
	}
	return mismatches, nil
}

// GetStats returns row counts and the last grant time.
func (l *sqlLedger) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"db_type": l.d.name}

	var entries, grants, users int64
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory").Scan(&entries); err != nil {
		return nil, persistenceError("count inventory", err)
	}
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory_log").Scan(&grants); err != nil {
		return nil, persistenceError("count grants", err)
	}
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT user_id) FROM inventory").Scan(&users); err != nil {
		return nil, persistenceError("count users", err)
	}
	stats["inventory_entries"] = entries
	stats["grant_log_rows"] = grants
	stats["users"] = users

	var lastGrant sql.NullString
	if err := l.db.QueryRowContext(ctx, "SELECT MAX(granted_at) FROM inventory_log").Scan(&lastGrant); err == nil && lastGrant.Valid {
		stats["last_grant"] = lastGrant.String
	}

	if l.d.stats != nil {
		l.d.stats(ctx, l.db, stats)
	}
	return stats, nil
}

// Ping checks that the database is reachable.
func (l *sqlLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close closes the database connection.
func (l *sqlLedger) Close() error {
	return l.db.Close()
}
