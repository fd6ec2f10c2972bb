package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS inventory (
			user_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			count BIGINT NOT NULL,
			PRIMARY KEY (user_id, item_id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS inventory_log (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			granted_at VARCHAR(64) NOT NULL,
			user_id BIGINT NOT NULL,
			username VARCHAR(255) NOT NULL,
			chat_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			delta BIGINT NOT NULL,
			INDEX idx_inventory_log_user_item (user_id, item_id)
		) ENGINE=InnoDB`,
	},
	upsert: `
		INSERT INTO inventory (user_id, item_id, count)
		VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE count = count + 1`,
	appendLog: `
		INSERT INTO inventory_log (granted_at, user_id, username, chat_id, item_id, delta)
		VALUES (?, ?, ?, ?, ?, ?)`,
	listEntries: `SELECT item_id, count FROM inventory WHERE user_id = ? ORDER BY item_id ASC`,
	listGrants: `
		SELECT id, granted_at, user_id, username, chat_id, item_id, delta
		FROM inventory_log WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
}

// MySQLLedger implements Ledger using MySQL/InnoDB.
type MySQLLedger struct {
	*sqlLedger
}

// NewMySQLLedger connects to MySQL and creates the ledger tables.
func NewMySQLLedger(dsn string, writeTimeout time.Duration) (*MySQLLedger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	base, err := newSQLLedger(db, mysqlDialect, writeTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("component", "ledger").Msg("MySQL ledger initialized")
	return &MySQLLedger{sqlLedger: base}, nil
}

var _ Ledger = (*MySQLLedger)(nil)
