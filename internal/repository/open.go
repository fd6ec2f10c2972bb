package repository

import (
	"fmt"

	"roulette-bot/internal/config"
)

// Open creates the ledger backend selected by cfg.Type.
func Open(cfg config.LedgerConfig) (Ledger, error) {
	switch cfg.Type {
	case "postgres", "postgresql":
		return NewPostgresLedger(cfg.PostgresDSN(), cfg.WriteTimeout)
	case "mysql":
		return NewMySQLLedger(cfg.MySQLDSN(), cfg.WriteTimeout)
	case "sqlite", "":
		return NewSQLiteLedger(cfg.Path, cfg.BusyTimeout, cfg.WriteTimeout)
	default:
		return nil, fmt.Errorf("unknown LEDGER_DB_TYPE %q", cfg.Type)
	}
}
