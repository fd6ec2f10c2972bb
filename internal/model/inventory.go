package model

import "time"

// InventoryEntry is the aggregated count of one item owned by one user.
type InventoryEntry struct {
	UserID int64 `json:"user_id"`
	ItemID int64 `json:"item_id"`
	Count  int64 `json:"count"`
}

// Grant describes a single item unit credited to a user.
type Grant struct {
	UserID    int64
	ItemID    int64
	Username  string
	ChatID    int64
	Timestamp time.Time
}

// GrantLogRecord is an append-only row of the grant log.
type GrantLogRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ChatID    int64     `json:"chat_id"`
	ItemID    int64     `json:"item_id"`
	Delta     int64     `json:"delta"`
}

// LedgerMismatch reports a (user, item) pair whose aggregate disagrees with the log.
type LedgerMismatch struct {
	UserID    int64 `json:"user_id"`
	ItemID    int64 `json:"item_id"`
	Aggregate int64 `json:"aggregate"`
	Logged    int64 `json:"logged"`
}
