package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"roulette-bot/internal/cache"
	"roulette-bot/internal/model"
	"roulette-bot/pkg/uid"
)

// CachedLedger serves ListEntries from a cache. Listings are stored under a
// per-user version token kept in the same cache; a committed grant rotates the
// token, so a listing read before the commit is never looked up again.
type CachedLedger struct {
	Ledger
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedLedger wraps inner with a read-through listing cache.
func NewCachedLedger(inner Ledger, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *CachedLedger {
	return &CachedLedger{
		Ledger: inner,
		cache:  c,
		ttl:    ttl,
		logger: logger.With().Str("component", "ledger_cache").Logger(),
	}
}

func versionKey(userID int64) string {
	return "version:" + strconv.FormatInt(userID, 10)
}

func entriesKey(userID int64, version string) string {
	return "entries:" + strconv.FormatInt(userID, 10) + ":" + version
}

// version returns the user's current listing version, creating one when the
// cache has none. The version key outlives listings stored under it.
func (l *CachedLedger) version(ctx context.Context, userID int64) (string, error) {
	v, err := l.cache.Get(ctx, versionKey(userID))
	if err == nil {
		return string(v), nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return "", err
	}
	return l.rotate(ctx, userID)
}

func (l *CachedLedger) rotate(ctx context.Context, userID int64) (string, error) {
	v := uid.New()
	if err := l.cache.Set(ctx, versionKey(userID), []byte(v), 2*l.ttl); err != nil {
		return "", err
	}
	return v, nil
}

// Grant commits through the inner ledger, then rotates the user's listing version.
func (l *CachedLedger) Grant(ctx context.Context, g model.Grant) error {
	if err := l.Ledger.Grant(ctx, g); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	old, _ := l.cache.Get(ctx, versionKey(g.UserID))
	if _, err := l.rotate(ctx, g.UserID); err != nil {
		l.logger.Warn().Err(err).Int64("user_id", g.UserID).Msg("failed to rotate inventory listing version")
	}
	// drop the listing of the old version
	if old != nil {
		_ = l.cache.Delete(ctx, entriesKey(g.UserID, string(old)))
	}
	return nil
}

// ListEntries returns the cached listing or loads it from the inner ledger.
func (l *CachedLedger) ListEntries(ctx context.Context, userID int64) ([]model.InventoryEntry, error) {
	v, err := l.version(ctx, userID)
	if err != nil {
		l.logger.Warn().Err(err).Int64("user_id", userID).Msg("listing cache unavailable")
		return l.Ledger.ListEntries(ctx, userID)
	}
	key := entriesKey(userID, v)

	data, err := l.cache.GetOrSet(ctx, key, l.ttl, func() ([]byte, error) {
		entries, err := l.Ledger.ListEntries(ctx, userID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(entries)
	})
	if err != nil {
		return nil, err
	}

	var entries []model.InventoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn().Err(err).Int64("user_id", userID).Msg("dropping unreadable cached listing")
		_ = l.cache.Delete(ctx, key)
		return l.Ledger.ListEntries(ctx, userID)
	}
	if entries == nil {
		entries = []model.InventoryEntry{}
	}
	return entries, nil
}

// Rebuild recomputes the aggregate and clears every cached listing.
func (l *CachedLedger) Rebuild(ctx context.Context) (int64, error) {
	n, err := l.Ledger.Rebuild(ctx)
	if err != nil {
		return n, err
	}
	if err := l.cache.Clear(ctx); err != nil {
		l.logger.Warn().Err(err).Msg("failed to clear inventory listings after rebuild")
	}
	return n, nil
}

var _ Ledger = (*CachedLedger)(nil)
