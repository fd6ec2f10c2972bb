package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"roulette-bot/internal/repository"
	"roulette-bot/internal/service"
	"roulette-bot/pkg/apierror"
	"roulette-bot/pkg/response"
)

// AdminHandler serves operator statistics and ledger maintenance.
type AdminHandler struct {
	ledger    repository.Ledger
	gate      *service.Gate
	auditor   *service.LedgerAuditor
	dbType    string
	cacheType string
	startTime time.Time
	logger    zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	ledger repository.Ledger,
	gate *service.Gate,
	auditor *service.LedgerAuditor,
	dbType, cacheType string,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		gate:      gate,
		auditor:   auditor,
		dbType:    dbType,
		cacheType: cacheType,
		startTime: time.Now(),
		logger:    logger.With().Str("component", "admin").Logger(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["cache_type"] = h.cacheType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.ledger != nil {
		ledgerStats, err := h.ledger.GetStats(ctx)
		if err == nil {
			ledgerStats["status"] = "connected"
			stats["ledger"] = ledgerStats
		} else {
			stats["ledger"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	}

	if h.gate != nil {
		stats["roulette"] = h.gate.Stats()
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// VerifyLedger handles POST /api/v1/admin/ledger/verify
func (h *AdminHandler) VerifyLedger(w http.ResponseWriter, r *http.Request) {
	if h.auditor == nil {
		response.Error(w, apierror.NotFound("ledger auditor is not configured"))
		return
	}

	report, err := h.auditor.RunNow(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual ledger audit failed")
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, report)
}
