// Package health tracks catalog database connectivity for the readiness
// endpoint. The listing engine works without a catalog; health only reports
// on the optional snapshot sink.
package health

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Status is the reported connectivity state.
type Status string

const (
	// StatusHealthy indicates the catalog answered the last ping.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the last ping failed.
	StatusUnhealthy Status = "unhealthy"
	// StatusDisabled indicates no catalog is configured.
	StatusDisabled Status = "disabled"
)

const (
	checkInterval = 30 * time.Second
	pingTimeout   = 5 * time.Second
)

// CatalogHealth periodically pings the catalog database.
type CatalogHealth struct {
	mu        sync.RWMutex
	db        *sql.DB
	status    Status
	lastCheck time.Time
	lastError error
	failures  int
	log       *slog.Logger
	cancel    context.CancelFunc
}

// Info is the JSON shape served by the health endpoint.
type Info struct {
	Status    Status    `json:"status"`
	LastCheck time.Time `json:"lastCheck,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	Failures  int       `json:"consecutiveFailures,omitempty"`
}

// NewCatalogHealth creates a monitor over the catalog connection.
// A nil db reports StatusDisabled and never pings.
func NewCatalogHealth(db *sql.DB) *CatalogHealth {
	status := StatusDisabled
	if db != nil {
		status = StatusUnhealthy
	}
	return &CatalogHealth{
		db:     db,
		status: status,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger.
func (h *CatalogHealth) SetLogger(log *slog.Logger) {
	h.log = log
}

// Start runs an immediate check, then periodic checks until Stop or the
// context ends. No-op when no catalog is configured.
func (h *CatalogHealth) Start(ctx context.Context) {
	if h.db == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	h.check(ctx)
	go h.loop(ctx)
}

// Stop halts the periodic checks.
func (h *CatalogHealth) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
}

// IsHealthy reports whether the catalog is reachable. A disabled catalog
// counts as healthy so it never fails readiness.
func (h *CatalogHealth) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status != StatusUnhealthy
}

// GetInfo returns the current health information.
func (h *CatalogHealth) GetInfo() Info {
	h.mu.RLock()
	defer h.mu.RUnlock()

	info := Info{
		Status:    h.status,
		LastCheck: h.lastCheck,
		Failures:  h.failures,
	}
	if h.lastError != nil {
		info.LastError = h.lastError.Error()
	}
	return info
}

func (h *CatalogHealth) loop(ctx context.Context) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.check(ctx)
		}
	}
}

func (h *CatalogHealth) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := h.db.PingContext(pingCtx)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCheck = time.Now()

	if err != nil {
		h.status = StatusUnhealthy
		h.lastError = err
		h.failures++
		h.log.Debug("Catalog health check failed",
			slog.String("error", err.Error()),
			slog.Int("consecutiveFailures", h.failures))
		return
	}

	if h.status == StatusUnhealthy && h.failures > 0 {
		h.log.Info("Catalog connectivity restored")
	}
	h.status = StatusHealthy
	h.lastError = nil
	h.failures = 0
}
