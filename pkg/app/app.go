// Package app exposes the listing engine over a JSON HTTP API.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bucketdiver/bucketdiver/pkg/browser"
	"github.com/bucketdiver/bucketdiver/pkg/catalog"
	"github.com/bucketdiver/bucketdiver/pkg/config"
	"github.com/bucketdiver/bucketdiver/pkg/health"
	"github.com/bucketdiver/bucketdiver/pkg/store"
)

const readHeaderTimeout = 10 * time.Second

// App wires the browser, store, and optional catalog behind an HTTP server.
type App struct {
	cfg     config.Config
	browser *browser.Browser
	store   *store.Service
	catalog *catalog.Service
	health  *health.CatalogHealth
	router  *mux.Router
	srv     *http.Server
	log     *slog.Logger
}

// NewApp creates the HTTP application. catalogSvc may be nil.
func NewApp(cfg config.Config, b *browser.Browser, storeSvc *store.Service, catalogSvc *catalog.Service, healthMon *health.CatalogHealth) *App {
	addr := cfg.API.ListenAddr
	if addr == "" {
		addr = config.DefaultListenAddr
	}
	a := &App{
		cfg:     cfg,
		browser: b,
		store:   storeSvc,
		catalog: catalogSvc,
		health:  healthMon,
		router:  mux.NewRouter().StrictSlash(true),
		srv:     &http.Server{Addr: addr, ReadHeaderTimeout: readHeaderTimeout},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	a.initRouter()
	return a
}

// SetLogger sets the logger.
func (a *App) SetLogger(log *slog.Logger) {
	a.log = log
}

// Router returns the HTTP handler, for tests and embedding.
func (a *App) Router() http.Handler {
	return a.router
}

// Start serves the API until the server is shut down.
func (a *App) Start() error {
	a.log.Info("Listening", slog.String("addr", a.srv.Addr))
	if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StopServer drains in-flight requests and stops the server.
func (a *App) StopServer(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}
