package app

import "net/http"

// initRouter registers the API routes.
func (a *App) initRouter() {
	a.router.HandleFunc("/api/listing", a.StartListingHandler).Methods(http.MethodPost)
	a.router.HandleFunc("/api/listing", a.CancelListingHandler).Methods(http.MethodDelete)
	a.router.HandleFunc("/api/listing/more", a.LoadMoreHandler).Methods(http.MethodPost)
	a.router.HandleFunc("/api/view", a.ViewHandler).Methods(http.MethodGet)
	a.router.HandleFunc("/api/view/folders", a.FoldersHandler).Methods(http.MethodGet)
	a.router.HandleFunc("/api/status", a.StatusHandler).Methods(http.MethodGet)
	a.router.HandleFunc("/api/buckets", a.BucketsHandler).Methods(http.MethodGet)
	a.router.HandleFunc("/api/catalog/objects", a.CatalogObjectsHandler).Methods(http.MethodGet)
	a.router.HandleFunc("/healthz", a.HealthHandler).Methods(http.MethodGet)
	a.srv.Handler = a.router
}
