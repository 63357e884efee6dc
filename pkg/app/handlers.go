package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/bucketdiver/bucketdiver/pkg/browser"
	"github.com/bucketdiver/bucketdiver/pkg/dto"
	"github.com/bucketdiver/bucketdiver/pkg/pageview"
	"github.com/bucketdiver/bucketdiver/pkg/store"
)

type startListingRequest struct {
	MaxPages   int `json:"maxPages"`
	MaxRetries int `json:"maxRetries"`
}

type loadMoreRequest struct {
	SessionID       string `json:"sessionId"`
	AdditionalPages int    `json:"additionalPages"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

type viewResponse struct {
	Records    []dto.ObjectRecord `json:"records"`
	Pagination dto.PaginationInfo `json:"pagination"`
	Filter     string             `json:"filter,omitempty"`
}

type foldersResponse struct {
	Folders []pageview.FolderGroup `json:"folders"`
	Files   []dto.ObjectRecord     `json:"files"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StartListingHandler begins the initial bounded run.
func (a *App) StartListingHandler(w http.ResponseWriter, r *http.Request) {
	var req startListingRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	handle, err := a.browser.StartListing(r.Context(), req.MaxPages, req.MaxRetries)
	if errors.Is(err, browser.ErrSessionActive) {
		a.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusAccepted, sessionResponse{SessionID: handle.String()})
}

// CancelListingHandler cancels the session named by the sessionId parameter.
func (a *App) CancelListingHandler(w http.ResponseWriter, r *http.Request) {
	handle, err := uuid.Parse(r.URL.Query().Get("sessionId"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid sessionId parameter")
		return
	}
	if err := a.browser.Cancel(handle); err != nil {
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	a.writeJSON(w, http.StatusAccepted, sessionResponse{SessionID: handle.String()})
}

// LoadMoreHandler starts a superseding run with a larger page budget.
func (a *App) LoadMoreHandler(w http.ResponseWriter, r *http.Request) {
	var req loadMoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	handle, err := uuid.Parse(req.SessionID)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid sessionId")
		return
	}

	newHandle, err := a.browser.LoadMore(r.Context(), handle, req.AdditionalPages)
	switch {
	case errors.Is(err, browser.ErrUnknownSession):
		a.writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, browser.ErrNoCompletedRun):
		a.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, browser.ErrSessionActive):
		a.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		a.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.writeJSON(w, http.StatusAccepted, sessionResponse{SessionID: newHandle.String()})
}

// ViewHandler serves one page of the filtered view. The query parameter
// sets the filter; an empty query clears it.
func (a *App) ViewHandler(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePaginationParams(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := a.browser.View()
	if query, ok := r.URL.Query()["query"]; ok {
		if len(query) > 0 && query[0] != "" {
			view.SetFilter(query[0])
		} else {
			view.ClearFilter()
		}
	}
	view.GoToPage(page)

	a.writeJSON(w, http.StatusOK, viewResponse{
		Records:    view.CurrentPageRecords(),
		Pagination: view.Pagination(),
		Filter:     view.FilterQuery(),
	})
}

// FoldersHandler groups the current page's records by their first path
// segment, the way a key-prefix tree view presents them.
func (a *App) FoldersHandler(w http.ResponseWriter, r *http.Request) {
	folders, files := pageview.GroupByFolder(a.browser.View().CurrentPageRecords())
	a.writeJSON(w, http.StatusOK, foldersResponse{Folders: folders, Files: files})
}

// StatusHandler serves the current or last run's status.
func (a *App) StatusHandler(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.browser.Status())
}

// BucketsHandler lists the buckets visible to the configured credentials.
func (a *App) BucketsHandler(w http.ResponseWriter, r *http.Request) {
	buckets, err := a.store.ListBuckets(r.Context())
	if err != nil {
		a.log.Error("Failed to list buckets", slog.String("error", err.Error()))
		a.writeError(w, http.StatusBadGateway, store.UserMessage(err))
		return
	}
	a.writeJSON(w, http.StatusOK, buckets)
}

// CatalogObjectsHandler serves cataloged objects of the configured bucket
// with offset pagination, optionally filtered by a key substring.
func (a *App) CatalogObjectsHandler(w http.ResponseWriter, r *http.Request) {
	if a.catalog == nil {
		a.writeError(w, http.StatusNotFound, "catalog is not configured")
		return
	}
	page, err := ParsePaginationParams(r)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pageSize := a.cfg.View.PageSize
	offset := (page - 1) * pageSize
	query := r.URL.Query().Get("query")

	var records []dto.ObjectRecord
	if query != "" {
		records, err = a.catalog.SearchObjects(r.Context(), a.cfg.S3.Bucket, query, pageSize, offset)
	} else {
		records, err = a.catalog.ListObjects(r.Context(), a.cfg.S3.Bucket, pageSize, offset)
	}
	if err != nil {
		a.log.Error("Catalog query failed", slog.String("error", err.Error()))
		a.writeError(w, http.StatusInternalServerError, "catalog query failed")
		return
	}
	a.writeJSON(w, http.StatusOK, records)
}

// HealthHandler reports catalog connectivity. The listing engine itself has
// no dependencies to probe.
func (a *App) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	info := a.health.GetInfo()
	code := http.StatusOK
	if !a.health.IsHealthy() {
		code = http.StatusServiceUnavailable
	}
	a.writeJSON(w, code, info)
}

func (a *App) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

func (a *App) writeError(w http.ResponseWriter, code int, msg string) {
	a.writeJSON(w, code, errorResponse{Error: msg})
}
