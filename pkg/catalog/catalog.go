// Package catalog persists the record sets of completed listing runs into
// PostgreSQL, keeping a queryable snapshot of the last full enumeration.
// The catalog is a sink: the listing engine never reads from it.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/bucketdiver/bucketdiver/pkg/dto"
	"github.com/bucketdiver/bucketdiver/pkg/session"
)

// Service provides snapshot storage and queries over cataloged objects.
type Service struct {
	db  *sql.DB
	log *slog.Logger
}

// NewService creates a catalog over an initialized database connection.
func NewService(db *sql.DB) *Service {
	return &Service{
		db:  db,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger.
func (s *Service) SetLogger(log *slog.Logger) {
	s.log = log
}

// SaveSnapshot replaces the cataloged object set of the bucket with the
// completed run's records and appends the run statistics. A superseding
// run's snapshot therefore supersedes in the catalog too.
func (s *Service) SaveSnapshot(ctx context.Context, bucket string, records []dto.ObjectRecord, stats session.RunStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			s.log.Error("Snapshot rollback failed", slog.String("error", rollbackErr.Error()))
		}
	}()

	var bucketID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO buckets (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, bucket).Scan(&bucketID)
	if err != nil {
		return fmt.Errorf("failed to upsert bucket: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO listing_runs (bucket_id, pages_processed, total_found, stopped_at_limit)
		VALUES ($1, $2, $3, $4)`,
		bucketID, stats.PagesProcessed, stats.TotalFound, stats.StoppedAtLimit)
	if err != nil {
		return fmt.Errorf("failed to record listing run: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM objects WHERE bucket_id = $1`, bucketID); err != nil {
		return fmt.Errorf("failed to clear previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO objects (bucket_id, key, size, last_modified, etag, storage_class)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare object insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			s.log.Error("Failed to close insert statement", slog.String("error", closeErr.Error()))
		}
	}()

	for _, rec := range records {
		if _, err = stmt.ExecContext(ctx, bucketID, rec.Key, rec.Size, rec.LastModified, rec.ETag, rec.StorageClass); err != nil {
			return fmt.Errorf("failed to insert object %q: %w", rec.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.log.Info("Saved run snapshot",
		slog.String("bucket", bucket),
		slog.Int("objects", len(records)),
		slog.Int("pages", stats.PagesProcessed))
	return nil
}

// CountObjects returns the number of cataloged objects of the bucket.
func (s *Service) CountObjects(ctx context.Context, bucket string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM objects o
		JOIN buckets b ON b.id = o.bucket_id
		WHERE b.name = $1`, bucket).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count objects: %w", err)
	}
	return count, nil
}

// ListObjects returns a page of cataloged objects ordered by key.
func (s *Service) ListObjects(ctx context.Context, bucket string, limit, offset int) ([]dto.ObjectRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.key, o.size, o.last_modified, o.etag, o.storage_class
		FROM objects o
		JOIN buckets b ON b.id = o.bucket_id
		WHERE b.name = $1
		ORDER BY o.key
		LIMIT $2 OFFSET $3`, bucket, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return s.scanObjects(rows)
}

// SearchObjects returns cataloged objects whose key contains the query,
// case-insensitively, ordered by key.
func (s *Service) SearchObjects(ctx context.Context, bucket, query string, limit, offset int) ([]dto.ObjectRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.key, o.size, o.last_modified, o.etag, o.storage_class
		FROM objects o
		JOIN buckets b ON b.id = o.bucket_id
		WHERE b.name = $1 AND o.key ILIKE '%' || $2 || '%'
		ORDER BY o.key
		LIMIT $3 OFFSET $4`, bucket, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search objects: %w", err)
	}
	return s.scanObjects(rows)
}

// LatestRun returns the statistics of the most recent cataloged run.
func (s *Service) LatestRun(ctx context.Context, bucket string) (pagesProcessed, totalFound int, stoppedAtLimit bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT r.pages_processed, r.total_found, r.stopped_at_limit
		FROM listing_runs r
		JOIN buckets b ON b.id = r.bucket_id
		WHERE b.name = $1
		ORDER BY r.completed_at DESC
		LIMIT 1`, bucket).Scan(&pagesProcessed, &totalFound, &stoppedAtLimit)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to load latest run: %w", err)
	}
	return pagesProcessed, totalFound, stoppedAtLimit, nil
}

// scanObjects drains rows into object records.
func (s *Service) scanObjects(rows *sql.Rows) ([]dto.ObjectRecord, error) {
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.Error("Failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var records []dto.ObjectRecord
	for rows.Next() {
		var rec dto.ObjectRecord
		var lastModified sql.NullTime
		var etag, storageClass sql.NullString
		if err := rows.Scan(&rec.Key, &rec.Size, &lastModified, &etag, &storageClass); err != nil {
			return nil, fmt.Errorf("failed to scan object row: %w", err)
		}
		rec.LastModified = lastModified.Time
		rec.ETag = etag.String
		rec.StorageClass = storageClass.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating object rows: %w", err)
	}
	return records, nil
}
