// Package store implements the object store gateway: one paginated
// "list objects" call per invocation against an S3-compatible bucket.
package store

import (
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bucketdiver/bucketdiver/pkg/config"
)

// Service is the S3 gateway of the listing engine.
type Service struct {
	cfg         config.Config
	awsS3Client *s3.Client
	log         *slog.Logger
}

// NewService creates a new gateway over an existing S3 client.
// By default the logger writes to /dev/null.
func NewService(cfg config.Config, s3Client *s3.Client) *Service {
	s := &Service{
		cfg:         cfg,
		awsS3Client: s3Client,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return s
}

// SetLogger sets the logger.
func (s *Service) SetLogger(log *slog.Logger) {
	s.log = log
}

// BucketName returns the bucket this gateway enumerates.
func (s *Service) BucketName() string {
	return s.cfg.S3.Bucket
}
