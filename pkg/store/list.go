package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bucketdiver/bucketdiver/pkg/dto"
)

// FetchPage issues a single ListObjectsV2 call and returns one page of
// object metadata. An empty continuationToken starts enumeration from the
// beginning. No retry happens here; failures map to the gateway error
// taxonomy and surface as-is.
func (s *Service) FetchPage(ctx context.Context, continuationToken string) (dto.Page, error) {
	maxKeys := int32(s.cfg.Listing.PageCapacity)
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.cfg.S3.Bucket),
		MaxKeys: aws.Int32(maxKeys),
	}
	if s.cfg.S3.Prefix != "" {
		input.Prefix = aws.String(s.cfg.S3.Prefix)
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	output, err := s.awsS3Client.ListObjectsV2(ctx, input)
	if err != nil {
		return dto.Page{}, wrapError("FetchPage", s.cfg.S3.Bucket, err)
	}

	records := make([]dto.ObjectRecord, 0, len(output.Contents))
	for _, obj := range output.Contents {
		records = append(records, dto.ObjectRecord{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         cleanETag(aws.ToString(obj.ETag)),
			StorageClass: storageClassOrDefault(string(obj.StorageClass)),
		})
	}

	page := dto.Page{
		Records: records,
		HasMore: aws.ToBool(output.IsTruncated),
	}
	if output.NextContinuationToken != nil {
		page.NextToken = *output.NextContinuationToken
	}

	s.log.Debug("FetchPage",
		slog.Int("records", len(records)),
		slog.Bool("hasMore", page.HasMore))
	return page, nil
}

// ListBuckets returns the buckets accessible with the current credentials.
func (s *Service) ListBuckets(ctx context.Context) ([]dto.Bucket, error) {
	output, err := s.awsS3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		s.log.Error("Failed to list buckets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	buckets := make([]dto.Bucket, 0, len(output.Buckets))
	for _, bucket := range output.Buckets {
		buckets = append(buckets, dto.Bucket{
			Name:         aws.ToString(bucket.Name),
			CreationDate: aws.ToTime(bucket.CreationDate),
		})
	}

	s.log.Debug("Listed buckets", slog.Int("count", len(buckets)))
	return buckets, nil
}

// cleanETag removes the surrounding quotes S3 puts on ETag values.
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// storageClassOrDefault normalizes a missing storage class to STANDARD.
func storageClassOrDefault(class string) string {
	if class == "" {
		return "STANDARD"
	}
	return class
}
