package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bucketdiver/bucketdiver/pkg/config"
)

// ErrNoCredentialMethod is returned when the configuration provides no way
// to initialize the AWS config.
var ErrNoCredentialMethod = errors.New("no method to initialize aws.Config")

// NewS3Client builds an S3 client from the service configuration.
//
// Resolution order: explicit endpoint with static credentials (path-style,
// for MinIO and other S3-compatible stores), then SSO/shared profile, then
// the SDK default chain.
func NewS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	awsCfg, err := getAwsConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
			o.UsePathStyle = true
		}
	})
	return client, nil
}

// getAwsConfig returns an aws.Config for the configured credential method.
func getAwsConfig(ctx context.Context, cfg config.Config) (aws.Config, error) {
	if cfg.S3.Endpoint != "" {
		return aws.Config{
			Region: cfg.S3.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.S3.AccessKey,
				cfg.S3.SecretKey,
				"",
			),
		}, nil
	}

	if cfg.S3.SsoAwsProfile != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(
			ctx,
			awsconfig.WithSharedConfigProfile(cfg.S3.SsoAwsProfile),
		)
		if err != nil {
			return awsCfg, fmt.Errorf("error loading SSO profile: %w", err)
		}
		return awsCfg, nil
	}

	if cfg.S3.AccessKey == "" && cfg.S3.SecretKey == "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
		if err != nil {
			return awsCfg, fmt.Errorf("error loading default config: %w", err)
		}
		return awsCfg, nil
	}

	return aws.Config{}, ErrNoCredentialMethod
}
