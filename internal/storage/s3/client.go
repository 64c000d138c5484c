// Package s3 provides the direct object-storage client used by the
// reconciliation fallback. It covers exactly the capability the core needs:
// put bytes at a key with metadata, no filesystem mount required.
package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	perrors "github.com/persistfs/persistfs/pkg/errors"
)

// Config represents the object client configuration.
type Config struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Client is a thin wrapper over the AWS SDK S3 client scoped to one bucket.
type Client struct {
	api    *awss3.Client
	bucket string
	logger *slog.Logger
}

// NewClient creates a client for the configured bucket. Explicit credentials
// take precedence; otherwise the SDK's default chain resolves ambient
// credentials (environment, shared config, instance role).
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, perrors.NewError(perrors.ErrCodeInvalidConfig, "bucket name cannot be empty").
			WithComponent("storage")
	}
	if logger == nil {
		logger = slog.Default()
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.ErrCodeInvalidConfig, "failed to load storage credentials").
			WithComponent("storage")
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{api: api, bucket: cfg.Bucket, logger: logger}, nil
}

// Bucket returns the bucket this client is scoped to.
func (c *Client) Bucket() string {
	return c.bucket
}

// PutObject stores data at key with the given metadata.
func (c *Client) PutObject(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	start := time.Now()

	input := &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(detectContentType(key)),
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		c.logger.Warn("put object failed", "key", key, "error", err)
		return perrors.Wrap(err, perrors.ErrCodeStorageWrite,
			fmt.Sprintf("failed to put object %s", key)).
			WithComponent("storage").WithOperation("put")
	}

	c.logger.Debug("put object", "key", key, "bytes", len(data), "elapsed", time.Since(start))
	return nil
}

// BucketExists reports whether the configured bucket exists and is
// accessible.
func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	_, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if stderrors.As(err, &notFound) {
			return false, nil
		}
		return false, perrors.Wrap(err, perrors.ErrCodeBucketNotFound,
			fmt.Sprintf("failed to check bucket %s", c.bucket)).
			WithComponent("storage")
	}
	return true, nil
}

func detectContentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".tar.gz"), strings.HasSuffix(key, ".tgz"):
		return "application/gzip"
	case strings.HasSuffix(key, ".tar"):
		return "application/x-tar"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".txt"), strings.HasSuffix(key, ".log"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
