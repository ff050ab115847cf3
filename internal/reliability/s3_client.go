// Package reliability provides long-term job archiving and database
// maintenance services.
package reliability

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/quantalab/quanta/internal/config"
)

// S3Client wraps an S3-compatible object store (MinIO, R2, AWS).
type S3Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	log      zerolog.Logger
}

// ObjectInfo describes a stored archive object.
type ObjectInfo struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
}

// NewS3Client creates a client for the configured archive endpoint.
func NewS3Client(cfg *config.ArchiveConfig, log zerolog.Logger) (*S3Client, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("archive storage is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Client{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		log:      log.With().Str("service", "s3_client").Logger(),
	}, nil
}

// Upload uploads an object to the archive bucket.
func (c *S3Client) Upload(ctx context.Context, key string, body io.Reader) error {
	startTime := time.Now()

	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	c.log.Info().
		Str("key", key).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Upload completed")

	return nil
}

// List returns objects in the archive bucket matching the given prefix.
func (c *S3Client) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, objectInfoFrom(obj))
		}
	}

	return objects, nil
}

// Delete removes an object from the archive bucket.
func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func objectInfoFrom(obj types.Object) ObjectInfo {
	info := ObjectInfo{}
	if obj.Key != nil {
		info.Key = *obj.Key
	}
	if obj.Size != nil {
		info.SizeBytes = *obj.Size
	}
	if obj.LastModified != nil {
		info.LastModified = *obj.LastModified
	}
	return info
}
