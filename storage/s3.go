package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/namespace-registry/interfaces"
)

// S3Config describes an S3 bucket location. Endpoint is set for S3-compatible
// stores and switches the client to path-style addressing.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Backend stores snapshots as private objects under <prefix>/<type>/<id>.
type S3Backend struct {
	client      *s3.S3
	bucket      string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates an S3 backend. Without static keys the default AWS
// credential chain is used.
func NewS3Backend(cfg S3Config, log *slog.Logger) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: missing S3 bucket", interfaces.ErrInvalidLocationURI)
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	query := url.Values{}
	query.Set("region", cfg.Region)
	if cfg.Endpoint != "" {
		query.Set("endpoint", cfg.Endpoint)
	}
	prefix := strings.Trim(cfg.Prefix, "/")

	return &S3Backend{
		client:      s3.New(sess),
		bucket:      cfg.Bucket,
		prefix:      prefix,
		log:         log,
		locationURI: fmt.Sprintf("s3://%s/%s?%s", cfg.Bucket, prefix, query.Encode()),
	}, nil
}

// Fetch maps NoSuchKey and 404 responses to ErrContentNotFound.
func (b *S3Backend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	key, err := b.objectKey(id, contentType)
	if err != nil {
		return nil, err
	}

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			b.log.Debug("Content not found in S3", "bucket", b.bucket, "key", key)
			return nil, interfaces.ErrContentNotFound
		}
		b.log.Error("Failed to get object from S3", "bucket", b.bucket, "key", key, "err", err)
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Fetched content from S3",
		slog.String("bucket", b.bucket),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

func (b *S3Backend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	key, err := b.objectKey(id, contentType)
	if err != nil {
		return interfaces.ContentID{}, err
	}

	_, err = b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]*string{
			"Content-Kind": aws.String(contentType.String()),
		},
	})
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored content in S3", "bucket", b.bucket, "key", key, "size", len(data))
	return id, nil
}

// Available heads the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable", "bucket", b.bucket, "err", err)
		return false
	}
	return true
}

func (b *S3Backend) Name() string {
	return "s3"
}

func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

func (b *S3Backend) objectKey(id interfaces.ContentID, contentType interfaces.ContentType) (string, error) {
	dir, err := typeDir(contentType)
	if err != nil {
		return "", err
	}
	return path.Join(b.prefix, dir, id.String()), nil
}

func isS3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == 404 {
		return true
	}
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey
}
