package objectstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/common"
)

// Client stores gzipped crawl artifacts in S3-compatible object storage
// (R2, MinIO, S3). Bodies are compressed on upload and tagged with
// Content-Encoding gzip.
type Client struct {
	s3     *s3.Client
	bucket string
	logger arbor.ILogger
}

func NewClient(cfg common.ObjectStoreConfig, logger arbor.ILogger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load object store config: %w", err)
	}

	// Custom endpoint and path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("endpoint", cfg.Endpoint).
		Msg("Object store client initialized")

	return &Client{
		s3:     client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

func (c *Client) UploadHTML(ctx context.Context, key string, body []byte) error {
	return c.upload(ctx, key, body, "text/html")
}

func (c *Client) UploadJSON(ctx context.Context, key string, body []byte) error {
	return c.upload(ctx, key, body, "application/json")
}

func (c *Client) UploadMarkdown(ctx context.Context, key string, body []byte) error {
	return c.upload(ctx, key, body, "text/markdown")
}

func (c *Client) upload(ctx context.Context, key string, body []byte, contentType string) error {
	compressed, err := gzipBytes(body)
	if err != nil {
		return fmt.Errorf("compress %s: %w", key, err)
	}

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(compressed),
		ContentType:     aws.String(contentType),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	c.logger.Debug().
		Str("key", key).
		Int("raw_bytes", len(body)).
		Int("stored_bytes", len(compressed)).
		Msg("Uploaded artifact")

	return nil
}

func gzipBytes(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(body); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
