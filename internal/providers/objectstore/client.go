// Package objectstore uploads raw media to the content store and derives
// rendition URLs for transformed variants.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"chainpost/internal/domain"
	"chainpost/internal/storage"
)

// Options controls how the object store client is configured. When Endpoint is
// empty the client falls back to the local FileStore, which keeps development
// and CI environments working without an S3 service.
type Options struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	CDNBaseURL string
	FileStore  *storage.FileStore
}

// Client is the object store adapter. Uploads return a stable storage key;
// rendition URLs are derived deterministically from that key, so resized and
// compressed variants never require a second round trip.
type Client struct {
	s3      *minio.Client
	bucket  string
	cdnBase string
	files   *storage.FileStore
}

// New constructs the client. Exactly one backend is active: S3 when an
// endpoint is configured, the local FileStore otherwise.
func New(opts Options) (*Client, error) {
	cdnBase := strings.TrimRight(opts.CDNBaseURL, "/")
	if cdnBase == "" {
		return nil, errors.New("objectstore: cdn base url is required")
	}
	if opts.Endpoint == "" {
		if opts.FileStore == nil {
			return nil, errors.New("objectstore: either an endpoint or a file store is required")
		}
		return &Client{cdnBase: cdnBase, files: opts.FileStore}, nil
	}
	s3, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: init client: %w", err)
	}
	return &Client{s3: s3, bucket: opts.Bucket, cdnBase: cdnBase}, nil
}

// Upload stores data under key and returns the canonical storage key.
// Transport failures map to domain.ErrUpstreamUnavailable so callers never see
// raw SDK errors.
func (c *Client) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrInvalidInput
	}
	if c.s3 == nil {
		saved, err := c.files.Write(ctx, key, data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		return saved, nil
	}
	_, err := c.s3.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return key, nil
}

// SourceURL returns the untransformed URL for a stored object.
func (c *Client) SourceURL(key string) string {
	return c.cdnBase + "/" + strings.TrimLeft(key, "/")
}

// ResizedURL derives the CDN URL serving the object resized to width x height.
// The derivation is pure: the same key and dimensions always yield the same URL.
func (c *Client) ResizedURL(key string, width, height int) string {
	return fmt.Sprintf("%s/w_%d,h_%d/%s", c.cdnBase, width, height, strings.TrimLeft(key, "/"))
}

// CompressedURL derives the CDN URL serving the bandwidth-optimized rendition.
func (c *Client) CompressedURL(key string) string {
	return fmt.Sprintf("%s/q_auto/%s", c.cdnBase, strings.TrimLeft(key, "/"))
}
