// Package blob provides the attachment storage boundary backed by an
// S3-compatible object store. Review photos are uploaded here before the
// record that references them is created server-side.
package blob

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
)

// Config holds the object store connection settings.
type Config struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	TimeoutSeconds int
}

// Client wraps a minio client scoped to one bucket.
type Client struct {
	mc     *minio.Client
	bucket string
}

// NewClient creates a new object store client based on the configuration.
func NewClient(cfg Config) (*Client, error) {
	// Minio expects endpoint without scheme
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	// Custom transport with strict timeouts so an offline device fails fast
	// instead of hanging a sync drain.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

// Store uploads a blob to the given path.
func (c *Client) Store(ctx context.Context, path string, reader io.Reader, size int64) error {
	_, err := c.mc.PutObject(ctx, c.bucket, path, reader, size, minio.PutObjectOptions{})
	if err != nil {
		return errors.WrapNetwork("store attachment", err)
	}
	return nil
}

// Remove deletes the blobs at the given paths. Best effort: it keeps going
// on individual failures and returns the first error encountered.
func (c *Client) Remove(ctx context.Context, paths []string) error {
	var firstErr error
	for _, path := range paths {
		if err := c.mc.RemoveObject(ctx, c.bucket, path, minio.RemoveObjectOptions{}); err != nil {
			if firstErr == nil {
				firstErr = errors.WrapNetwork("remove attachment", err)
			}
		}
	}
	return firstErr
}

// PresignedURL returns a temporary access URL for the blob at the given path.
func (c *Client) PresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, path, ttl, nil)
	if err != nil {
		return "", errors.WrapNetwork("presign attachment", err)
	}
	return u.String(), nil
}

// ObjectPath builds the storage path for an attachment:
// {ownerId}/{groupUuid}/{timestamp}-{originalName}.
func ObjectPath(ownerID, groupUUID, originalName string) string {
	return fmt.Sprintf("%s/%s/%d-%s", ownerID, groupUUID, time.Now().Unix(), originalName)
}
