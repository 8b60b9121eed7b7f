package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service reads model artifacts from remote object storage.
type Service interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	// DownloadPrefix mirrors every object under prefix into localDir and
	// returns the number of files written.
	DownloadPrefix(ctx context.Context, bucket, prefix, localDir string) (int, error)
}

// ParseS3URI splits s3://bucket/prefix into its bucket and key prefix.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return "", "", fmt.Errorf("parse s3 uri: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("unsupported scheme %q, want s3", u.Scheme)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("s3 uri %q has no bucket", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
