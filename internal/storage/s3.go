package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// S3Service fetches objects from Amazon S3 (or compatible APIs).
type S3Service struct {
	client     *s3.Client
	downloader *manager.Downloader
	logger     *logrus.Entry
}

func NewS3Service(client *s3.Client, logger *logrus.Logger) *S3Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &S3Service{
		client:     client,
		downloader: manager.NewDownloader(client),
		logger:     logger.WithField("component", "storage"),
	}
}

func (s *S3Service) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if strings.TrimSpace(prefix) != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified,
			})
		}
	}
	return objects, nil
}

func (s *S3Service) DownloadPrefix(ctx context.Context, bucket, prefix, localDir string) (int, error) {
	if strings.TrimSpace(localDir) == "" {
		return 0, fmt.Errorf("local directory is required")
	}
	prefix = dirPrefix(prefix)
	objects, err := s.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue // directory marker
		}
		target, err := localPath(localDir, prefix, obj.Key)
		if err != nil {
			return written, err
		}
		if fi, err := os.Stat(target); err == nil && fi.Size() == obj.Size {
			s.logger.WithField("key", obj.Key).Debug("already present, skipping")
			continue
		}
		if err := s.download(ctx, bucket, obj.Key, target); err != nil {
			return written, err
		}
		written++
	}

	s.logger.WithFields(logrus.Fields{
		"bucket":  bucket,
		"prefix":  prefix,
		"objects": len(objects),
		"written": written,
	}).Info("prefix synced")
	return written, nil
}

func (s *S3Service) download(ctx context.Context, bucket, key, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}

	tmp := target + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	_, err = s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("download %s: %w", key, err)
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, closeErr)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("move %s into place: %w", key, err)
	}
	return nil
}

// dirPrefix makes a non-empty prefix end in "/" so that "models/qwen" does
// not match "models/qwen2/...".
func dirPrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// localPath maps an object key to a file under root, relative to prefix.
func localPath(root, prefix, key string) (string, error) {
	prefix = dirPrefix(prefix)
	if !strings.HasPrefix(key, prefix) {
		return "", fmt.Errorf("object key %q is outside prefix %q", key, prefix)
	}
	rel := strings.TrimPrefix(key, prefix)
	if rel == "" {
		return "", fmt.Errorf("object key %q has no name below prefix %q", key, prefix)
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", fmt.Errorf("object key %q escapes the target directory", key)
		}
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

var _ Service = (*S3Service)(nil)
