package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore mirrors the artifact tree into an OSS bucket. Containers are
// directory-marker objects (keys ending in "/"); a container "exists" when a
// listing under its key returns anything.
type OSSStore struct {
	bucket *oss.Bucket
	prefix string
}

func NewOSSStore(endpoint, accessKeyID, accessKeySecret, bucketName, prefix string) (*OSSStore, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("oss.Bucket(%s): %w", bucketName, err)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &OSSStore{bucket: bucket, prefix: prefix}, nil
}

func (s *OSSStore) EnsureContainer(ctx context.Context, parent, name string) (string, error) {
	key := s.containerKey(parent, name)

	lor, err := s.bucket.ListObjects(oss.Prefix(key), oss.MaxKeys(1))
	if err != nil {
		return "", fmt.Errorf("oss list %s: %w", key, err)
	}
	if len(lor.Objects) > 0 {
		return key, nil
	}

	// Not found; create the marker. A concurrent creator may do the same,
	// which is harmless: both markers name the same key.
	if err := s.bucket.PutObject(key, bytes.NewReader(nil), oss.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("oss create container %s: %w", key, err)
	}
	return key, nil
}

func (s *OSSStore) Put(ctx context.Context, container, filename string, data []byte) error {
	key := container + filename
	ct := mime.TypeByExtension(filepath.Ext(filename))
	opts := []oss.Option{oss.WithContext(ctx)}
	if ct != "" {
		opts = append(opts, oss.ContentType(ct))
	}
	if err := s.bucket.PutObject(key, bytes.NewReader(data), opts...); err != nil {
		return fmt.Errorf("oss put %s: %w", key, err)
	}
	return nil
}

func (s *OSSStore) containerKey(parent, name string) string {
	if parent == "" {
		parent = s.prefix
	}
	return parent + name + "/"
}
