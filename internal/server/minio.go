package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// namespaceMarker is the zero-byte object that makes an empty room namespace
// observable. A namespace is live iff its marker exists.
const namespaceMarker = ".room"

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		secure = (u.Scheme == "https")
		return u.Host, secure, nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// minioStore is the MinIO-backed BlobStore. Each room namespace is an object
// key prefix "<roomID>/" inside a single bucket, with a marker object so an
// empty namespace is still observable.
type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore builds a BlobStore from DR_S3_ENDPOINT, DR_S3_ACCESS_KEY,
// DR_S3_SECRET_KEY and DR_BUCKET. The bucket must already exist.
func NewMinioStore() (BlobStore, error) {
	rawEndpoint := os.Getenv("DR_S3_ENDPOINT")
	accessKey := os.Getenv("DR_S3_ACCESS_KEY")
	secretKey := os.Getenv("DR_S3_SECRET_KEY")
	bucket := os.Getenv("DR_BUCKET")

	if rawEndpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(rawEndpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	// Sanity check: bucket must exist.
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", bucket)
	}

	return &minioStore{client: client, bucket: bucket}, nil
}

func (s *minioStore) key(ns, name string) string {
	return ns + "/" + name
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}

func (s *minioStore) CreateNamespace(ctx context.Context, ns string) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(ns, namespaceMarker),
		bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("%w: create namespace %s: %v", ErrStorage, ns, err)
	}
	return nil
}

func (s *minioStore) NamespaceExists(ctx context.Context, ns string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.key(ns, namespaceMarker), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat namespace %s: %v", ErrStorage, ns, err)
	}
	return true, nil
}

func (s *minioStore) RemoveNamespace(ctx context.Context, ns string) error {
	opts := minio.ListObjectsOptions{Prefix: ns + "/", Recursive: true}
	var lastErr error
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			lastErr = obj.Err
			continue
		}
		err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{})
		if err != nil && !isNoSuchKey(err) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%w: purge namespace %s: %v", ErrStorage, ns, lastErr)
	}
	return nil
}

func (s *minioStore) Put(ctx context.Context, ns, name string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(ns, name), r, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", ErrStorage, ns, name, err)
	}
	return nil
}

func (s *minioStore) Get(ctx context.Context, ns, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(ns, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", ErrStorage, ns, name, err)
	}

	// GetObject is lazy; force an early error for a missing object.
	if _, statErr := obj.Stat(); statErr != nil {
		_ = obj.Close()
		if isNoSuchKey(statErr) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: stat %s/%s: %v", ErrStorage, ns, name, statErr)
	}
	return obj, nil
}

func (s *minioStore) Remove(ctx context.Context, ns, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(ns, name), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("%w: remove %s/%s: %v", ErrStorage, ns, name, err)
	}
	return nil
}
