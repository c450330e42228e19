package rehost

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/townwire/townwire/internal/config"
)

// ObjectStore is the durable public object storage capability. Exists must
// be checked before Upload so that re-hosting the same content is
// at-most-once.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	URL(key string) string
}

// S3Store stores objects in an S3 bucket served through a CDN prefix.
type S3Store struct {
	bucket   string
	cdnBase  string
	uploader *s3manager.Uploader
	svc      *s3.S3
}

// NewS3Store builds an S3-backed object store.
func NewS3Store(cfg config.RehostConfig) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, err
	}

	return &S3Store{
		bucket:   cfg.Bucket,
		cdnBase:  strings.TrimSuffix(cfg.CDNBaseURL, "/"),
		uploader: s3manager.NewUploader(sess),
		svc:      s3.New(sess),
	}, nil
}

// Exists reports whether the key is already stored.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		// HeadObject errors for both "missing" and real failures; treat
		// both as absent and let Upload surface real problems.
		return false, nil
	}
	return true, nil
}

// Upload stores the object publicly readable.
func (s *S3Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		ACL:         aws.String("public-read"),
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return err
}

// URL returns the public CDN URL for a key.
func (s *S3Store) URL(key string) string {
	return s.cdnBase + "/" + key
}

// MemoryStore is an in-memory ObjectStore for tests. It records uploads so
// tests can assert at-most-once storage.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	Uploads int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Exists reports whether a key is stored.
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Upload stores the object bytes and counts the call.
func (m *MemoryStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
	m.Uploads++
	return nil
}

// URL returns a fake public URL for a key.
func (m *MemoryStore) URL(key string) string {
	return "https://img.test/" + key
}
