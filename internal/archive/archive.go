// Package archive stores the raw JSON of fetched daily reports, keyed by
// report date, on the local filesystem, S3 or Google Cloud Storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/david-andreasson/novareport/pkg/config"
)

// ErrNotFound is returned by GetReport when no report is archived for the date.
var ErrNotFound = errors.New("report not archived")

// Storage abstracts blob storage for archived reports.
type Storage interface {
	PutReport(ctx context.Context, date string, data []byte) error
	GetReport(ctx context.Context, date string) ([]byte, error)
	// Ref returns a backend-qualified reference to the report blob.
	Ref(date string) string
}

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg config.ArchiveConfig) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStorage(cfg.Dir), nil
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

// ValidDate reports whether date is a calendar date in YYYY-MM-DD form.
// Dates become object keys, so anything else is rejected.
func ValidDate(date string) bool {
	_, err := time.Parse(time.DateOnly, date)
	return err == nil
}

func key(date string) (string, error) {
	if !ValidDate(date) {
		return "", fmt.Errorf("invalid report date %q", date)
	}
	return "reports/" + date + ".json", nil
}

// LocalStorage implements Storage using the local filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(date string) (string, error) {
	k, err := key(date)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.BaseDir, filepath.FromSlash(k)), nil
}

// PutReport stores a report blob.
func (s *LocalStorage) PutReport(ctx context.Context, date string, data []byte) error {
	path, err := s.path(date)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GetReport retrieves a report blob.
func (s *LocalStorage) GetReport(ctx context.Context, date string) ([]byte, error) {
	path, err := s.path(date)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *LocalStorage) Ref(date string) string {
	path, err := s.path(date)
	if err != nil {
		return ""
	}
	return "file://" + filepath.ToSlash(path)
}
