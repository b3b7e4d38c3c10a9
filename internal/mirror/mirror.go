// Package mirror keeps a copy of the latest daily report in blob storage and
// Postgres, and serves the mirrored reports as rendered pages.
package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/archive"
	"github.com/david-andreasson/novareport/pkg/logger"
	"github.com/david-andreasson/novareport/pkg/summary"
)

// DefaultInterval is how often Run mirrors the latest report.
const DefaultInterval = 15 * time.Minute

// ReportSource fetches the latest published report. A nil report means
// none has been published yet.
type ReportSource interface {
	LatestReport(ctx context.Context) (*api.DailyReport, error)
}

// SyncStatus describes what a Sync did.
type SyncStatus string

const (
	SyncStored    SyncStatus = "stored"
	SyncUnchanged SyncStatus = "unchanged"
	SyncNone      SyncStatus = "none"
)

// SyncResult is the outcome of one Sync.
type SyncResult struct {
	Status SyncStatus `json:"status"`
	Row    *ReportRow `json:"report,omitempty"`
}

// Service mirrors reports from a ReportSource.
type Service struct {
	source  ReportSource
	storage archive.Storage
	repo    Repository
	cache   *ReportCache
	lggr    logger.Logger

	syncMu sync.Mutex
}

// NewService creates a mirror Service. A nil cache is replaced by one sized
// from the environment.
func NewService(source ReportSource, storage archive.Storage, repo Repository, cache *ReportCache, lggr logger.Logger) *Service {
	if cache == nil {
		cache = NewReportCacheFromEnv()
	}
	return &Service{
		source:  source,
		storage: storage,
		repo:    repo,
		cache:   cache,
		lggr:    lggr.Named("mirror"),
	}
}

// SummaryHash is the hex SHA-256 of a report summary.
func SummaryHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func reportDate(r *api.DailyReport) (string, error) {
	t, err := r.Date()
	if err != nil {
		return "", err
	}
	return t.Format(time.DateOnly), nil
}

// Sync fetches the latest report and records it unless its summary is
// unchanged since the last sync for the same date.
func (s *Service) Sync(ctx context.Context) (*SyncResult, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	report, err := s.source.LatestReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest report: %w", err)
	}
	if report == nil {
		s.lggr.Debugw("no report published")
		return &SyncResult{Status: SyncNone}, nil
	}

	date, err := reportDate(report)
	if err != nil {
		return nil, err
	}
	doc := summary.Parse(report.Summary)
	hash := SummaryHash(report.Summary)

	existing, err := s.repo.GetByDate(ctx, date)
	if err != nil && !errors.Is(err, ErrNoRows) {
		return nil, err
	}
	if existing != nil && existing.SummarySHA256 == hash {
		s.lggr.Debugw("report unchanged", "date", date)
		return &SyncResult{Status: SyncUnchanged, Row: existing}, nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	if err := s.storage.PutReport(ctx, date, data); err != nil {
		return nil, fmt.Errorf("archive report %s: %w", date, err)
	}

	row, err := s.repo.Upsert(ctx, &ReportRow{
		ID:            uuid.New().String(),
		ReportDate:    date,
		ReportID:      report.Key(),
		StorageRef:    s.storage.Ref(date),
		SummarySHA256: hash,
		BlockCount:    len(doc.Blocks),
	})
	if err != nil {
		return nil, err
	}

	s.cache.Put(date, &Entry{Row: *row, Report: report, Document: doc})
	s.lggr.Infow("mirrored report", "date", date, "id", row.ID, "blocks", row.BlockCount)
	return &SyncResult{Status: SyncStored, Row: row}, nil
}

// Run syncs immediately and then every interval until ctx is done. Sync
// errors are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.syncAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncAndLog(ctx)
		}
	}
}

func (s *Service) syncAndLog(ctx context.Context) {
	if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
		s.lggr.Errorw("sync failed", "err", err)
	}
}

// Entry returns the report mirrored for date, loading it from the archive
// on a cache miss.
func (s *Service) Entry(ctx context.Context, date string) (*Entry, error) {
	if e := s.cache.Get(date); e != nil {
		return e, nil
	}

	row, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, row)
}

// Latest returns the most recent mirrored report.
func (s *Service) Latest(ctx context.Context) (*Entry, error) {
	row, err := s.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if e := s.cache.Get(row.ReportDate); e != nil {
		return e, nil
	}
	return s.load(ctx, row)
}

// List returns up to limit mirrored rows, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]ReportRow, error) {
	return s.repo.List(ctx, limit)
}

func (s *Service) load(ctx context.Context, row *ReportRow) (*Entry, error) {
	data, err := s.storage.GetReport(ctx, row.ReportDate)
	if err != nil {
		return nil, fmt.Errorf("load archived report %s: %w", row.ReportDate, err)
	}
	var report api.DailyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode archived report %s: %w", row.ReportDate, err)
	}

	e := &Entry{Row: *row, Report: &report, Document: summary.Parse(report.Summary)}
	s.cache.Put(row.ReportDate, e)
	return e, nil
}
