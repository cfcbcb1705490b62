package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/timeline-agent/internal/logging"
)

const (
	DoneDirname   = "done"
	FailedDirname = "failed"
)

// Importer polls an inbox directory for timeline documents. Each file gets
// an import job; after the attempt the file moves to done/ or failed/.
type Importer struct {
	service      *Service
	repo         Repository
	logger       *slog.Logger
	inboxDir     string
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool

	// scanMu keeps a manual scan and the poll loop off the same files.
	scanMu sync.Mutex
}

func NewImporter(service *Service, repo Repository, inboxDir string, pollInterval time.Duration, logger *slog.Logger) *Importer {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Importer{
		service:      service,
		repo:         repo,
		logger:       logging.WithComponent(logging.OrDiscard(logger), "importer"),
		inboxDir:     inboxDir,
		pollInterval: pollInterval,
	}
}

// Start runs the poll loop until ctx is done. A second call while running
// returns immediately.
func (im *Importer) Start(ctx context.Context) {
	if im.running.Swap(true) {
		return
	}
	defer im.running.Store(false)

	im.logger.Info("importer started", "inbox", logging.SanitizePath(im.inboxDir), "interval", im.pollInterval)

	ticker := time.NewTicker(im.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			im.logger.Info("importer stopping")
			return
		case <-ticker.C:
			if im.paused.Load() {
				continue
			}
			if _, err := im.ScanOnce(ctx); err != nil {
				im.logger.Error("inbox scan failed", "error", err)
			}
		}
	}
}

func (im *Importer) Pause() {
	im.paused.Store(true)
	im.logger.Info("importer paused")
}

func (im *Importer) Resume() {
	im.paused.Store(false)
	im.logger.Info("importer resumed")
}

func (im *Importer) IsPaused() bool {
	return im.paused.Load()
}

func (im *Importer) IsRunning() bool {
	return im.running.Load()
}

func (im *Importer) InboxDir() string {
	return im.inboxDir
}

// ScanOnce imports every timeline document currently in the inbox in name
// order and returns the jobs it ran.
func (im *Importer) ScanOnce(ctx context.Context) ([]*Job, error) {
	im.scanMu.Lock()
	defer im.scanMu.Unlock()

	for _, dir := range []string{im.inboxDir, im.doneDir(), im.failedDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	entries, err := os.ReadDir(im.inboxDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var jobs []*Job
	for _, e := range entries {
		if ctx.Err() != nil {
			return jobs, ctx.Err()
		}
		if e.IsDir() || !IsTimelineFile(e.Name()) {
			continue
		}
		job, err := im.importFile(ctx, filepath.Join(im.inboxDir, e.Name()))
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (im *Importer) doneDir() string   { return filepath.Join(im.inboxDir, DoneDirname) }
func (im *Importer) failedDir() string { return filepath.Join(im.inboxDir, FailedDirname) }

// importFile records and runs one import job. The returned error covers
// bookkeeping failures only; a bad document fails the job instead.
func (im *Importer) importFile(ctx context.Context, path string) (*Job, error) {
	now := time.Now().UTC().Truncate(time.Second)
	job := &Job{
		ID:        NewID(),
		Type:      JobTypeImport,
		Status:    JobStatusPending,
		Path:      path,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := im.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	logger := logging.WithJobID(im.logger, job.ID)
	im.repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")
	job.Status = JobStatusRunning

	rec, importErr := im.runImport(ctx, path)
	if importErr != nil {
		logger.Warn("import failed", "path", logging.SanitizePath(path), "error", importErr)
		job.Status, job.Error = JobStatusFailed, importErr.Error()
		if err := im.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, job.Error); err != nil {
			return nil, err
		}
		if err := moveInto(im.failedDir(), path); err != nil {
			return nil, err
		}
		return job, nil
	}

	job.TimelineID = rec.ID
	job.Progress = 100
	job.Status = JobStatusCompleted
	if err := im.repo.SetJobTimeline(ctx, job.ID, rec.ID); err != nil {
		return nil, err
	}
	im.repo.UpdateJobProgress(ctx, job.ID, 100)
	if err := im.repo.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, ""); err != nil {
		return nil, err
	}
	if err := moveInto(im.doneDir(), path); err != nil {
		return nil, err
	}
	logger.Info("import completed", "timeline_id", rec.ID, "path", logging.SanitizePath(path))
	return job, nil
}

func (im *Importer) runImport(ctx context.Context, path string) (*TimelineRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if limit := im.service.maxDocumentBytes; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s exceeds the %s limit", ErrDocumentTooLarge,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(limit)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return im.service.Import(ctx, data, path)
}

// moveInto renames path into dir, adding a timestamp when the name is
// already taken.
func moveInto(dir, path string) error {
	base := filepath.Base(path)
	target := filepath.Join(dir, base)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(base)
		target = filepath.Join(dir, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(base, ext), time.Now().UnixNano(), ext))
	}
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("failed to move %s: %w", base, err)
	}
	return nil
}

// IsTimelineFile reports whether name has a timeline document extension.
// Hidden files are skipped.
func IsTimelineFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return TimelineExtensions[strings.ToLower(filepath.Ext(name))]
}

// ActiveJobCount is the number of jobs currently running.
func (im *Importer) ActiveJobCount(ctx context.Context) int {
	jobs, err := im.repo.ListJobs(ctx, 100)
	if err != nil {
		return 0
	}
	count := 0
	for _, j := range jobs {
		if j.Status == JobStatusRunning {
			count++
		}
	}
	return count
}
