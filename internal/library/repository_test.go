package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/heimdex/timeline-agent/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := NewRepository(database.Conn())
	return database, repo
}

func TestRepository_TimelineCRUD(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &TimelineRecord{
		ID:              "tl-1",
		Name:            "Cut 1",
		Document:        `{"OTIO_SCHEMA":"Timeline.1"}`,
		SourcePath:      "/inbox/cut1.otio",
		TrackCount:      2,
		ClipCount:       5,
		DurationSeconds: 12.5,
		Rate:            24,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	if err := repo.CreateTimeline(ctx, rec); err != nil {
		t.Fatalf("CreateTimeline() error = %v", err)
	}

	got, err := repo.GetTimeline(ctx, "tl-1")
	if err != nil {
		t.Fatalf("GetTimeline() error = %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("GetTimeline() mismatch (-want +got):\n%s", diff)
	}

	rec.Name = "Cut 2"
	rec.ClipCount = 6
	rec.UpdatedAt = created.Add(time.Hour)
	if err := repo.UpdateTimeline(ctx, rec); err != nil {
		t.Fatalf("UpdateTimeline() error = %v", err)
	}
	got, _ = repo.GetTimeline(ctx, "tl-1")
	if got.Name != "Cut 2" || got.ClipCount != 6 || !got.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Fatalf("GetTimeline() after update = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	n, err := repo.CountTimelines(ctx)
	if err != nil || n != 1 {
		t.Fatalf("CountTimelines() = %d, %v, want 1", n, err)
	}

	removed, err := repo.DeleteTimeline(ctx, "tl-1")
	if err != nil || !removed {
		t.Fatalf("DeleteTimeline() = %v, %v, want true", removed, err)
	}
	removed, err = repo.DeleteTimeline(ctx, "tl-1")
	if err != nil || removed {
		t.Fatalf("second DeleteTimeline() = %v, %v, want false", removed, err)
	}

	got, err = repo.GetTimeline(ctx, "tl-1")
	if err != nil || got != nil {
		t.Fatalf("GetTimeline() after delete = %v, %v, want nil, nil", got, err)
	}
}

func TestRepository_ListTimelinesNewestFirst(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "new"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		err := repo.CreateTimeline(ctx, &TimelineRecord{
			ID: name, Name: name, Document: "{}", CreatedAt: ts, UpdatedAt: ts,
		})
		if err != nil {
			t.Fatalf("CreateTimeline(%s) error = %v", name, err)
		}
	}

	list, err := repo.ListTimelines(ctx)
	if err != nil {
		t.Fatalf("ListTimelines() error = %v", err)
	}
	var names []string
	for _, tl := range list {
		names = append(names, tl.Name)
	}
	if diff := cmp.Diff([]string{"new", "old"}, names); diff != "" {
		t.Fatalf("ListTimelines() order mismatch (-want +got):\n%s", diff)
	}
}

func TestRepository_Jobs(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for _, id := range []string{"job-a", "job-b"} {
		err := repo.CreateJob(ctx, &Job{
			ID: id, Type: JobTypeImport, Status: JobStatusPending,
			Path: "/inbox/" + id + ".otio", CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateJob(%s) error = %v", id, err)
		}
	}

	pending, err := repo.ListPendingJobs(ctx)
	if err != nil {
		t.Fatalf("ListPendingJobs() error = %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "job-a" {
		t.Fatalf("ListPendingJobs() = %v, want job-a first of 2", pending)
	}

	if err := repo.UpdateJobStatus(ctx, "job-a", JobStatusFailed, "bad document"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	if err := repo.SetJobTimeline(ctx, "job-b", "tl-9"); err != nil {
		t.Fatalf("SetJobTimeline() error = %v", err)
	}
	if err := repo.UpdateJobProgress(ctx, "job-b", 100); err != nil {
		t.Fatalf("UpdateJobProgress() error = %v", err)
	}

	a, err := repo.GetJob(ctx, "job-a")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if a.Status != JobStatusFailed || a.Error != "bad document" || a.Path != "/inbox/job-a.otio" {
		t.Fatalf("GetJob(job-a) = %+v", a)
	}
	b, _ := repo.GetJob(ctx, "job-b")
	if b.TimelineID != "tl-9" || b.Progress != 100 || b.Error != "" {
		t.Fatalf("GetJob(job-b) = %+v", b)
	}

	pending, _ = repo.ListPendingJobs(ctx)
	if len(pending) != 1 || pending[0].ID != "job-b" {
		t.Fatalf("ListPendingJobs() after update = %v, want [job-b]", pending)
	}

	all, err := repo.ListJobs(ctx, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListJobs() = %d jobs, %v, want 2", len(all), err)
	}
	limited, _ := repo.ListJobs(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("ListJobs(1) = %d jobs, want 1", len(limited))
	}

	missing, err := repo.GetJob(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("GetJob(nope) = %v, %v, want nil, nil", missing, err)
	}
}

func TestRepository_Config(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	v, err := repo.GetConfig(ctx, "auth_token")
	if err != nil || v != "" {
		t.Fatalf("GetConfig() on empty table = %q, %v, want empty", v, err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "one"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "two"); err != nil {
		t.Fatalf("SetConfig() overwrite error = %v", err)
	}
	v, _ = repo.GetConfig(ctx, "auth_token")
	if v != "two" {
		t.Fatalf("GetConfig() = %q, want two", v)
	}
}
