package library

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateTimeline(ctx context.Context, t *TimelineRecord) error
	GetTimeline(ctx context.Context, id string) (*TimelineRecord, error)
	ListTimelines(ctx context.Context) ([]*TimelineRecord, error)
	UpdateTimeline(ctx context.Context, t *TimelineRecord) error
	DeleteTimeline(ctx context.Context, id string) (bool, error)
	CountTimelines(ctx context.Context) (int, error)

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	SetJobTimeline(ctx context.Context, id, timelineID string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const timelineColumns = `id, name, document, source_path, track_count, clip_count, duration_seconds, rate, created_at, updated_at`

func (r *SQLiteRepository) CreateTimeline(ctx context.Context, t *TimelineRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO timelines (`+timelineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Document, nullString(t.SourcePath), t.TrackCount, t.ClipCount,
		t.DurationSeconds, t.Rate, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetTimeline(ctx context.Context, id string) (*TimelineRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+timelineColumns+` FROM timelines WHERE id = ?`, id)
	t, err := scanTimeline(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTimeline(row scanner) (*TimelineRecord, error) {
	var t TimelineRecord
	var sourcePath sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Name, &t.Document, &sourcePath, &t.TrackCount, &t.ClipCount,
		&t.DurationSeconds, &t.Rate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.SourcePath = sourcePath.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &t, nil
}

func (r *SQLiteRepository) ListTimelines(ctx context.Context) ([]*TimelineRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+timelineColumns+` FROM timelines ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timelines []*TimelineRecord
	for rows.Next() {
		t, err := scanTimeline(rows)
		if err != nil {
			return nil, err
		}
		timelines = append(timelines, t)
	}
	return timelines, rows.Err()
}

func (r *SQLiteRepository) UpdateTimeline(ctx context.Context, t *TimelineRecord) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE timelines SET name = ?, document = ?, track_count = ?, clip_count = ?,
			duration_seconds = ?, rate = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.Document, t.TrackCount, t.ClipCount, t.DurationSeconds, t.Rate, formatTime(t.UpdatedAt), t.ID)
	return err
}

// DeleteTimeline reports whether a row was removed.
func (r *SQLiteRepository) DeleteTimeline(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM timelines WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRepository) CountTimelines(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM timelines").Scan(&count)
	return count, err
}

const jobColumns = `id, type, status, path, timeline_id, progress, error, created_at, updated_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Type, j.Status, nullString(j.Path), nullString(j.TimelineID),
		j.Progress, nullString(j.Error),
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func scanJob(row scanner) (*Job, error) {
	var j Job
	var path, timelineID, errMsg sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&j.ID, &j.Type, &j.Status, &path, &timelineID, &j.Progress, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	j.Path = path.String
	j.TimelineID = timelineID.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), formatTime(time.Now()), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, formatTime(time.Now()), id)
	return err
}

func (r *SQLiteRepository) SetJobTimeline(ctx context.Context, id, timelineID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET timeline_id = ?, updated_at = ? WHERE id = ?
	`, nullString(timelineID), formatTime(time.Now()), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
