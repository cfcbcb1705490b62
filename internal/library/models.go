package library

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TimelineRecord is a stored timeline document plus the summary columns
// computed from it on every save.
type TimelineRecord struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Document        string    `json:"-"`
	SourcePath      string    `json:"source_path,omitempty"`
	TrackCount      int       `json:"track_count"`
	ClipCount       int       `json:"clip_count"`
	DurationSeconds float64   `json:"duration_seconds"`
	Rate            float64   `json:"rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const (
	JobTypeImport = "import"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

type Job struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Path       string    `json:"path,omitempty"`
	TimelineID string    `json:"timeline_id,omitempty"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrTimelineNotFound = errors.New("timeline not found")
	ErrJobNotFound      = errors.New("job not found")
	ErrDocumentTooLarge = errors.New("timeline document too large")
)

// TimelineExtensions are the inbox file suffixes picked up for import.
var TimelineExtensions = map[string]bool{
	".otio": true,
	".json": true,
}

func NewID() string {
	return uuid.NewString()
}

// Keys of the config table.
const (
	ConfigAuthToken = "auth_token"
	ConfigDeviceID  = "device_id"
)
