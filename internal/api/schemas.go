package api

import (
	"encoding/json"
	"time"

	"github.com/heimdex/timeline-agent/internal/library"
	"github.com/heimdex/timeline-agent/internal/opentime"
	"github.com/heimdex/timeline-agent/internal/otio"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State          string       `json:"state"`
	LastError      string       `json:"last_error,omitempty"`
	TimelinesCount int          `json:"timelines_count"`
	JobsRunning    int          `json:"jobs_running"`
	ActiveJob      *JobResponse `json:"active_job,omitempty"`
	InboxDir       string       `json:"inbox_dir,omitempty"`
}

type TimeJSON struct {
	Value float64 `json:"value"`
	Rate  float64 `json:"rate"`
}

type RangeJSON struct {
	StartTime TimeJSON `json:"start_time"`
	Duration  TimeJSON `json:"duration"`
}

// FrameRange is in frames at the rate of the enclosing request.
type FrameRange struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

type CreateTimelineRequest struct {
	Name        string    `json:"name"`
	GlobalStart *TimeJSON `json:"global_start,omitempty"`
}

type TimelineResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SourcePath      string          `json:"source_path,omitempty"`
	TrackCount      int             `json:"track_count"`
	ClipCount       int             `json:"clip_count"`
	DurationSeconds float64         `json:"duration_seconds"`
	Rate            float64         `json:"rate"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
	Document        json.RawMessage `json:"document,omitempty"`
}

type TimelinesResponse struct {
	Timelines []TimelineResponse `json:"timelines"`
}

type AddTrackRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

type TrackResponse struct {
	Index    int       `json:"index"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind,omitempty"`
	Children int       `json:"children"`
	Duration *TimeJSON `json:"duration,omitempty"`
}

type TracksResponse struct {
	Tracks []TrackResponse `json:"tracks"`
}

// AppendRequest adds a clip or a gap to a track. All frame values are at
// Rate; the server default applies when Rate is zero.
type AppendRequest struct {
	Kind      string      `json:"kind,omitempty"`
	Name      string      `json:"name,omitempty"`
	Rate      float64     `json:"rate,omitempty"`
	TargetURL string      `json:"target_url,omitempty"`
	Available *FrameRange `json:"available,omitempty"`
	Source    *FrameRange `json:"source,omitempty"`
	Duration  float64     `json:"duration,omitempty"`
}

type IndexResponse struct {
	Index int `json:"index"`
}

type ChildResponse struct {
	Index     int        `json:"index"`
	Schema    string     `json:"schema"`
	Name      string     `json:"name"`
	Visible   bool       `json:"visible"`
	Range     RangeJSON  `json:"range"`
	Trimmed   *RangeJSON `json:"trimmed_range,omitempty"`
	TargetURL string     `json:"target_url,omitempty"`
}

type ChildrenResponse struct {
	Children []ChildResponse `json:"children"`
}

type TimecodeResponse struct {
	Rate       float64 `json:"rate"`
	Frames     float64 `json:"frames"`
	Seconds    float64 `json:"seconds"`
	Timecode   string  `json:"timecode,omitempty"`
	TimeString string  `json:"time_string"`
	DropFrame  bool    `json:"drop_frame"`
}

type JobResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Path       string `json:"path,omitempty"`
	TimelineID string `json:"timeline_id,omitempty"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ImporterResponse struct {
	Running bool   `json:"running"`
	Paused  bool   `json:"paused"`
	Active  int    `json:"active_jobs"`
	Inbox   string `json:"inbox_dir"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func TimeToJSON(t opentime.RationalTime) TimeJSON {
	return TimeJSON{Value: t.Value(), Rate: t.Rate()}
}

func (t TimeJSON) RationalTime() opentime.RationalTime {
	return opentime.NewRationalTime(t.Value, t.Rate)
}

func RangeToJSON(r opentime.TimeRange) RangeJSON {
	return RangeJSON{StartTime: TimeToJSON(r.StartTime()), Duration: TimeToJSON(r.Duration())}
}

func TimelineToResponse(rec *library.TimelineRecord, withDocument bool) TimelineResponse {
	resp := TimelineResponse{
		ID:              rec.ID,
		Name:            rec.Name,
		SourcePath:      rec.SourcePath,
		TrackCount:      rec.TrackCount,
		ClipCount:       rec.ClipCount,
		DurationSeconds: rec.DurationSeconds,
		Rate:            rec.Rate,
		CreatedAt:       rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       rec.UpdatedAt.Format(time.RFC3339),
	}
	if withDocument {
		resp.Document = json.RawMessage(rec.Document)
	}
	return resp
}

func TrackToResponse(t library.TrackSummary) TrackResponse {
	resp := TrackResponse{
		Index:    t.Index,
		Name:     t.Name,
		Kind:     t.Kind,
		Children: t.Children,
	}
	if t.Duration != nil {
		d := TimeToJSON(*t.Duration)
		resp.Duration = &d
	}
	return resp
}

func ChildToResponse(cl library.ChildLayout) ChildResponse {
	resp := ChildResponse{
		Index:   cl.Index,
		Schema:  otio.SchemaTag(cl.Child),
		Name:    cl.Child.Name(),
		Visible: cl.Child.Visible(),
		Range:   RangeToJSON(cl.Range),
	}
	if cl.Trimmed != nil {
		r := RangeToJSON(*cl.Trimmed)
		resp.Trimmed = &r
	}
	if clip, ok := cl.Child.(*otio.Clip); ok {
		if ref, ok := clip.MediaReference().(*otio.ExternalReference); ok {
			resp.TargetURL = ref.TargetURL()
		}
	}
	return resp
}

func JobToResponse(j *library.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		Type:       j.Type,
		Status:     j.Status,
		Path:       j.Path,
		TimelineID: j.TimelineID,
		Progress:   j.Progress,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  j.UpdatedAt.Format(time.RFC3339),
	}
}
