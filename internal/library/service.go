package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/timeline-agent/internal/logging"
	"github.com/heimdex/timeline-agent/internal/opentime"
	"github.com/heimdex/timeline-agent/internal/otio"
)

var ErrNameRequired = errors.New("timeline name is required")

type TimelineService interface {
	Create(ctx context.Context, name string, globalStart *opentime.RationalTime) (*TimelineRecord, error)
	Import(ctx context.Context, data []byte, sourcePath string) (*TimelineRecord, error)
	Get(ctx context.Context, id string) (*TimelineRecord, error)
	Load(ctx context.Context, id string) (*otio.Timeline, error)
	List(ctx context.Context) ([]*TimelineRecord, error)
	Delete(ctx context.Context, id string) error
	Edit(ctx context.Context, id string, fn func(*otio.Timeline) error) (*TimelineRecord, error)
	AddTrack(ctx context.Context, id, name, kind string) (int, error)
	AppendClip(ctx context.Context, id string, trackIndex int, clip *otio.Clip) (int, error)
	AppendGap(ctx context.Context, id string, trackIndex int, duration opentime.RationalTime) (int, error)
	Tracks(ctx context.Context, id string) ([]TrackSummary, error)
	TrackLayout(ctx context.Context, id string, trackIndex int) ([]ChildLayout, error)
	ChildAtTime(ctx context.Context, id string, trackIndex int, t opentime.RationalTime) (*ChildLayout, error)
	Clip(ctx context.Context, id string, trackIndex, childIndex int) (*otio.Clip, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
}

type TrackSummary struct {
	Index    int
	Name     string
	Kind     string
	Children int
	Duration *opentime.RationalTime
}

type ChildLayout struct {
	Index   int
	Child   otio.Composable
	Range   opentime.TimeRange
	Trimmed *opentime.TimeRange
}

type Service struct {
	repo             Repository
	logger           *slog.Logger
	maxDocumentBytes int64

	mu    sync.Mutex
	locks map[string]*editLock
}

type editLock struct {
	sync.Mutex
	refs int
}

type Option func(*Service)

// WithMaxDocumentBytes rejects imported documents larger than n bytes.
// Zero disables the check.
func WithMaxDocumentBytes(n int64) Option {
	return func(s *Service) { s.maxDocumentBytes = n }
}

func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logging.OrDiscard(logger),
		locks:  make(map[string]*editLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &editLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Service) Create(ctx context.Context, name string, globalStart *opentime.RationalTime) (*TimelineRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	tl := otio.NewTimeline(name)
	tl.SetGlobalStartTime(globalStart)

	rec, err := s.insert(ctx, tl, "")
	if err != nil {
		return nil, err
	}
	s.logger.Info("timeline created", "timeline_id", rec.ID, "name", rec.Name)
	return rec, nil
}

// sourcePath also names an unnamed timeline.
func (s *Service) Import(ctx context.Context, data []byte, sourcePath string) (*TimelineRecord, error) {
	if s.maxDocumentBytes > 0 && int64(len(data)) > s.maxDocumentBytes {
		return nil, fmt.Errorf("%w: %s exceeds the %s limit", ErrDocumentTooLarge,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(s.maxDocumentBytes)))
	}

	tl, err := otio.FromJSONStringAs[*otio.Timeline](string(data))
	if err != nil {
		return nil, fmt.Errorf("invalid timeline document: %w", err)
	}
	if strings.TrimSpace(tl.Name()) == "" {
		tl.SetName(nameFromPath(sourcePath))
	}

	rec, err := s.insert(ctx, tl, sourcePath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("timeline imported",
		"timeline_id", rec.ID,
		"name", rec.Name,
		"size", humanize.Bytes(uint64(len(data))),
		"tracks", rec.TrackCount,
		"clips", rec.ClipCount,
		"path", logging.SanitizePath(sourcePath))
	return rec, nil
}

func nameFromPath(path string) string {
	if path == "" {
		return "Untitled"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Service) insert(ctx context.Context, tl *otio.Timeline, sourcePath string) (*TimelineRecord, error) {
	now := time.Now().UTC().Truncate(time.Second)
	rec := &TimelineRecord{
		ID:         NewID(),
		SourcePath: sourcePath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.fill(rec, tl); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTimeline(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store timeline: %w", err)
	}
	return rec, nil
}

func (s *Service) fill(rec *TimelineRecord, tl *otio.Timeline) error {
	doc, err := otio.ToJSONString(tl, 0)
	if err != nil {
		return fmt.Errorf("failed to serialize timeline: %w", err)
	}
	rec.Name = tl.Name()
	rec.Document = doc
	rec.TrackCount = tl.TrackCount()

	clips, err := tl.FindClips(nil, false)
	if err != nil {
		return fmt.Errorf("failed to count clips: %w", err)
	}
	rec.ClipCount = len(clips)

	rec.DurationSeconds, rec.Rate = 0, 0
	if d, err := tl.Duration(); err == nil {
		rec.DurationSeconds = d.ToSeconds()
		rec.Rate = d.Rate()
	} else {
		s.logger.Debug("timeline duration unavailable", "timeline_id", rec.ID, "error", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*TimelineRecord, error) {
	rec, err := s.repo.GetTimeline(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrTimelineNotFound
	}
	return rec, nil
}

// Load decodes a stored timeline. The result is a private copy; changes
// to it are not saved.
func (s *Service) Load(ctx context.Context, id string) (*otio.Timeline, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func decode(rec *TimelineRecord) (*otio.Timeline, error) {
	tl, err := otio.FromJSONStringAs[*otio.Timeline](rec.Document)
	if err != nil {
		return nil, fmt.Errorf("stored timeline %s is corrupt: %w", rec.ID, err)
	}
	return tl, nil
}

func (s *Service) List(ctx context.Context) ([]*TimelineRecord, error) {
	return s.repo.ListTimelines(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	removed, err := s.repo.DeleteTimeline(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrTimelineNotFound
	}

	s.logger.Info("timeline deleted", "timeline_id", id)
	return nil
}

// Edit loads a timeline, applies fn and saves the result. fn runs with the
// timeline's edit lock held; nothing is saved when it fails.
func (s *Service) Edit(ctx context.Context, id string, fn func(*otio.Timeline) error) (*TimelineRecord, error) {
	unlock := s.lock(id)
	defer unlock()

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tl, err := decode(rec)
	if err != nil {
		return nil, err
	}
	if err := fn(tl); err != nil {
		return nil, err
	}

	if err := s.fill(rec, tl); err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	if err := s.repo.UpdateTimeline(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store timeline: %w", err)
	}
	logging.WithTimelineID(s.logger, id).Debug("timeline saved", "tracks", rec.TrackCount, "clips", rec.ClipCount)
	return rec, nil
}

func (s *Service) AddTrack(ctx context.Context, id, name, kind string) (int, error) {
	if kind == "" {
		kind = otio.VideoKind
	}
	index := -1
	_, err := s.Edit(ctx, id, func(tl *otio.Timeline) error {
		if err := tl.AddTrack(otio.NewTrack(name, kind)); err != nil {
			return err
		}
		index = tl.TrackCount() - 1
		return nil
	})
	return index, err
}

func (s *Service) AppendClip(ctx context.Context, id string, trackIndex int, clip *otio.Clip) (int, error) {
	return s.appendChild(ctx, id, trackIndex, clip)
}

func (s *Service) AppendGap(ctx context.Context, id string, trackIndex int, duration opentime.RationalTime) (int, error) {
	return s.appendChild(ctx, id, trackIndex, otio.NewGap("", duration))
}

func (s *Service) appendChild(ctx context.Context, id string, trackIndex int, child otio.Composable) (int, error) {
	index := -1
	_, err := s.Edit(ctx, id, func(tl *otio.Timeline) error {
		track, err := tl.GetTrack(trackIndex)
		if err != nil {
			return err
		}
		if err := track.AppendChild(child); err != nil {
			return err
		}
		index = track.Len() - 1
		return nil
	})
	return index, err
}

func (s *Service) Tracks(ctx context.Context, id string) ([]TrackSummary, error) {
	tl, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]TrackSummary, 0, tl.TrackCount())
	for i, ch := range tl.Tracks().Children() {
		sum := TrackSummary{Index: i, Name: ch.Name()}
		if track, ok := ch.(*otio.Track); ok {
			sum.Kind = track.Kind()
			sum.Children = track.Len()
		}
		if d, err := ch.Duration(); err == nil {
			sum.Duration = &d
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *Service) TrackLayout(ctx context.Context, id string, trackIndex int) ([]ChildLayout, error) {
	tl, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	track, err := tl.GetTrack(trackIndex)
	if err != nil {
		return nil, err
	}

	children := track.Children()
	out := make([]ChildLayout, 0, len(children))
	for i, ch := range children {
		cl, err := layoutOf(track, i, ch)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, nil
}

// ChildAtTime returns the first direct child of a track covering t, or nil
// when t falls outside every child.
func (s *Service) ChildAtTime(ctx context.Context, id string, trackIndex int, t opentime.RationalTime) (*ChildLayout, error) {
	tl, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	track, err := tl.GetTrack(trackIndex)
	if err != nil {
		return nil, err
	}

	ch, err := track.ChildAtTime(t, true)
	if err != nil || ch == nil {
		return nil, err
	}
	idx, err := track.IndexOfChild(ch)
	if err != nil {
		return nil, err
	}
	cl, err := layoutOf(track, idx, ch)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

func (s *Service) Clip(ctx context.Context, id string, trackIndex, childIndex int) (*otio.Clip, error) {
	tl, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	track, err := tl.GetTrack(trackIndex)
	if err != nil {
		return nil, err
	}
	ch, err := track.ChildAt(childIndex)
	if err != nil {
		return nil, err
	}
	clip, ok := ch.(*otio.Clip)
	if !ok {
		return nil, fmt.Errorf("%w: child %d is a %s", otio.ErrTypeMismatch, childIndex, otio.SchemaTag(ch))
	}
	return clip, nil
}

func layoutOf(track *otio.Track, index int, ch otio.Composable) (ChildLayout, error) {
	r, err := track.RangeOfChildAtIndex(index)
	if err != nil {
		return ChildLayout{}, err
	}
	cl := ChildLayout{Index: index, Child: ch, Range: r}
	if trimmed, ok := track.TrimChildRange(r); ok {
		cl.Trimmed = &trimmed
	}
	return cl, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}
