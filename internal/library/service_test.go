package library

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/heimdex/timeline-agent/internal/opentime"
	"github.com/heimdex/timeline-agent/internal/otio"
)

func setupService(t *testing.T, opts ...Option) (*Service, Repository) {
	t.Helper()
	_, repo := setupTestDB(t)
	return NewService(repo, nil, opts...), repo
}

func frames(n float64) opentime.RationalTime {
	return opentime.NewRationalTime(n, 24)
}

// sampleDocument is a one-track timeline: a 24 frame clip then a 12 frame
// gap.
func sampleDocument(t *testing.T, name string) []byte {
	t.Helper()
	tl := otio.NewTimeline(name)
	track := otio.NewTrack("V1", otio.VideoKind)
	media := opentime.NewTimeRange(frames(0), frames(100))
	clip := otio.NewClip("shot", otio.NewExternalReference("file:///media/shot.mov", &media), nil)
	src := opentime.NewTimeRange(frames(10), frames(24))
	clip.SetSourceRange(&src)
	if err := track.AppendChild(clip); err != nil {
		t.Fatalf("AppendChild() error = %v", err)
	}
	if err := track.AppendChild(otio.NewGap("", frames(12))); err != nil {
		t.Fatalf("AppendChild() error = %v", err)
	}
	if err := tl.AddTrack(track); err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}
	doc, err := otio.ToJSONString(tl, 4)
	if err != nil {
		t.Fatalf("ToJSONString() error = %v", err)
	}
	return []byte(doc)
}

func TestService_Create(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	start := opentime.NewRationalTime(86400, 24)
	rec, err := svc.Create(ctx, "  Assembly ", &start)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.ID == "" {
		t.Error("rec.ID is empty")
	}
	if rec.Name != "Assembly" {
		t.Errorf("rec.Name = %q, want Assembly", rec.Name)
	}
	if rec.TrackCount != 0 || rec.ClipCount != 0 || rec.DurationSeconds != 0 {
		t.Errorf("rec summary = %+v, want empty", rec)
	}

	tl, err := svc.Load(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	g := tl.GlobalStartTime()
	if g == nil || !g.StrictlyEqual(start) {
		t.Fatalf("GlobalStartTime() = %v, want %v", g, start)
	}

	if _, err := svc.Create(ctx, "   ", nil); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("Create(blank) error = %v, want ErrNameRequired", err)
	}
}

func TestService_Import(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	rec, err := svc.Import(ctx, sampleDocument(t, "Reel 1"), "/inbox/reel1.otio")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if rec.Name != "Reel 1" {
		t.Errorf("Name = %q, want Reel 1", rec.Name)
	}
	if rec.SourcePath != "/inbox/reel1.otio" {
		t.Errorf("SourcePath = %q, want /inbox/reel1.otio", rec.SourcePath)
	}
	if rec.TrackCount != 1 {
		t.Errorf("TrackCount = %d, want 1", rec.TrackCount)
	}
	if rec.ClipCount != 1 {
		t.Errorf("ClipCount = %d, want 1", rec.ClipCount)
	}
	if rec.DurationSeconds != 1.5 {
		t.Errorf("DurationSeconds = %v, want 1.5", rec.DurationSeconds)
	}
	if rec.Rate != 24 {
		t.Errorf("Rate = %v, want 24", rec.Rate)
	}

	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Document != rec.Document || !strings.HasPrefix(got.Document, `{"OTIO_SCHEMA":"Timeline.1"`) {
		t.Fatalf("stored document = %.60s..., want compact Timeline.1", got.Document)
	}
}

func TestService_ImportNamesFromPath(t *testing.T) {
	svc, _ := setupService(t)

	rec, err := svc.Import(context.Background(), sampleDocument(t, ""), "/inbox/Final Cut v3.otio")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if rec.Name != "Final Cut v3" {
		t.Fatalf("Name = %q, want Final Cut v3", rec.Name)
	}
}

func TestService_ImportErrors(t *testing.T) {
	svc, _ := setupService(t, WithMaxDocumentBytes(4096))
	ctx := context.Background()

	tests := []struct {
		name    string
		data    string
		outcome otio.Outcome
		target  error
	}{
		{"not json", "{nope", otio.JSONParseError, nil},
		{"wrong root", `{"OTIO_SCHEMA":"Gap.1","name":"g"}`, otio.TypeMismatch, nil},
		{"unknown schema", `{"OTIO_SCHEMA":"Mystery.1"}`, otio.UnknownSchema, nil},
		{"too large", `{"OTIO_SCHEMA":"Timeline.1","name":"` + strings.Repeat("x", 5000) + `"}`, otio.InternalError, ErrDocumentTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, []byte(tt.data), "")
			if err == nil {
				t.Fatal("Import() error = nil, want error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Fatalf("Import() error = %v, want %v", err, tt.target)
			}
			if got := otio.OutcomeOf(err); got != tt.outcome {
				t.Fatalf("OutcomeOf(Import()) = %v, want %v", got, tt.outcome)
			}
		})
	}

	list, _ := svc.List(ctx)
	if len(list) != 0 {
		t.Fatalf("List() = %d timelines after failed imports, want 0", len(list))
	}
}

func TestService_NotFound(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrTimelineNotFound) {
		t.Errorf("Get() error = %v, want ErrTimelineNotFound", err)
	}
	if _, err := svc.Load(ctx, "missing"); !errors.Is(err, ErrTimelineNotFound) {
		t.Errorf("Load() error = %v, want ErrTimelineNotFound", err)
	}
	if err := svc.Delete(ctx, "missing"); !errors.Is(err, ErrTimelineNotFound) {
		t.Errorf("Delete() error = %v, want ErrTimelineNotFound", err)
	}
	if _, err := svc.AddTrack(ctx, "missing", "V1", ""); !errors.Is(err, ErrTimelineNotFound) {
		t.Errorf("AddTrack() error = %v, want ErrTimelineNotFound", err)
	}
	if _, err := svc.GetJob(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetJob() error = %v, want ErrJobNotFound", err)
	}
	if _, err := svc.Edit(ctx, "missing", func(*otio.Timeline) error { return nil }); !errors.Is(err, ErrTimelineNotFound) {
		t.Errorf("Edit() error = %v, want ErrTimelineNotFound", err)
	}
	if n := heldLocks(svc); n != 0 {
		t.Errorf("edit locks left after missing timelines = %d, want 0", n)
	}
}

func heldLocks(svc *Service) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.locks)
}

func TestService_Delete(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	rec, _ := svc.Create(ctx, "Doomed", nil)
	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, rec.ID); !errors.Is(err, ErrTimelineNotFound) {
		t.Fatalf("Get() after Delete error = %v, want ErrTimelineNotFound", err)
	}
}

func TestService_EditBuildsTracks(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	rec, err := svc.Create(ctx, "Edit", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	v1, err := svc.AddTrack(ctx, rec.ID, "V1", "")
	if err != nil || v1 != 0 {
		t.Fatalf("AddTrack(V1) = %d, %v, want 0", v1, err)
	}
	a1, err := svc.AddTrack(ctx, rec.ID, "A1", otio.AudioKind)
	if err != nil || a1 != 1 {
		t.Fatalf("AddTrack(A1) = %d, %v, want 1", a1, err)
	}

	media := opentime.NewTimeRange(frames(0), frames(48))
	clip := otio.NewClip("A", otio.NewExternalReference("file:///a.mov", &media), nil)
	idx, err := svc.AppendClip(ctx, rec.ID, v1, clip)
	if err != nil || idx != 0 {
		t.Fatalf("AppendClip() = %d, %v, want 0", idx, err)
	}
	idx, err = svc.AppendGap(ctx, rec.ID, v1, frames(24))
	if err != nil || idx != 1 {
		t.Fatalf("AppendGap() = %d, %v, want 1", idx, err)
	}

	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TrackCount != 2 || got.ClipCount != 1 || got.DurationSeconds != 3 {
		t.Fatalf("summary = tracks %d clips %d duration %v, want 2 1 3", got.TrackCount, got.ClipCount, got.DurationSeconds)
	}

	tracks, err := svc.Tracks(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Tracks() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("Tracks() = %d, want 2", len(tracks))
	}
	if tracks[0].Kind != otio.VideoKind || tracks[0].Children != 2 || tracks[0].Duration == nil || tracks[0].Duration.ToSeconds() != 3 {
		t.Errorf("Tracks()[0] = %+v", tracks[0])
	}
	if tracks[1].Name != "A1" || tracks[1].Kind != otio.AudioKind || tracks[1].Children != 0 {
		t.Errorf("Tracks()[1] = %+v", tracks[1])
	}

	if _, err := svc.AppendGap(ctx, rec.ID, 5, frames(1)); otio.OutcomeOf(err) != otio.IllegalIndex {
		t.Fatalf("AppendGap(bad track) error = %v, want ILLEGAL_INDEX", err)
	}
}

func TestService_EditFailureIsNotSaved(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	rec, _ := svc.Create(ctx, "Keep", nil)
	boom := errors.New("boom")
	_, err := svc.Edit(ctx, rec.ID, func(tl *otio.Timeline) error {
		tl.SetName("Changed")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Edit() error = %v, want boom", err)
	}
	got, _ := svc.Get(ctx, rec.ID)
	if got.Name != "Keep" {
		t.Fatalf("Name = %q after failed edit, want Keep", got.Name)
	}
}

func TestService_ConcurrentEdits(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	rec, _ := svc.Create(ctx, "Busy", nil)
	if _, err := svc.AddTrack(ctx, rec.ID, "V1", ""); err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AppendGap(ctx, rec.ID, 0, frames(1)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AppendGap() error = %v", err)
	}
	if n := heldLocks(svc); n != 0 {
		t.Fatalf("edit locks left after concurrent edits = %d, want 0", n)
	}

	layout, err := svc.TrackLayout(ctx, rec.ID, 0)
	if err != nil {
		t.Fatalf("TrackLayout() error = %v", err)
	}
	if len(layout) != n {
		t.Fatalf("TrackLayout() = %d children, want %d", len(layout), n)
	}
}

func TestService_TrackLayoutAndChildAtTime(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	rec, err := svc.Import(ctx, sampleDocument(t, "Layout"), "")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	layout, err := svc.TrackLayout(ctx, rec.ID, 0)
	if err != nil {
		t.Fatalf("TrackLayout() error = %v", err)
	}
	want := []opentime.TimeRange{
		opentime.NewTimeRange(frames(0), frames(24)),
		opentime.NewTimeRange(frames(24), frames(12)),
	}
	if len(layout) != len(want) {
		t.Fatalf("TrackLayout() = %d children, want %d", len(layout), len(want))
	}
	for i, cl := range layout {
		if cl.Index != i || !cl.Range.Equal(want[i]) {
			t.Errorf("TrackLayout()[%d] = %d %v, want %v", i, cl.Index, cl.Range, want[i])
		}
		if cl.Trimmed == nil || !cl.Trimmed.Equal(want[i]) {
			t.Errorf("TrackLayout()[%d].Trimmed = %v, want %v", i, cl.Trimmed, want[i])
		}
	}
	if _, ok := layout[0].Child.(*otio.Clip); !ok {
		t.Errorf("TrackLayout()[0].Child = %T, want *otio.Clip", layout[0].Child)
	}

	tests := []struct {
		at        float64
		wantIndex int
		wantNil   bool
	}{
		{0, 0, false},
		{23, 0, false},
		{24, 1, false},
		{35, 1, false},
		{36, 0, true},
	}
	for _, tt := range tests {
		cl, err := svc.ChildAtTime(ctx, rec.ID, 0, frames(tt.at))
		if err != nil {
			t.Fatalf("ChildAtTime(%v) error = %v", tt.at, err)
		}
		if tt.wantNil {
			if cl != nil {
				t.Errorf("ChildAtTime(%v) = child %d, want nil", tt.at, cl.Index)
			}
			continue
		}
		if cl == nil || cl.Index != tt.wantIndex {
			t.Errorf("ChildAtTime(%v) = %v, want index %d", tt.at, cl, tt.wantIndex)
		}
	}

	if _, err := svc.TrackLayout(ctx, rec.ID, 3); otio.OutcomeOf(err) != otio.IllegalIndex {
		t.Fatalf("TrackLayout(3) error = %v, want ILLEGAL_INDEX", err)
	}
}

func TestService_Clip(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	rec, err := svc.Import(ctx, sampleDocument(t, "Clips"), "")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	clip, err := svc.Clip(ctx, rec.ID, 0, 0)
	if err != nil {
		t.Fatalf("Clip(0, 0) error = %v", err)
	}
	if clip.Name() != "shot" {
		t.Fatalf("Clip(0, 0).Name() = %q, want shot", clip.Name())
	}

	if _, err := svc.Clip(ctx, rec.ID, 0, 1); otio.OutcomeOf(err) != otio.TypeMismatch {
		t.Fatalf("Clip(0, 1) error = %v, want TYPE_MISMATCH", err)
	}
	if _, err := svc.Clip(ctx, rec.ID, 0, 9); otio.OutcomeOf(err) != otio.IllegalIndex {
		t.Fatalf("Clip(0, 9) error = %v, want ILLEGAL_INDEX", err)
	}
	if _, err := svc.Clip(ctx, "nope", 0, 0); !errors.Is(err, ErrTimelineNotFound) {
		t.Fatalf("Clip(nope) error = %v, want ErrTimelineNotFound", err)
	}
}
