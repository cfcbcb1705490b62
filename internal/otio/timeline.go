package otio

import (
	"fmt"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Timeline is the root of an edit. Its tracks live in a Stack named
// "tracks".
type Timeline struct {
	SerializableObjectWithMetadata
	tracks          *Stack
	globalStartTime *opentime.RationalTime
}

func NewTimeline(name string) *Timeline {
	t := &Timeline{tracks: NewStack("tracks")}
	t.name = name
	return t
}

func (t *Timeline) SchemaName() string { return "Timeline" }
func (t *Timeline) SchemaVersion() int { return 1 }

// Tracks returns the owned Stack. It is never nil.
func (t *Timeline) Tracks() *Stack { return t.tracks }

// SetTracks replaces the Stack. nil installs an empty one.
func (t *Timeline) SetTracks(s *Stack) {
	if s == nil {
		s = NewStack("tracks")
	}
	t.tracks = s
}

func (t *Timeline) AddTrack(track *Track) error {
	return t.tracks.AppendChild(track)
}

func (t *Timeline) InsertTrack(index int, track *Track) error {
	return t.tracks.InsertChild(index, track)
}

func (t *Timeline) RemoveTrack(index int) error {
	return t.tracks.RemoveChild(index)
}

// GetTrack returns the track at index. It fails with TYPE_MISMATCH when
// the stack holds something else there.
func (t *Timeline) GetTrack(index int) (*Track, error) {
	child, err := t.tracks.ChildAt(index)
	if err != nil {
		return nil, err
	}
	track, ok := child.(*Track)
	if !ok {
		return nil, newError(TypeMismatch, fmt.Sprintf("child %d of tracks is %s", index, SchemaTag(child)))
	}
	return track, nil
}

func (t *Timeline) TrackCount() int { return t.tracks.Len() }

func (t *Timeline) AudioTracks() []*Track { return t.tracksOfKind(AudioKind) }
func (t *Timeline) VideoTracks() []*Track { return t.tracksOfKind(VideoKind) }

func (t *Timeline) tracksOfKind(kind string) []*Track {
	var out []*Track
	for _, ch := range t.tracks.children {
		if track, ok := ch.(*Track); ok && track.kind == kind {
			out = append(out, track)
		}
	}
	return out
}

// Duration is the duration of the tracks stack.
func (t *Timeline) Duration() (opentime.RationalTime, error) {
	return t.tracks.Duration()
}

// RangeOfChild is the range of a descendant in timeline time.
func (t *Timeline) RangeOfChild(child Composable) (opentime.TimeRange, error) {
	return t.tracks.RangeOfChild(child)
}

// FindClips returns every clip under the timeline, optionally limited to
// those overlapping searchRange.
func (t *Timeline) FindClips(searchRange *opentime.TimeRange, shallow bool) ([]*Clip, error) {
	return t.tracks.FindClips(searchRange, shallow)
}

func (t *Timeline) GlobalStartTime() *opentime.RationalTime {
	if t.globalStartTime == nil {
		return nil
	}
	g := *t.globalStartTime
	return &g
}

func (t *Timeline) SetGlobalStartTime(g *opentime.RationalTime) {
	if g == nil {
		t.globalStartTime = nil
		return
	}
	cp := *g
	t.globalStartTime = &cp
}

func (t *Timeline) writeTo(w *writer) {
	t.SerializableObjectWithMetadata.writeTo(w)
	w.put("global_start_time", t.globalStartTime)
	w.put("tracks", t.tracks)
}

func (t *Timeline) readFrom(r *reader) error {
	if err := t.SerializableObjectWithMetadata.readFrom(r); err != nil {
		return err
	}
	var err error
	if t.globalStartTime, err = r.readTime("global_start_time"); err != nil {
		return err
	}
	obj, err := r.readObject("tracks")
	if err != nil {
		return err
	}
	if obj == nil {
		t.tracks = NewStack("tracks")
		return nil
	}
	stack, ok := obj.(*Stack)
	if !ok {
		return newError(TypeMismatch, "Timeline: tracks is "+SchemaTag(obj))
	}
	t.tracks = stack
	return nil
}
