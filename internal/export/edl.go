package export

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/heimdex/timeline-agent/internal/opentime"
	"github.com/heimdex/timeline-agent/internal/otio"
)

const (
	// DefaultFrameRate is used when neither the options nor the track
	// supply a usable rate.
	DefaultFrameRate = 24.0

	// DefaultReel names the source of events whose media has no usable name.
	DefaultReel = "AX"
)

var ErrNoVideoTrack = errors.New("timeline has no video track")

// EDLOptions controls GenerateEDL. The zero value exports the first video
// track at the track's own rate.
type EDLOptions struct {
	Title string
	// TrackIndex selects a track of the timeline's stack instead of the
	// first video track.
	TrackIndex *int
	FrameRate  float64
	// RecordStart offsets record timecodes. nil uses the timeline's global
	// start time, or zero.
	RecordStart *opentime.RationalTime
}

// EDL is a generated CMX3600 list.
type EDL struct {
	Text      string
	FrameRate float64
	DropFrame bool
	Events    int
	// Skipped names children that produced no event: disabled clips and
	// nested compositions.
	Skipped []string
}

// GenerateEDL writes one video event per enabled clip of a track. Source
// timecodes come from each clip's trimmed range and record timecodes from
// its range in the track, so gaps and transitions shift the record side.
func GenerateEDL(tl *otio.Timeline, opts EDLOptions) (*EDL, error) {
	track, err := selectTrack(tl, opts.TrackIndex)
	if err != nil {
		return nil, err
	}

	rate := opts.FrameRate
	if !(rate > 0) {
		if d, err := track.Duration(); err == nil && d.Rate() > 1 {
			rate = d.Rate()
		} else {
			rate = DefaultFrameRate
		}
	}
	dropFrame := opentime.IsDropFrameRate(rate)

	recordStart := opentime.NewRationalTime(0, rate)
	if opts.RecordStart != nil {
		recordStart = *opts.RecordStart
	} else if g := tl.GlobalStartTime(); g != nil {
		recordStart = *g
	}

	title := Title(opts.Title, TitleLength)
	if title == "" {
		title = Title(tl.Name(), TitleLength)
	}

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if dropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	out := &EDL{FrameRate: rate, DropFrame: dropFrame}
	for i, ch := range track.Children() {
		var clip *otio.Clip
		switch c := ch.(type) {
		case *otio.Clip:
			clip = c
		case *otio.Gap, *otio.Transition:
			continue
		default:
			out.Skipped = append(out.Skipped, describe(ch))
			continue
		}
		if !clip.Enabled() {
			out.Skipped = append(out.Skipped, describe(ch))
			continue
		}

		source, err := clip.TrimmedRange()
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", clip.Name(), err)
		}
		record, err := track.RangeOfChildAtIndex(i)
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", clip.Name(), err)
		}

		tcs, err := timecodes(rate,
			source.StartTime(), source.EndTimeExclusive(),
			recordStart.Add(record.StartTime()), recordStart.Add(record.EndTimeExclusive()))
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", clip.Name(), err)
		}

		out.Events++
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", out.Events, ReelName(clip), "V", tcs[0], tcs[1], tcs[2], tcs[3]),
			fmt.Sprintf("* FROM CLIP NAME:  %s", Title(clip.Name(), 0)),
		)
		if p := MediaPath(clip); p != "" {
			lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", Title(p, 0)))
		}
	}

	lines = append(lines, "")
	out.Text = strings.Join(lines, "\n")
	return out, nil
}

func selectTrack(tl *otio.Timeline, index *int) (*otio.Track, error) {
	if index != nil {
		return tl.GetTrack(*index)
	}
	video := tl.VideoTracks()
	if len(video) == 0 {
		return nil, ErrNoVideoTrack
	}
	return video[0], nil
}

func timecodes(rate float64, times ...opentime.RationalTime) ([]string, error) {
	out := make([]string, len(times))
	for i, t := range times {
		tc, err := t.ToTimecodeAt(rate, opentime.InferFromRate)
		if err != nil {
			return nil, err
		}
		out[i] = tc
	}
	return out, nil
}

func describe(ch otio.Composable) string {
	if ch.Name() == "" {
		return otio.SchemaTag(ch)
	}
	return fmt.Sprintf("%s %q", otio.SchemaTag(ch), ch.Name())
}

// MediaPath is the target of a clip's active external reference, with a
// file:// scheme removed. It is empty for any other reference.
func MediaPath(clip *otio.Clip) string {
	ref, ok := clip.MediaReference().(*otio.ExternalReference)
	if !ok || ref.IsMissingReference() {
		return ""
	}
	target := ref.TargetURL()
	if u, err := url.Parse(target); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return target
}

// ReelName derives an EDL reel from the clip's media file name. See Reel.
func ReelName(clip *otio.Clip) string {
	p := MediaPath(clip)
	if p == "" {
		return DefaultReel
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return Reel(strings.TrimSuffix(base, path.Ext(base)))
}

// WriteFile writes edl into dir as <name>.edl after sanitizing name, and
// returns the path written.
func WriteFile(dir, name string, edl *EDL) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}
	outputPath := filepath.Join(dir, FileName(name)+".edl")
	if err := os.WriteFile(outputPath, []byte(edl.Text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return outputPath, nil
}
