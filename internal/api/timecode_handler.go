package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/heimdex/timeline-agent/internal/opentime"
)

// Exactly one of timecode, frames, seconds or time is allowed. time is a
// timecode when it contains a divider and a frame count otherwise.
func parseTimeQuery(q url.Values, defaultRate float64) (opentime.RationalTime, float64, error) {
	rate := defaultRate
	if v := q.Get("rate"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f > 0) {
			return opentime.RationalTime{}, 0, fmt.Errorf("invalid rate %q", v)
		}
		rate = f
	}

	var given []string
	for _, key := range []string{"timecode", "frames", "seconds", "time"} {
		if q.Has(key) {
			given = append(given, key)
		}
	}
	if len(given) != 1 {
		return opentime.RationalTime{}, 0, errors.New("exactly one of timecode, frames, seconds or time is required")
	}

	key := given[0]
	value := strings.TrimSpace(q.Get(key))
	if key == "time" {
		if strings.ContainsAny(value, ":;") {
			key = "timecode"
		} else {
			key = "frames"
		}
	}

	switch key {
	case "timecode":
		t, err := opentime.FromTimecode(value, rate)
		if err != nil {
			return opentime.RationalTime{}, 0, err
		}
		return t, rate, nil
	case "frames":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return opentime.RationalTime{}, 0, fmt.Errorf("invalid frame count %q", value)
		}
		return opentime.FromFrames(f, rate), rate, nil
	default:
		s, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return opentime.RationalTime{}, 0, fmt.Errorf("invalid seconds %q", value)
		}
		return opentime.FromSecondsRate(s, rate), rate, nil
	}
}

func timecodeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, rate, err := parseTimeQuery(r.URL.Query(), cfg.DefaultRate)
		if err != nil {
			if errors.Is(err, opentime.ErrInvalidTimecode) {
				WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TIMECODE")
				return
			}
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		resp := TimecodeResponse{
			Rate:       rate,
			Frames:     t.Value(),
			Seconds:    t.ToSeconds(),
			TimeString: t.ToTimeString(),
			DropFrame:  opentime.IsDropFrameRate(rate),
		}
		if opentime.IsValidTimecodeRate(rate) && t.Value() >= 0 {
			tc, err := t.ToTimecodeAt(rate, opentime.InferFromRate)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TIMECODE")
				return
			}
			resp.Timecode = tc
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
