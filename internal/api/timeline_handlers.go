package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/timeline-agent/internal/logging"
	"github.com/heimdex/timeline-agent/internal/media"
	"github.com/heimdex/timeline-agent/internal/opentime"
	"github.com/heimdex/timeline-agent/internal/otio"
)

func listTimelinesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := cfg.Service.List(r.Context())
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := TimelinesResponse{Timelines: make([]TimelineResponse, len(records))}
		for i, rec := range records {
			resp.Timelines[i] = TimelineToResponse(rec, false)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// createTimelineHandler accepts either a serialized Timeline, recognized by
// its OTIO_SCHEMA key, or a CreateTimelineRequest for an empty one.
func createTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := readBody(w, r, cfg.MaxBodyBytes)
		if !ok {
			return
		}

		var probe struct {
			Schema string `json:"OTIO_SCHEMA"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if probe.Schema != "" {
			rec, err := cfg.Service.Import(r.Context(), data, "")
			if err != nil {
				writeServiceError(w, r, cfg.Logger, err)
				return
			}
			WriteJSON(w, http.StatusCreated, TimelineToResponse(rec, false))
			return
		}

		var req CreateTimelineRequest
		if err := json.Unmarshal(data, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		var globalStart *opentime.RationalTime
		if req.GlobalStart != nil {
			if !(req.GlobalStart.Rate > 0) {
				WriteError(w, http.StatusBadRequest, "global_start.rate must be positive", "BAD_REQUEST")
				return
			}
			t := req.GlobalStart.RationalTime()
			globalStart = &t
		}

		rec, err := cfg.Service.Create(r.Context(), req.Name, globalStart)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, TimelineToResponse(rec, false))
	}
}

func getTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := cfg.Service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, TimelineToResponse(rec, true))
	}
}

func deleteTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listTracksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := cfg.Service.Tracks(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := TracksResponse{Tracks: make([]TrackResponse, len(tracks))}
		for i, t := range tracks {
			resp.Tracks[i] = TrackToResponse(t)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func addTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddTrackRequest
		if !decodeBody(w, r, cfg.MaxBodyBytes, &req) {
			return
		}

		index, err := cfg.Service.AddTrack(r.Context(), chi.URLParam(r, "id"), req.Name, req.Kind)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, IndexResponse{Index: index})
	}
}

func trackIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "track index must be an integer", "BAD_REQUEST")
		return 0, false
	}
	return index, true
}

func appendHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := trackIndex(w, r)
		if !ok {
			return
		}
		var req AppendRequest
		if !decodeBody(w, r, cfg.MaxBodyBytes, &req) {
			return
		}

		rate := req.Rate
		if rate == 0 {
			rate = cfg.DefaultRate
		}
		if !(rate > 0) {
			WriteError(w, http.StatusBadRequest, "rate must be positive", "BAD_REQUEST")
			return
		}

		ctx := r.Context()
		id := chi.URLParam(r, "id")
		var (
			childIndex int
			err        error
		)
		switch strings.ToLower(req.Kind) {
		case "gap":
			if !(req.Duration > 0) {
				WriteError(w, http.StatusBadRequest, "gap duration must be positive", "BAD_REQUEST")
				return
			}
			childIndex, err = cfg.Service.AppendGap(ctx, id, index, opentime.FromFrames(req.Duration, rate))
		case "", "clip":
			clip, msg := clipFromRequest(req, rate)
			if clip == nil {
				WriteError(w, http.StatusBadRequest, msg, "BAD_REQUEST")
				return
			}
			childIndex, err = cfg.Service.AppendClip(ctx, id, index, clip)
		default:
			WriteError(w, http.StatusBadRequest, "kind must be clip or gap", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, IndexResponse{Index: childIndex})
	}
}

func clipFromRequest(req AppendRequest, rate float64) (*otio.Clip, string) {
	if req.Source == nil && req.Available == nil {
		return nil, "source or available range is required"
	}
	toRange := func(fr *FrameRange) (*opentime.TimeRange, bool) {
		if fr == nil {
			return nil, true
		}
		if fr.Duration < 0 || fr.Start < 0 {
			return nil, false
		}
		tr := opentime.NewTimeRange(opentime.FromFrames(fr.Start, rate), opentime.FromFrames(fr.Duration, rate))
		return &tr, true
	}

	available, ok := toRange(req.Available)
	if !ok {
		return nil, "available range must not be negative"
	}
	source, ok := toRange(req.Source)
	if !ok {
		return nil, "source range must not be negative"
	}

	var ref otio.AnyMediaReference
	if req.TargetURL != "" || available != nil {
		ref = otio.NewExternalReference(req.TargetURL, available)
	}
	return otio.NewClip(req.Name, ref, source), ""
}

func listChildrenHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := trackIndex(w, r)
		if !ok {
			return
		}

		layout, err := cfg.Service.TrackLayout(r.Context(), chi.URLParam(r, "id"), index)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := ChildrenResponse{Children: make([]ChildResponse, len(layout))}
		for i, cl := range layout {
			resp.Children[i] = ChildToResponse(cl)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func childAtHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := trackIndex(w, r)
		if !ok {
			return
		}
		t, _, err := parseTimeQuery(r.URL.Query(), cfg.DefaultRate)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		cl, err := cfg.Service.ChildAtTime(r.Context(), chi.URLParam(r, "id"), index, t)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		if cl == nil {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("no child at frame %g (%g fps)", t.Value(), t.Rate()), "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, ChildToResponse(*cl))
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := trackIndex(w, r)
		if !ok {
			return
		}
		child, err := strconv.Atoi(chi.URLParam(r, "child"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "child index must be an integer", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Service.Clip(r.Context(), chi.URLParam(r, "id"), index, child)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		path, err := media.LocalPath(clip)
		switch {
		case errors.Is(err, media.ErrNoMedia):
			WriteError(w, http.StatusNotFound, err.Error(), "NO_MEDIA")
			return
		case errors.Is(err, media.ErrRemoteMedia):
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "REMOTE_MEDIA")
			return
		case err != nil:
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		if err := cfg.Media.Serve(w, r, path); err != nil {
			cfg.Logger.Error("media error", "error", err, "path", logging.SanitizePath(path))
		}
	}
}
