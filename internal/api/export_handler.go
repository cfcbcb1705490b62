package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/timeline-agent/internal/export"
)

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if !decodeBody(w, r, cfg.MaxBodyBytes, &req) {
			return
		}

		if req.Format != "" && strings.ToLower(req.Format) != "edl" {
			WriteError(w, http.StatusBadRequest, "format must be edl", "BAD_REQUEST")
			return
		}
		if req.FrameRate < 0 {
			WriteError(w, http.StatusBadRequest, "frame_rate must not be negative", "BAD_REQUEST")
			return
		}
		if req.OutputDir != "" {
			if err := export.ValidateOutputDir(req.OutputDir); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		}

		tl, err := cfg.Service.Load(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		edl, err := export.GenerateEDL(tl, export.EDLOptions{
			Title:      req.Title,
			TrackIndex: req.TrackIndex,
			FrameRate:  req.FrameRate,
		})
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := export.ExportResponse{
			Status:     "ok",
			Format:     "edl",
			FrameRate:  edl.FrameRate,
			DropFrame:  edl.DropFrame,
			EventCount: edl.Events,
			Skipped:    edl.Skipped,
		}
		if resp.Skipped == nil {
			resp.Skipped = []string{}
		}

		if req.OutputDir == "" {
			resp.EDL = edl.Text
			WriteJSON(w, http.StatusOK, resp)
			return
		}

		name := req.Title
		if name == "" {
			name = tl.Name()
		}
		outputPath, err := export.WriteFile(req.OutputDir, name, edl)
		if err != nil {
			cfg.Logger.Error("export write failed", "error", err, "timeline", tl.Name())
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}
		resp.OutputPath = outputPath
		WriteJSON(w, http.StatusOK, resp)
	}
}
