package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/timeline-agent/internal/config"
	"github.com/heimdex/timeline-agent/internal/library"
	"github.com/heimdex/timeline-agent/internal/logging"
	"github.com/heimdex/timeline-agent/internal/media"
)

const defaultVersion = "0.1.0"

func NewRouter(cfg ServerConfig) *chi.Mux {
	cfg.Logger = logging.OrDiscard(cfg.Logger)
	if cfg.DefaultRate <= 0 {
		cfg.DefaultRate = config.DefaultRate
	}
	if cfg.Media == nil {
		cfg.Media = media.NewServer(cfg.Logger)
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/timecode", timecodeHandler(cfg))

		r.Route("/timelines", func(r chi.Router) {
			r.Get("/", listTimelinesHandler(cfg))
			r.Post("/", createTimelineHandler(cfg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getTimelineHandler(cfg))
				r.Delete("/", deleteTimelineHandler(cfg))
				r.Get("/tracks", listTracksHandler(cfg))
				r.Post("/tracks", addTrackHandler(cfg))
				r.Post("/tracks/{index}/clips", appendHandler(cfg))
				r.Get("/tracks/{index}/children", listChildrenHandler(cfg))
				r.Get("/tracks/{index}/child_at", childAtHandler(cfg))
				r.Get("/tracks/{index}/children/{child}/media", mediaHandler(cfg))
				r.Post("/export/edl", exportEDLHandler(cfg))
			})
		})

		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))

		r.Get("/import", importerStateHandler(cfg))
		r.Post("/import/scan", scanHandler(cfg))
		r.Post("/import/pause", pauseImportHandler(cfg, true))
		r.Post("/import/resume", pauseImportHandler(cfg, false))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	version := cfg.Version
	if version == "" {
		version = defaultVersion
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		timelines, err := cfg.Service.List(ctx)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		jobs, err := cfg.Service.ListJobs(ctx, 10)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		state := "idle"
		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Importer != nil && cfg.Importer.IsPaused() {
			state = "paused"
		}

		for _, j := range jobs {
			if j.Status == library.JobStatusRunning {
				state = "importing"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == library.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:          state,
			LastError:      lastError,
			TimelinesCount: len(timelines),
			JobsRunning:    jobsRunning,
			ActiveJob:      activeJob,
		}
		if cfg.Importer != nil {
			resp.InboxDir = cfg.Importer.InboxDir()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		jobs, err := cfg.Service.ListJobs(r.Context(), limit)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, jobsToResponse(jobs))
	}
}

func jobsToResponse(jobs []*library.Job) JobsResponse {
	resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
	for i, j := range jobs {
		resp.Jobs[i] = JobToResponse(j)
	}
	return resp
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Service.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func importerState(r *http.Request, im *library.Importer) ImporterResponse {
	return ImporterResponse{
		Running: im.IsRunning(),
		Paused:  im.IsPaused(),
		Active:  im.ActiveJobCount(r.Context()),
		Inbox:   im.InboxDir(),
	}
}

func importerStateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Importer == nil {
			WriteError(w, http.StatusServiceUnavailable, "importer is not running", "IMPORTER_DISABLED")
			return
		}
		WriteJSON(w, http.StatusOK, importerState(r, cfg.Importer))
	}
}

func scanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Importer == nil {
			WriteError(w, http.StatusServiceUnavailable, "importer is not running", "IMPORTER_DISABLED")
			return
		}
		jobs, err := cfg.Importer.ScanOnce(r.Context())
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, jobsToResponse(jobs))
	}
}

func pauseImportHandler(cfg ServerConfig, pause bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Importer == nil {
			WriteError(w, http.StatusServiceUnavailable, "importer is not running", "IMPORTER_DISABLED")
			return
		}
		if pause {
			cfg.Importer.Pause()
		} else {
			cfg.Importer.Resume()
		}
		WriteJSON(w, http.StatusOK, importerState(r, cfg.Importer))
	}
}
