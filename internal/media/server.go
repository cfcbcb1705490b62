// Package media streams the source files that clips reference.
package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/heimdex/timeline-agent/internal/logging"
	"github.com/heimdex/timeline-agent/internal/otio"
)

var (
	ErrNoMedia     = errors.New("clip has no media reference")
	ErrRemoteMedia = errors.New("media reference is not a local file")
)

// LocalPath resolves the active media reference of clip to a file on this
// machine. Targets may be file:// URLs or absolute paths.
func LocalPath(clip *otio.Clip) (string, error) {
	ref, ok := clip.MediaReference().(*otio.ExternalReference)
	if !ok || ref.IsMissingReference() {
		return "", ErrNoMedia
	}
	target := ref.TargetURL()

	if filepath.IsAbs(target) {
		return filepath.Clean(target), nil
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", fmt.Errorf("%w: %s", ErrRemoteMedia, target)
	}
	return filepath.FromSlash(u.Path), nil
}

type Server struct {
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logging.WithComponent(logging.OrDiscard(logger), "media")}
}

// Serve writes the file at path, honoring a single byte range. Responses
// for a missing file or a bad range are written here; the returned error
// covers failures after headers may have been sent.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "media file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open media: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat media: %w", err)
	}
	if info.IsDir() {
		http.Error(w, "media reference is a directory", http.StatusUnprocessableEntity)
		return nil
	}
	size := info.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", contentType)

	br, err := ParseByteRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrRangeNotSatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case err != nil:
		// A malformed header is ignored and the whole file sent.
		s.logger.Debug("ignoring range header", "range", r.Header.Get("Range"), "error", err)
		br = nil
	}

	if br == nil {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		_, err = io.Copy(w, f)
		return err
	}

	h.Set("Content-Length", strconv.FormatInt(br.Length, 10))
	h.Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := f.Seek(br.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek media: %w", err)
	}
	_, err = io.CopyN(w, f, br.Length)
	return err
}
