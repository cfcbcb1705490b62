package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/heimdex/timeline-agent/internal/db"
	"github.com/heimdex/timeline-agent/internal/library"
	"github.com/heimdex/timeline-agent/internal/opentime"
	"github.com/heimdex/timeline-agent/internal/otio"
)

const testToken = "test-token"

type testEnv struct {
	router  http.Handler
	service *library.Service
	inbox   string
}

func setupRouter(t *testing.T, maxBody int64) *testEnv {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "api.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := library.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), library.ConfigAuthToken, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	svc := library.NewService(repo, nil)
	inbox := filepath.Join(t.TempDir(), "inbox")
	im := library.NewImporter(svc, repo, inbox, time.Hour, nil)

	router := NewRouter(ServerConfig{
		Service:      svc,
		Repository:   repo,
		Importer:     im,
		Logger:       discardLogger(),
		StartTime:    time.Now().Add(-10 * time.Second),
		DeviceID:     "test-device",
		DefaultRate:  24,
		MaxBodyBytes: maxBody,
	})
	return &testEnv{router: router, service: svc, inbox: inbox}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
	return body
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int, code string) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
	if code == "" {
		return
	}
	if got := decodeJSONBody(t, rr)["code"]; got != code {
		t.Fatalf("code = %v, want %s", got, code)
	}
}

// timelineDocument serializes a timeline with one video track holding a
// 24 frame clip and a 12 frame gap.
func timelineDocument(t *testing.T, name string) string {
	t.Helper()
	tl := otio.NewTimeline(name)
	track := otio.NewTrack("V1", otio.VideoKind)
	avail := opentime.NewTimeRangeFromValues(0, 100, 24)
	src := opentime.NewTimeRangeFromValues(10, 24, 24)
	children := []otio.Composable{
		otio.NewClip("A", otio.NewExternalReference("file:///media/shot_a.mov", &avail), &src),
		otio.NewGap("", opentime.NewRationalTime(12, 24)),
	}
	for _, ch := range children {
		if err := track.AppendChild(ch); err != nil {
			t.Fatalf("AppendChild() error = %v", err)
		}
	}
	if err := tl.AddTrack(track); err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}
	doc, err := otio.ToJSONString(tl, 0)
	if err != nil {
		t.Fatalf("ToJSONString() error = %v", err)
	}
	return doc
}

func TestHealthHandler_NoAuth(t *testing.T) {
	env := setupRouter(t, 0)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	expectStatus(t, rr, http.StatusOK, "")
	var resp HealthResponse
	decodeInto(t, rr, &resp)
	if resp.Status != "ok" || resp.DeviceID != "test-device" || resp.UptimeS < 10 {
		t.Fatalf("health = %+v", resp)
	}
	if len(rr.Header().Get("X-Request-ID")) != 8 {
		t.Fatalf("X-Request-ID = %q, want 8 characters", rr.Header().Get("X-Request-ID"))
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	env := setupRouter(t, 0)

	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/timelines", nil))
	expectStatus(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestTimelines_BuildAndInspect(t *testing.T) {
	env := setupRouter(t, 1<<20)

	rr := env.do(t, http.MethodPost, "/timelines", `{"name":"  Cut  ","global_start":{"value":86400,"rate":24}}`)
	expectStatus(t, rr, http.StatusCreated, "")
	var created TimelineResponse
	decodeInto(t, rr, &created)
	if created.ID == "" || created.Name != "Cut" || created.TrackCount != 0 {
		t.Fatalf("created = %+v", created)
	}
	base := "/timelines/" + created.ID

	rr = env.do(t, http.MethodPost, base+"/tracks", `{"name":"V1"}`)
	expectStatus(t, rr, http.StatusCreated, "")
	var idx IndexResponse
	decodeInto(t, rr, &idx)
	if idx.Index != 0 {
		t.Fatalf("track index = %d, want 0", idx.Index)
	}

	rr = env.do(t, http.MethodPost, base+"/tracks/0/clips",
		`{"name":"A","target_url":"file:///media/a.mov","available":{"start":0,"duration":100},"source":{"start":10,"duration":24}}`)
	expectStatus(t, rr, http.StatusCreated, "")
	decodeInto(t, rr, &idx)
	if idx.Index != 0 {
		t.Fatalf("clip index = %d, want 0", idx.Index)
	}

	rr = env.do(t, http.MethodPost, base+"/tracks/0/clips", `{"kind":"gap","duration":12}`)
	expectStatus(t, rr, http.StatusCreated, "")
	decodeInto(t, rr, &idx)
	if idx.Index != 1 {
		t.Fatalf("gap index = %d, want 1", idx.Index)
	}

	rr = env.do(t, http.MethodGet, base+"/tracks", "")
	expectStatus(t, rr, http.StatusOK, "")
	var tracks TracksResponse
	decodeInto(t, rr, &tracks)
	if len(tracks.Tracks) != 1 {
		t.Fatalf("tracks = %+v, want 1", tracks)
	}
	tr := tracks.Tracks[0]
	if tr.Name != "V1" || tr.Kind != otio.VideoKind || tr.Children != 2 || tr.Duration == nil {
		t.Fatalf("track = %+v", tr)
	}
	if got := tr.Duration.RationalTime().ToSeconds(); got != 1.5 {
		t.Fatalf("track duration = %v s, want 1.5", got)
	}

	rr = env.do(t, http.MethodGet, base+"/tracks/0/children", "")
	expectStatus(t, rr, http.StatusOK, "")
	var children ChildrenResponse
	decodeInto(t, rr, &children)
	if len(children.Children) != 2 {
		t.Fatalf("children = %+v, want 2", children)
	}
	clip, gap := children.Children[0], children.Children[1]
	if clip.Schema != "Clip.2" || clip.Name != "A" || clip.TargetURL != "file:///media/a.mov" || !clip.Visible {
		t.Errorf("clip child = %+v", clip)
	}
	if gap.Schema != "Gap.1" || gap.Visible {
		t.Errorf("gap child = %+v", gap)
	}
	if got := gap.Range.StartTime.RationalTime().ToSeconds(); got != 1 {
		t.Errorf("gap starts at %v s, want 1", got)
	}
	if gap.Trimmed == nil {
		t.Errorf("gap trimmed range missing")
	}

	rr = env.do(t, http.MethodGet, base+"/tracks/0/child_at?frames=30", "")
	expectStatus(t, rr, http.StatusOK, "")
	var at ChildResponse
	decodeInto(t, rr, &at)
	if at.Index != 1 {
		t.Fatalf("child at frame 30 = %+v, want index 1", at)
	}

	rr = env.do(t, http.MethodGet, base+"/tracks/0/child_at?time=00:00:00:05", "")
	expectStatus(t, rr, http.StatusOK, "")
	decodeInto(t, rr, &at)
	if at.Index != 0 {
		t.Fatalf("child at 00:00:00:05 = %+v, want index 0", at)
	}

	rr = env.do(t, http.MethodGet, base+"/tracks/0/child_at?frames=100", "")
	expectStatus(t, rr, http.StatusNotFound, "NOT_FOUND")

	rr = env.do(t, http.MethodGet, "/timelines", "")
	expectStatus(t, rr, http.StatusOK, "")
	var list TimelinesResponse
	decodeInto(t, rr, &list)
	if len(list.Timelines) != 1 {
		t.Fatalf("timelines = %+v, want 1", list)
	}
	summary := list.Timelines[0]
	if summary.ClipCount != 1 || summary.TrackCount != 1 || summary.DurationSeconds != 1.5 || summary.Document != nil {
		t.Fatalf("summary = %+v", summary)
	}

	rr = env.do(t, http.MethodGet, base, "")
	expectStatus(t, rr, http.StatusOK, "")
	var full TimelineResponse
	decodeInto(t, rr, &full)
	tl, err := otio.FromJSONStringAs[*otio.Timeline](string(full.Document))
	if err != nil {
		t.Fatalf("stored document does not decode: %v", err)
	}
	if g := tl.GlobalStartTime(); g == nil || g.Value() != 86400 {
		t.Fatalf("GlobalStartTime() = %v, want 86400 frames", g)
	}
}

func TestTimelines_ImportDocument(t *testing.T) {
	env := setupRouter(t, 1<<20)

	rr := env.do(t, http.MethodPost, "/timelines", timelineDocument(t, "Imported"))
	expectStatus(t, rr, http.StatusCreated, "")
	var rec TimelineResponse
	decodeInto(t, rr, &rec)
	if rec.Name != "Imported" || rec.TrackCount != 1 || rec.ClipCount != 1 || rec.Rate != 24 {
		t.Fatalf("imported = %+v", rec)
	}

	clipDoc, err := otio.ToJSONString(otio.NewClip("x", nil, nil), 0)
	if err != nil {
		t.Fatalf("ToJSONString() error = %v", err)
	}

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"not a timeline", clipDoc, http.StatusBadRequest, "TYPE_MISMATCH"},
		{"unknown schema", `{"OTIO_SCHEMA":"Mystery.1"}`, http.StatusBadRequest, "UNKNOWN_SCHEMA"},
		{"malformed json", `{"OTIO_SCHEMA":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"blank name", `{"name":"   "}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad global start", `{"name":"x","global_start":{"value":1,"rate":0}}`, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/timelines", tt.body)
			expectStatus(t, rr, tt.status, tt.code)
		})
	}
}

func TestTimelines_BodyLimit(t *testing.T) {
	env := setupRouter(t, 64)

	rr := env.do(t, http.MethodPost, "/timelines", timelineDocument(t, "Too big"))
	expectStatus(t, rr, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE")
}

func TestTimelines_Errors(t *testing.T) {
	env := setupRouter(t, 1<<20)
	rec, err := env.service.Import(context.Background(), []byte(timelineDocument(t, "Cut")), "")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	base := "/timelines/" + rec.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing timeline", http.MethodGet, "/timelines/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"missing timeline tracks", http.MethodGet, "/timelines/nope/tracks", "", http.StatusNotFound, "NOT_FOUND"},
		{"track out of range", http.MethodGet, base + "/tracks/5/children", "", http.StatusNotFound, "ILLEGAL_INDEX"},
		{"track not a number", http.MethodGet, base + "/tracks/x/children", "", http.StatusBadRequest, "BAD_REQUEST"},
		{"append to missing track", http.MethodPost, base + "/tracks/3/clips", `{"kind":"gap","duration":5}`, http.StatusNotFound, "ILLEGAL_INDEX"},
		{"clip without ranges", http.MethodPost, base + "/tracks/0/clips", `{"name":"bare"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"negative source", http.MethodPost, base + "/tracks/0/clips", `{"source":{"start":0,"duration":-1}}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"zero gap", http.MethodPost, base + "/tracks/0/clips", `{"kind":"gap"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown kind", http.MethodPost, base + "/tracks/0/clips", `{"kind":"wipe"}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad rate", http.MethodPost, base + "/tracks/0/clips", `{"kind":"gap","duration":5,"rate":-1}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"child_at without time", http.MethodGet, base + "/tracks/0/child_at", "", http.StatusBadRequest, "BAD_REQUEST"},
		{"invalid body", http.MethodPost, base + "/tracks", `[`, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.body)
			expectStatus(t, rr, tt.status, tt.code)
		})
	}
}

func TestTimelines_Delete(t *testing.T) {
	env := setupRouter(t, 0)
	rec, err := env.service.Create(context.Background(), "Scratch", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rr := env.do(t, http.MethodDelete, "/timelines/"+rec.ID, "")
	expectStatus(t, rr, http.StatusNoContent, "")

	rr = env.do(t, http.MethodDelete, "/timelines/"+rec.ID, "")
	expectStatus(t, rr, http.StatusNotFound, "NOT_FOUND")
	rr = env.do(t, http.MethodGet, "/timelines/"+rec.ID, "")
	expectStatus(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestImportEndpoints(t *testing.T) {
	env := setupRouter(t, 0)
	if err := os.MkdirAll(env.inbox, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	files := map[string]string{
		"good.otio": timelineDocument(t, "From inbox"),
		"torn.json": `{"OTIO_SCHEMA":"Timeline.1"`,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(env.inbox, name), []byte(data), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	rr := env.do(t, http.MethodPost, "/import/scan", "")
	expectStatus(t, rr, http.StatusOK, "")
	var scanned JobsResponse
	decodeInto(t, rr, &scanned)
	if len(scanned.Jobs) != 2 {
		t.Fatalf("scan jobs = %+v, want 2", scanned)
	}
	good := scanned.Jobs[0]
	if good.Status != library.JobStatusCompleted || good.TimelineID == "" {
		t.Fatalf("good job = %+v", good)
	}

	rr = env.do(t, http.MethodGet, "/jobs/"+good.ID, "")
	expectStatus(t, rr, http.StatusOK, "")
	var job JobResponse
	decodeInto(t, rr, &job)
	if job.TimelineID != good.TimelineID || job.Type != library.JobTypeImport {
		t.Fatalf("job = %+v", job)
	}

	rr = env.do(t, http.MethodGet, "/jobs?limit=1", "")
	expectStatus(t, rr, http.StatusOK, "")
	var jobs JobsResponse
	decodeInto(t, rr, &jobs)
	if len(jobs.Jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs.Jobs))
	}

	expectStatus(t, env.do(t, http.MethodGet, "/jobs?limit=zero", ""), http.StatusBadRequest, "BAD_REQUEST")
	expectStatus(t, env.do(t, http.MethodGet, "/jobs/nope", ""), http.StatusNotFound, "NOT_FOUND")

	rr = env.do(t, http.MethodGet, "/status", "")
	expectStatus(t, rr, http.StatusOK, "")
	var status StatusResponse
	decodeInto(t, rr, &status)
	if status.State != "error" || status.LastError == "" || status.TimelinesCount != 1 || status.InboxDir != env.inbox {
		t.Fatalf("status = %+v", status)
	}

	rr = env.do(t, http.MethodPost, "/import/pause", "")
	expectStatus(t, rr, http.StatusOK, "")
	var state ImporterResponse
	decodeInto(t, rr, &state)
	if !state.Paused || state.Running {
		t.Fatalf("importer after pause = %+v", state)
	}
	rr = env.do(t, http.MethodGet, "/status", "")
	decodeInto(t, rr, &status)
	if status.State != "paused" {
		t.Fatalf("status.State = %q, want paused", status.State)
	}

	rr = env.do(t, http.MethodPost, "/import/resume", "")
	decodeInto(t, rr, &state)
	if state.Paused {
		t.Fatalf("importer after resume = %+v", state)
	}
}

func TestImportEndpoints_Disabled(t *testing.T) {
	env := setupRouter(t, 0)
	env.router = NewRouter(ServerConfig{Service: env.service, Repository: &fakeConfigStore{
		values: map[string]string{"auth_token": testToken},
	}})

	expectStatus(t, env.do(t, http.MethodPost, "/import/scan", ""), http.StatusServiceUnavailable, "IMPORTER_DISABLED")
	expectStatus(t, env.do(t, http.MethodGet, "/import", ""), http.StatusServiceUnavailable, "IMPORTER_DISABLED")
}

func TestTimecodeHandler(t *testing.T) {
	env := setupRouter(t, 0)

	tests := []struct {
		query    string
		frames   float64
		seconds  float64
		timecode string
		drop     bool
	}{
		{"timecode=01:00:00:00&rate=24", 86400, 3600, "01:00:00:00", false},
		{"frames=48", 48, 2, "00:00:02:00", false},
		{"time=36", 36, 1.5, "00:00:01:12", false},
		{"seconds=1&rate=25", 25, 1, "00:00:01:00", false},
		{"timecode=00:01:00;02&rate=29.97", 1800, 1800 / 29.97, "00:01:00;02", true},
		{"frames=7&rate=7", 7, 1, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/timecode?"+tt.query, "")
			expectStatus(t, rr, http.StatusOK, "")
			var resp TimecodeResponse
			decodeInto(t, rr, &resp)
			if resp.Frames != tt.frames || math.Abs(resp.Seconds-tt.seconds) > 1e-9 {
				t.Fatalf("frames, seconds = %v, %v, want %v, %v", resp.Frames, resp.Seconds, tt.frames, tt.seconds)
			}
			if resp.Timecode != tt.timecode || resp.DropFrame != tt.drop {
				t.Fatalf("timecode = %q (drop %v), want %q (drop %v)", resp.Timecode, resp.DropFrame, tt.timecode, tt.drop)
			}
		})
	}

	errorTests := []struct {
		query string
		code  string
	}{
		{"", "BAD_REQUEST"},
		{"frames=1&seconds=1", "BAD_REQUEST"},
		{"frames=abc", "BAD_REQUEST"},
		{"frames=1&rate=0", "BAD_REQUEST"},
		{"timecode=00:00:00:30&rate=24", "INVALID_TIMECODE"},
		{"timecode=00:00:00;10&rate=24", "INVALID_TIMECODE"},
	}
	for _, tt := range errorTests {
		rr := env.do(t, http.MethodGet, "/timecode?"+tt.query, "")
		if rr.Code != http.StatusBadRequest || decodeJSONBody(t, rr)["code"] != tt.code {
			t.Errorf("GET /timecode?%s = %d %s, want 400 %s", tt.query, rr.Code, rr.Body.String(), tt.code)
		}
	}
}

func TestMediaHandler(t *testing.T) {
	env := setupRouter(t, 0)
	mediaPath := filepath.Join(t.TempDir(), "shot.mov")
	if err := os.WriteFile(mediaPath, []byte("frames"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	rec, err := env.service.Create(context.Background(), "Media", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	base := "/timelines/" + rec.ID
	steps := []struct{ path, body string }{
		{base + "/tracks", `{"name":"V1"}`},
		{base + "/tracks/0/clips", `{"name":"local","target_url":"` + mediaPath + `","source":{"start":0,"duration":24}}`},
		{base + "/tracks/0/clips", `{"kind":"gap","duration":12}`},
		{base + "/tracks/0/clips", `{"name":"remote","target_url":"https://cdn.example.com/a.mov","source":{"start":0,"duration":24}}`},
		{base + "/tracks/0/clips", `{"name":"offline","source":{"start":0,"duration":24}}`},
	}
	for _, s := range steps {
		expectStatus(t, env.do(t, http.MethodPost, s.path, s.body), http.StatusCreated, "")
	}

	req := httptest.NewRequest(http.MethodGet, base+"/tracks/0/children/0/media", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Range", "bytes=1-3")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusPartialContent || rr.Body.String() != "ram" {
		t.Fatalf("ranged media = %d %q, want 206 \"ram\"", rr.Code, rr.Body.String())
	}

	tests := []struct {
		child  string
		status int
		code   string
	}{
		{"1", http.StatusBadRequest, "TYPE_MISMATCH"},
		{"2", http.StatusUnprocessableEntity, "REMOTE_MEDIA"},
		{"3", http.StatusNotFound, "NO_MEDIA"},
		{"9", http.StatusNotFound, "ILLEGAL_INDEX"},
		{"x", http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		rr := env.do(t, http.MethodGet, base+"/tracks/0/children/"+tt.child+"/media", "")
		expectStatus(t, rr, tt.status, tt.code)
	}
}
