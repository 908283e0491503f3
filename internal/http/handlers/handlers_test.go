package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"photoedit/internal/editor"
	"photoedit/internal/http/handlers"
	"photoedit/internal/http/httpapi"
	"photoedit/internal/infra"
	imgprov "photoedit/internal/providers/image"
	"photoedit/internal/storage"
	"photoedit/internal/view"
)

type stubTransformer struct {
	err   error
	calls int
}

func (t *stubTransformer) Transform(_ context.Context, req imgprov.TransformRequest) (*imgprov.Result, error) {
	t.calls++
	if t.err != nil {
		return nil, imgprov.Classify(t.err)
	}
	return &imgprov.Result{Data: pngBytes(8, 8), MIME: "image/png"}, nil
}

func pngBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

type testServer struct {
	srv         *httptest.Server
	transformer *stubTransformer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	views := view.NewRegistry(store)
	transformer := &stubTransformer{}
	logger := zerolog.Nop()
	sessions := editor.NewStore(transformer, views, logger, time.Hour)

	cfg := &infra.Config{
		AppEnv:             "test",
		MaxUploadBytes:     4 << 20,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
		RateLimitPerMin:    1000,
	}
	app := handlers.NewApp(cfg, logger, sessions, views)
	srv := httptest.NewServer(httpapi.NewRouter(app))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, transformer: transformer}
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var parsed map[string]any
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("unmarshal %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp, parsed
}

func (ts *testServer) postJSON(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ts.do(t, http.MethodPost, path, bytes.NewReader(raw), "application/json")
}

func (ts *testServer) createSession(t *testing.T) (string, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(pngBytes(32, 24)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	resp, body := ts.do(t, http.MethodPost, "/v1/sessions", &buf, mw.FormDataContentType())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: got %d, want 201 (%v)", resp.StatusCode, body)
	}
	id, _ := body["session_id"].(string)
	if id == "" {
		t.Fatalf("create session: missing session_id in %v", body)
	}
	return id, body
}

func TestSessionCreateFromUpload(t *testing.T) {
	ts := newTestServer(t)
	_, body := ts.createSession(t)

	if got := body["length"].(float64); got != 1 {
		t.Fatalf("length = %v, want 1", got)
	}
	if got := body["cursor"].(float64); got != 0 {
		t.Fatalf("cursor = %v, want 0", got)
	}
	if body["current_url"] == nil || body["original_url"] == nil {
		t.Fatalf("expected view URLs in %v", body)
	}
}

func TestSessionCreateFromDemo(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodPost, "/v1/sessions?demo=sunset-coast", nil, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("got %d, want 201 (%v)", resp.StatusCode, body)
	}
	if body["image_name"] == "" {
		t.Fatalf("expected demo image name in %v", body)
	}
}

func TestSessionCreateUnknownDemo(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodPost, "/v1/sessions?demo=nope", nil, "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", resp.StatusCode)
	}
}

func TestSessionCreateWithoutImage(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodPost, "/v1/sessions", nil, "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", resp.StatusCode)
	}
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodGet, "/v1/sessions/does-not-exist", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got %d, want 404", resp.StatusCode)
	}
}

func TestAdjustCommitsRevision(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	resp, body := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": "warmer tones"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200 (%v)", resp.StatusCode, body)
	}
	if got := body["length"].(float64); got != 2 {
		t.Fatalf("length = %v, want 2", got)
	}
	if body["can_undo"] != true {
		t.Fatalf("expected can_undo after adjust, got %v", body)
	}
	if ts.transformer.calls != 1 {
		t.Fatalf("transformer calls = %d, want 1", ts.transformer.calls)
	}
}

func TestAdjustWithoutInstruction(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	resp, _ := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": "  "})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", resp.StatusCode)
	}
}

func TestRetouchRequiresFocus(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	resp, _ := ts.postJSON(t, "/v1/sessions/"+id+"/retouch", map[string]string{"instruction": "remove the lamp"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", resp.StatusCode)
	}

	if resp, body := ts.postJSON(t, "/v1/sessions/"+id+"/focus", map[string]int{"x": 10, "y": 12}); resp.StatusCode != http.StatusOK {
		t.Fatalf("set focus: got %d (%v)", resp.StatusCode, body)
	}
	resp, body := ts.postJSON(t, "/v1/sessions/"+id+"/retouch", map[string]string{"instruction": "remove the lamp"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["focus"] != nil {
		t.Fatalf("focus should clear after a successful retouch, got %v", body["focus"])
	}
}

func TestFilterUnknownStyle(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	resp, _ := ts.postJSON(t, "/v1/sessions/"+id+"/filter", map[string]string{"style_id": "nonexistent"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", resp.StatusCode)
	}
}

func TestRateLimitedTransformMapsTo429(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	ts.transformer.err = errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")
	resp, body := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": "brighter"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429 (%v)", resp.StatusCode, body)
	}

	// Failure stays in the snapshot until dismissed.
	_, state := ts.do(t, http.MethodGet, "/v1/sessions/"+id, nil, "")
	if state["rate_limited"] != true {
		t.Fatalf("expected rate_limited in state, got %v", state)
	}
	resp, state = ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/dismiss-error", nil, "")
	if resp.StatusCode != http.StatusOK || state["error"] != nil {
		t.Fatalf("dismiss: got %d, error=%v", resp.StatusCode, state["error"])
	}
}

func TestProviderFailureMapsTo502(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	ts.transformer.err = errors.New("model unavailable")
	resp, _ := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": "brighter"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", resp.StatusCode)
	}
}

func TestUndoRedoFlow(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	if resp, body := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": "warmer"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("adjust: got %d (%v)", resp.StatusCode, body)
	}

	resp, body := ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/undo", nil, "")
	if resp.StatusCode != http.StatusOK || body["moved"] != true {
		t.Fatalf("undo: got %d, moved=%v", resp.StatusCode, body["moved"])
	}
	if got := body["cursor"].(float64); got != 0 {
		t.Fatalf("cursor after undo = %v, want 0", got)
	}
	if body["can_redo"] != true {
		t.Fatalf("expected can_redo after undo, got %v", body)
	}

	resp, body = ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/redo", nil, "")
	if resp.StatusCode != http.StatusOK || body["moved"] != true {
		t.Fatalf("redo: got %d, moved=%v", resp.StatusCode, body["moved"])
	}
	if got := body["cursor"].(float64); got != 1 {
		t.Fatalf("cursor after redo = %v, want 1", got)
	}

	// Redo past the end does not move.
	_, body = ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/redo", nil, "")
	if body["moved"] == true {
		t.Fatal("redo at the end should not move")
	}
}

func TestCropFlow(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	resp, _ := ts.postJSON(t, "/v1/sessions/"+id+"/crop", map[string]any{
		"selection":        map[string]float64{"x": 0, "y": 0, "width": 0, "height": 0},
		"displayed_width":  32,
		"displayed_height": 24,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("empty selection: got %d, want 422", resp.StatusCode)
	}

	// Entirely outside the frame clamps to nothing, which is still a bad
	// selection rather than a server failure.
	resp, _ = ts.postJSON(t, "/v1/sessions/"+id+"/crop", map[string]any{
		"selection":        map[string]float64{"x": 100, "y": 100, "width": 10, "height": 10},
		"displayed_width":  32,
		"displayed_height": 24,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("out-of-frame selection: got %d, want 422", resp.StatusCode)
	}

	resp, body := ts.postJSON(t, "/v1/sessions/"+id+"/crop", map[string]any{
		"selection":        map[string]float64{"x": 4, "y": 4, "width": 16, "height": 12},
		"displayed_width":  32,
		"displayed_height": 24,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("crop: got %d (%v)", resp.StatusCode, body)
	}
	if got := body["length"].(float64); got != 2 {
		t.Fatalf("length after crop = %v, want 2", got)
	}
}

func TestViewServeAndRevocation(t *testing.T) {
	ts := newTestServer(t)
	id, body := ts.createSession(t)

	currentURL := body["current_url"].(string)
	resp, err := ts.srv.Client().Get(ts.srv.URL + currentURL)
	if err != nil {
		t.Fatalf("fetch view: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("view fetch: got %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", resp.Header.Get("Cache-Control"))
	}
	if len(data) == 0 {
		t.Fatal("view served no bytes")
	}

	// Committing an edit replaces the current view, revoking the old token.
	if resp, b := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": "warmer"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("adjust: got %d (%v)", resp.StatusCode, b)
	}
	resp, err = ts.srv.Client().Get(ts.srv.URL + currentURL)
	if err != nil {
		t.Fatalf("fetch stale view: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stale view: got %d, want 404", resp.StatusCode)
	}
}

func TestExportDownload(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	resp, err := ts.srv.Client().Get(ts.srv.URL + "/v1/sessions/" + id + "/export?tier=medium")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("Content-Type = %q, want image/jpeg", ct)
	}
	want := fmt.Sprintf("attachment; filename=%q", "photo-medium.jpg")
	if cd := resp.Header.Get("Content-Disposition"); cd != want {
		t.Fatalf("Content-Disposition = %q, want %q", cd, want)
	}
	if len(data) == 0 {
		t.Fatal("export produced no bytes")
	}
}

func TestExportUnknownTier(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	resp, err := ts.srv.Client().Get(ts.srv.URL + "/v1/sessions/" + id + "/export?tier=ultra")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", resp.StatusCode)
	}
}

func TestArchiveDownload(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)
	if resp, b := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": "warmer"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("adjust: got %d (%v)", resp.StatusCode, b)
	}

	resp, err := ts.srv.Client().Get(ts.srv.URL + "/v1/sessions/" + id + "/archive")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("Content-Type = %q, want application/zip", ct)
	}
	if len(data) == 0 {
		t.Fatal("archive produced no bytes")
	}
}

func TestSessionDelete(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	resp, _ := ts.do(t, http.MethodDelete, "/v1/sessions/"+id, nil, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: got %d, want 204", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodGet, "/v1/sessions/"+id, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("after delete: got %d, want 404", resp.StatusCode)
	}
}

func TestRestartKeepsRedo(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)
	for _, instruction := range []string{"warmer", "sharper"} {
		if resp, b := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": instruction}); resp.StatusCode != http.StatusOK {
			t.Fatalf("adjust: got %d (%v)", resp.StatusCode, b)
		}
	}

	resp, body := ts.do(t, http.MethodPost, "/v1/sessions/"+id+"/restart", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restart: got %d", resp.StatusCode)
	}
	if got := body["cursor"].(float64); got != 0 {
		t.Fatalf("cursor after restart = %v, want 0", got)
	}
	if body["can_redo"] != true {
		t.Fatalf("expected can_redo after restart, got %v", body)
	}
	if got := body["length"].(float64); got != 3 {
		t.Fatalf("length after restart = %v, want 3", got)
	}
}

func TestStylesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodGet, "/v1/styles", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
	items, ok := body["items"].([]any)
	if !ok || len(items) == 0 {
		t.Fatalf("expected style items, got %v", body)
	}
}

func TestEventsPushSnapshots(t *testing.T) {
	ts := newTestServer(t)
	id, _ := ts.createSession(t)

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/v1/sessions/" + id + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial events: %v (resp=%v)", err, resp)
	}
	defer conn.Close()

	var initial map[string]any
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if initial["session_id"] != id {
		t.Fatalf("initial snapshot session = %v, want %s", initial["session_id"], id)
	}

	if resp, b := ts.postJSON(t, "/v1/sessions/"+id+"/adjust", map[string]string{"instruction": "warmer"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("adjust: got %d (%v)", resp.StatusCode, b)
	}

	// The edit triggers at least one push; read until the commit shows up.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no snapshot with the committed edit arrived")
		}
		var snap map[string]any
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		if length, ok := snap["length"].(float64); ok && length == 2 {
			break
		}
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodGet, "/v1/healthz", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}
}
