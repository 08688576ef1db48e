package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/providers"
	"github.com/jackzampolin/folio/internal/server/endpoints"
)

type fakeSource struct{ pages int }

func (f *fakeSource) PageCount() int { return f.pages }

func (f *fakeSource) Rasterize(ctx context.Context, n int, scale float64) ([]byte, error) {
	return []byte(fmt.Sprintf("jpeg-%d", n)), nil
}

func (f *fakeSource) Close() error { return nil }

type testServer struct {
	srv  *Server
	ts   *httptest.Server
	mock *providers.MockRecognizer

	// Recognition blocks on gate while it is set.
	mu      sync.Mutex
	gate    chan struct{}
	started chan int
}

func newTestServer(t *testing.T, pages int) *testServer {
	t.Helper()

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New failed: %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	tsrv := &testServer{mock: providers.NewMockRecognizer(), started: make(chan int, 16)}
	tsrv.mock.Respond = func(call int, req *providers.Request) (string, error) {
		tsrv.started <- req.PageNumber
		tsrv.mu.Lock()
		gate := tsrv.gate
		tsrv.mu.Unlock()
		if gate != nil {
			<-gate
		}
		return fmt.Sprintf("<p>page %d</p>", req.PageNumber), nil
	}
	reg := providers.NewRegistry()
	reg.Register("mock", tsrv.mock)

	settings := config.DefaultConfig()
	settings.Engine.InterPageDelayMs = 0
	settings.Engine.BackoffBaseMs = 1
	settings.Upload.MaxBytes = 1 << 20

	srv, err := New(Config{
		Settings: settings,
		Home:     h,
		Registry: reg,
		OpenDocument: func(name string, data []byte, maxBytes int64, opts pdf.Options) (pdf.Source, error) {
			if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
				return nil, &pdf.ValidationError{Message: name + " is not a PDF"}
			}
			return &fakeSource{pages: pages}, nil
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tsrv.srv = srv
	tsrv.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		tsrv.release()
		tsrv.ts.Close()
		srv.Close()
	})
	return tsrv
}

func (s *testServer) hold() {
	s.mu.Lock()
	s.gate = make(chan struct{})
	s.mu.Unlock()
}

func (s *testServer) release() {
	s.mu.Lock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
	s.mu.Unlock()
}

func (s *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) upload(t *testing.T, name string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(data)
	mw.Close()

	resp, err := http.Post(s.ts.URL+"/api/document", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) waitIdle(t *testing.T) endpoints.DocumentResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var doc endpoints.DocumentResponse
		decode(t, s.do(t, "GET", "/api/document", nil), &doc)
		if !doc.Processing {
			return doc
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not finish")
	return endpoints.DocumentResponse{}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status = %d, want %d (%s)",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, strings.TrimSpace(string(body)))
	}
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, 1)

	resp := s.do(t, "GET", "/health", nil)
	expectStatus(t, resp, http.StatusOK)
	var health endpoints.HealthResponse
	decode(t, resp, &health)
	if health.Status != "ok" {
		t.Errorf("health.Status = %q, want %q", health.Status, "ok")
	}

	var status endpoints.StatusResponse
	decode(t, s.do(t, "GET", "/status", nil), &status)
	if status.Document != nil {
		t.Error("status should report no document")
	}
	if status.ActiveProvider != "mock" {
		t.Errorf("active provider = %q, want mock", status.ActiveProvider)
	}
}

func TestServer_NoDocument(t *testing.T) {
	s := newTestServer(t, 1)

	tests := []struct {
		method, path string
	}{
		{"GET", "/api/document"},
		{"POST", "/api/document/extract"},
		{"POST", "/api/document/stop"},
		{"GET", "/api/document/pages/1"},
		{"GET", "/api/document/export/html"},
		{"GET", "/api/settings/translation"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			expectStatus(t, s.do(t, tt.method, tt.path, nil), http.StatusNotFound)
		})
	}
}

func TestServer_UploadValidation(t *testing.T) {
	s := newTestServer(t, 2)

	t.Run("not a pdf", func(t *testing.T) {
		expectStatus(t, s.upload(t, "notes.txt", []byte("hello")), http.StatusBadRequest)
	})

	t.Run("missing file", func(t *testing.T) {
		resp, err := http.Post(s.ts.URL+"/api/document", "application/json", strings.NewReader("{}"))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("accepted", func(t *testing.T) {
		resp := s.upload(t, "scan.pdf", []byte("%PDF-1.7"))
		expectStatus(t, resp, http.StatusCreated)
		var doc endpoints.DocumentResponse
		decode(t, resp, &doc)
		if doc.Info.PageCount != 2 || len(doc.Pages) != 2 {
			t.Errorf("unexpected document: %+v", doc.Info)
		}
		if !doc.Pages[0].HasImage {
			t.Error("first page should be rendered on upload")
		}
	})
}

func TestServer_ExtractAndExport(t *testing.T) {
	s := newTestServer(t, 3)
	expectStatus(t, s.upload(t, "My Book.pdf", []byte("%PDF-1.7")), http.StatusCreated)

	s.hold()
	resp := s.do(t, "POST", "/api/document/extract", nil)
	expectStatus(t, resp, http.StatusAccepted)
	var run endpoints.RunResponse
	decode(t, resp, &run)
	if !run.Processing || run.Provider != "mock" {
		t.Errorf("unexpected run response: %+v", run)
	}

	select {
	case <-s.started:
	case <-time.After(5 * time.Second):
		t.Fatal("recognition did not start")
	}
	expectStatus(t, s.do(t, "POST", "/api/document/extract", nil), http.StatusConflict)
	s.release()

	doc := s.waitIdle(t)
	if doc.Stats.Done != 3 {
		t.Fatalf("expected 3 done pages, got %+v", doc.Stats)
	}
	if doc.LastRun == nil {
		t.Error("expected a run summary")
	}

	t.Run("html", func(t *testing.T) {
		resp := s.do(t, "GET", "/api/document/export/html", nil)
		expectStatus(t, resp, http.StatusOK)
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("Content-Type = %q", ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, ".html") {
			t.Errorf("Content-Disposition = %q", cd)
		}
		body, _ := io.ReadAll(resp.Body)
		for n := 1; n <= 3; n++ {
			if !bytes.Contains(body, []byte(fmt.Sprintf("page %d", n))) {
				t.Errorf("export missing page %d", n)
			}
		}
	})

	t.Run("markdown", func(t *testing.T) {
		resp := s.do(t, "GET", "/api/document/export/md", nil)
		expectStatus(t, resp, http.StatusOK)
		body, _ := io.ReadAll(resp.Body)
		if !bytes.Contains(body, []byte("page 2")) {
			t.Errorf("markdown export missing content: %s", body)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		expectStatus(t, s.do(t, "GET", "/api/document/export/pdf", nil), http.StatusBadRequest)
	})

	t.Run("nothing left", func(t *testing.T) {
		expectStatus(t, s.do(t, "POST", "/api/document/extract", nil), http.StatusBadRequest)
	})
}

func TestServer_EditRoundTrip(t *testing.T) {
	s := newTestServer(t, 2)
	expectStatus(t, s.upload(t, "scan.pdf", []byte("%PDF-1.7")), http.StatusCreated)
	expectStatus(t, s.do(t, "POST", "/api/document/extract", nil), http.StatusAccepted)
	s.waitIdle(t)

	resp := s.do(t, "PUT", "/api/document/pages/2/content", endpoints.ContentRequest{Content: "<p>fixed text</p>"})
	expectStatus(t, resp, http.StatusOK)

	var page struct {
		Number  int    `json:"page_num"`
		Status  string `json:"status"`
		Content string `json:"content"`
		Edited  bool   `json:"edited"`
	}
	decode(t, s.do(t, "GET", "/api/document/pages/2", nil), &page)
	if page.Content != "<p>fixed text</p>" || !page.Edited || page.Status != "done" {
		t.Errorf("unexpected page after edit: %+v", page)
	}

	expectStatus(t, s.do(t, "GET", "/api/document/pages/9", nil), http.StatusNotFound)
	expectStatus(t, s.do(t, "GET", "/api/document/pages/abc", nil), http.StatusBadRequest)
}

func TestServer_Selection(t *testing.T) {
	s := newTestServer(t, 3)
	expectStatus(t, s.upload(t, "scan.pdf", []byte("%PDF-1.7")), http.StatusCreated)

	expectStatus(t, s.do(t, "PUT", "/api/document/selection", endpoints.SelectionRequest{Selected: false}), http.StatusOK)
	expectStatus(t, s.do(t, "POST", "/api/document/extract", nil), http.StatusBadRequest)

	expectStatus(t, s.do(t, "PUT", "/api/document/pages/2/selection", endpoints.SelectionRequest{Selected: true}), http.StatusOK)
	expectStatus(t, s.do(t, "POST", "/api/document/extract", nil), http.StatusAccepted)
	doc := s.waitIdle(t)
	if doc.Stats.Done != 1 || doc.Pages[1].Status != "done" {
		t.Errorf("only page 2 should be done: %+v", doc.Stats)
	}
	if got := s.mock.RequestCount(); got != 1 {
		t.Errorf("expected 1 recognition call, got %d", got)
	}
}

func TestServer_Reset(t *testing.T) {
	s := newTestServer(t, 1)
	expectStatus(t, s.upload(t, "scan.pdf", []byte("%PDF-1.7")), http.StatusCreated)
	expectStatus(t, s.do(t, "DELETE", "/api/document", nil), http.StatusNoContent)
	expectStatus(t, s.do(t, "GET", "/api/document", nil), http.StatusNotFound)
}

func TestServer_PageImage(t *testing.T) {
	s := newTestServer(t, 2)
	expectStatus(t, s.upload(t, "scan.pdf", []byte("%PDF-1.7")), http.StatusCreated)

	resp := s.do(t, "GET", "/api/document/pages/2/image", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "jpeg-2" {
		t.Errorf("unexpected image body %q", body)
	}
}

func TestServer_Translation(t *testing.T) {
	s := newTestServer(t, 1)
	expectStatus(t, s.upload(t, "scan.pdf", []byte("%PDF-1.7")), http.StatusCreated)

	resp := s.do(t, "PUT", "/api/settings/translation", endpoints.TranslationSettings{Enabled: true, TargetLanguage: "fr"})
	expectStatus(t, resp, http.StatusOK)
	var got endpoints.TranslationSettings
	decode(t, resp, &got)
	if !got.Enabled || got.TargetLanguage != "French" {
		t.Errorf("unexpected settings: %+v", got)
	}

	resp = s.do(t, "PUT", "/api/settings/translation", endpoints.TranslationSettings{Enabled: true, TargetLanguage: "Klingon"})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = s.do(t, "PUT", "/api/settings/translation", endpoints.TranslationSettings{Enabled: false})
	expectStatus(t, resp, http.StatusOK)
	got = endpoints.TranslationSettings{}
	decode(t, resp, &got)
	if got.Enabled || got.TargetLanguage != "French" {
		t.Errorf("turning translation off changed the language: %+v", got)
	}

	var langs endpoints.LanguagesResponse
	decode(t, s.do(t, "GET", "/api/languages", nil), &langs)
	if len(langs.Languages) == 0 || langs.Default != "English" {
		t.Errorf("unexpected languages: %+v", langs)
	}
}

func TestServer_Providers(t *testing.T) {
	s := newTestServer(t, 1)

	var list endpoints.ProvidersResponse
	decode(t, s.do(t, "GET", "/api/providers", nil), &list)
	if len(list.Providers) != 1 || list.Active != "mock" || !list.Providers[0].Default {
		t.Errorf("unexpected providers: %+v", list)
	}

	expectStatus(t, s.do(t, "PUT", "/api/providers", endpoints.SetProviderRequest{Provider: "nope"}), http.StatusBadRequest)
	expectStatus(t, s.do(t, "PUT", "/api/providers", endpoints.SetProviderRequest{Provider: "mock"}), http.StatusOK)
}

func TestServer_LLMCalls(t *testing.T) {
	s := newTestServer(t, 2)
	resp := s.upload(t, "scan.pdf", []byte("%PDF-1.7"))
	expectStatus(t, resp, http.StatusCreated)
	var doc endpoints.DocumentResponse
	decode(t, resp, &doc)

	expectStatus(t, s.do(t, "POST", "/api/document/extract", nil), http.StatusAccepted)
	s.waitIdle(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.recorder.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	var calls endpoints.LLMCallsResponse
	decode(t, s.do(t, "GET", "/api/llmcalls?session_id="+doc.Info.ID, nil), &calls)
	if calls.Total != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", calls.Total)
	}

	var one endpoints.LLMCallResponse
	decode(t, s.do(t, "GET", "/api/llmcalls/"+calls.Calls[0].ID, nil), &one)
	if one.Call == nil || one.Call.SessionID != doc.Info.ID {
		t.Errorf("unexpected call: %+v", one.Call)
	}

	var counts endpoints.LLMCallCountsResponse
	decode(t, s.do(t, "GET", "/api/llmcalls/counts/"+doc.Info.ID, nil), &counts)
	if counts.Counts["mock"] != 2 {
		t.Errorf("unexpected counts: %v", counts.Counts)
	}

	expectStatus(t, s.do(t, "GET", "/api/llmcalls?success=maybe", nil), http.StatusBadRequest)
	expectStatus(t, s.do(t, "GET", "/api/llmcalls/missing", nil), http.StatusNotFound)
}

func TestServer_Events(t *testing.T) {
	s := newTestServer(t, 1)
	expectStatus(t, s.upload(t, "scan.pdf", []byte("%PDF-1.7")), http.StatusCreated)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", s.ts.URL+"/api/document/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read event: %v", err)
			}
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	if got := nextEvent(); got != "snapshot" {
		t.Fatalf("first event = %q, want snapshot", got)
	}

	expectStatus(t, s.do(t, "PUT", "/api/document/pages/1/selection", endpoints.SelectionRequest{Selected: false}), http.StatusOK)
	if got := nextEvent(); got != "page" {
		t.Errorf("event after selection = %q, want page", got)
	}
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t, 1)

	req, _ := http.NewRequest("OPTIONS", s.ts.URL+"/api/document", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("preflight should allow the origin")
	}
}

func TestServer_Swagger(t *testing.T) {
	s := newTestServer(t, 1)

	resp := s.do(t, "GET", "/swagger.json", nil)
	expectStatus(t, resp, http.StatusOK)
	var doc map[string]any
	decode(t, resp, &doc)
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatal("swagger document has no paths")
	}
	if _, ok := paths["/api/document/extract"]; !ok {
		t.Error("swagger document should describe /api/document/extract")
	}
}

func TestServer_StartStop(t *testing.T) {
	s := newTestServer(t, 1)
	s.srv.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !s.srv.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.srv.Start(ctx); err == nil {
		t.Error("second Start() should return error")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not respond to context cancellation")
	}
	if s.srv.IsRunning() {
		t.Error("server should not be running after shutdown")
	}
}
