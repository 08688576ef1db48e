package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/export"
	"github.com/jackzampolin/folio/internal/extract"
	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/providers"
)

type fakeSource struct {
	pages int

	mu       sync.Mutex
	rendered []int
	closed   bool
}

func (f *fakeSource) PageCount() int { return f.pages }

func (f *fakeSource) Rasterize(ctx context.Context, n int, scale float64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, n)
	return []byte(fmt.Sprintf("jpeg-%d", n)), nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fixture struct {
	ws      *Workspace
	mock    *providers.MockRecognizer
	sources []*fakeSource
}

func newFixture(t *testing.T, pages int, mutate func(*Config)) *fixture {
	t.Helper()
	f := &fixture{mock: providers.NewMockRecognizer()}
	f.mock.Respond = func(call int, req *providers.Request) (string, error) {
		return fmt.Sprintf("<p>page %d</p>", req.PageNumber), nil
	}

	reg := providers.NewRegistry()
	reg.Register("mock", f.mock)

	cfg := Config{
		Registry: reg,
		Engine:   extract.Config{InterPageDelay: -1},
		MaxBytes: 1 << 20,
		Open: func(name string, data []byte, maxBytes int64, opts pdf.Options) (pdf.Source, error) {
			if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
				return nil, &pdf.ValidationError{Message: name + " is not a PDF"}
			}
			src := &fakeSource{pages: pages}
			f.sources = append(f.sources, src)
			return src, nil
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.ws = New(cfg)
	t.Cleanup(f.ws.Close)
	return f
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.Engine.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestWorkspace_Load(t *testing.T) {
	f := newFixture(t, 3, nil)

	s, err := f.ws.Load(context.Background(), "Scan.PDF", []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ID == "" {
		t.Error("session should have an ID")
	}
	if s.Document.PageCount() != 3 {
		t.Errorf("expected 3 pages, got %d", s.Document.PageCount())
	}
	for _, p := range s.Document.Pages() {
		if p.Status != document.StatusPending || !p.Selected {
			t.Errorf("page %d should start pending and selected: %+v", p.Number, p)
		}
	}

	first, _ := s.Document.Page(1)
	if !first.HasImage() {
		t.Error("first page should be rendered on load")
	}
	second, _ := s.Document.Page(2)
	if second.HasImage() {
		t.Error("later pages should render lazily")
	}

	if s.Title() != "Scan" {
		t.Errorf("expected title Scan, got %q", s.Title())
	}
	info := s.Info()
	if info.PageCount != 3 || info.Size != 8 || info.FileName != "Scan.PDF" {
		t.Errorf("unexpected info: %+v", info)
	}

	cur, err := f.ws.Current()
	if err != nil || cur != s {
		t.Errorf("Current should return the loaded session, got %v, %v", cur, err)
	}
}

func TestWorkspace_LoadRejected(t *testing.T) {
	f := newFixture(t, 2, nil)

	first, err := f.ws.Load(context.Background(), "a.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err = f.ws.Load(context.Background(), "notes.txt", []byte("x"))
	var ve *pdf.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	cur, err := f.ws.Current()
	if err != nil || cur != first {
		t.Error("rejected upload should leave the previous session in place")
	}
	if f.sources[0].isClosed() {
		t.Error("previous source should stay open")
	}
}

func TestWorkspace_LoadReplaces(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()

	first, err := f.ws.Load(ctx, "a.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := f.ws.Load(ctx, "b.pdf", []byte("y"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first.ID == second.ID {
		t.Error("each load should get a new session ID")
	}
	if !f.sources[0].isClosed() {
		t.Error("replaced source should be closed")
	}
	if f.sources[1].isClosed() {
		t.Error("current source should stay open")
	}
}

func TestWorkspace_NoDocument(t *testing.T) {
	f := newFixture(t, 1, nil)
	ctx := context.Background()

	if _, err := f.ws.Current(); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Current: expected ErrNoDocument, got %v", err)
	}
	if err := f.ws.Start(ctx); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Start: expected ErrNoDocument, got %v", err)
	}
	if err := f.ws.Stop(); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Stop: expected ErrNoDocument, got %v", err)
	}
	if _, err := f.ws.PageImage(ctx, 1); !errors.Is(err, ErrNoDocument) {
		t.Errorf("PageImage: expected ErrNoDocument, got %v", err)
	}
	if _, _, err := f.ws.Export(export.FormatHTML); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Export: expected ErrNoDocument, got %v", err)
	}
}

func TestWorkspace_RunAndExport(t *testing.T) {
	f := newFixture(t, 3, nil)
	ctx := context.Background()

	s, err := f.ws.Load(ctx, "book.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := s.Document.SetSelected(2, false); err != nil {
		t.Fatalf("SetSelected failed: %v", err)
	}

	if err := f.ws.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitIdle(t, s)

	if got := f.mock.RequestCount(); got != 2 {
		t.Errorf("expected 2 recognition calls, got %d", got)
	}
	if sum := s.Engine.LastSummary(); sum == nil || sum.Done != 2 {
		t.Errorf("unexpected summary: %+v", sum)
	}

	data, name, err := f.ws.Export(export.FormatHTML)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if name != "book_extracted.html" {
		t.Errorf("expected book_extracted.html, got %s", name)
	}
	html := string(data)
	if !strings.Contains(html, "<p>page 1</p>") || !strings.Contains(html, "<p>page 3</p>") {
		t.Error("export should contain processed pages")
	}
	if strings.Contains(html, "page-2") {
		t.Error("deselected page should not be exported")
	}
}

func TestWorkspace_Reset(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()

	if _, err := f.ws.Load(ctx, "a.pdf", []byte("x")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	f.ws.Reset()

	if _, err := f.ws.Current(); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument after reset, got %v", err)
	}
	if !f.sources[0].isClosed() {
		t.Error("reset should close the source")
	}

	// Reset with nothing loaded is a no-op.
	f.ws.Reset()
}

func TestWorkspace_PageImage(t *testing.T) {
	f := newFixture(t, 3, nil)
	ctx := context.Background()

	if _, err := f.ws.Load(ctx, "a.pdf", []byte("x")); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	img, err := f.ws.PageImage(ctx, 3)
	if err != nil {
		t.Fatalf("PageImage failed: %v", err)
	}
	if string(img) != "jpeg-3" {
		t.Errorf("unexpected image %q", img)
	}
	if _, err := f.ws.PageImage(ctx, 3); err != nil {
		t.Fatalf("second PageImage failed: %v", err)
	}

	count := 0
	f.sources[0].mu.Lock()
	for _, n := range f.sources[0].rendered {
		if n == 3 {
			count++
		}
	}
	f.sources[0].mu.Unlock()
	if count != 1 {
		t.Errorf("page 3 should render once, rendered %d times", count)
	}

	if _, err := f.ws.PageImage(ctx, 9); !errors.Is(err, document.ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}

func TestWorkspace_Provider(t *testing.T) {
	f := newFixture(t, 1, nil)

	if f.ws.Provider() != "mock" {
		t.Errorf("expected registry default mock, got %q", f.ws.Provider())
	}
	if err := f.ws.SetProvider("missing"); err == nil {
		t.Error("expected error for unknown provider")
	}

	other := providers.NewMockRecognizer()
	other.ProviderName = "other"
	f.ws.Registry().Register("other", other)
	if err := f.ws.SetProvider("other"); err != nil {
		t.Fatalf("SetProvider failed: %v", err)
	}

	ctx := context.Background()
	s, err := f.ws.Load(ctx, "a.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := f.ws.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitIdle(t, s)

	if other.RequestCount() != 1 || f.mock.RequestCount() != 0 {
		t.Errorf("run should use the selected provider: other=%d mock=%d",
			other.RequestCount(), f.mock.RequestCount())
	}
}

func TestWorkspace_DefaultTranslation(t *testing.T) {
	f := newFixture(t, 1, func(c *Config) {
		c.Translate = true
		c.TargetLanguage = "de"
	})

	s, err := f.ws.Load(context.Background(), "a.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := s.Document.TargetLanguage(); got != "German" {
		t.Errorf("expected German target, got %q", got)
	}
}

func TestWorkspace_KeepsUploadCopy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	f := newFixture(t, 1, func(c *Config) { c.UploadsDir = dir })

	s, err := f.ws.Load(context.Background(), "a.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	path := filepath.Join(dir, s.ID+".pdf")
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "%PDF" {
		t.Fatalf("expected upload copy at %s: %v", path, err)
	}

	f.ws.Reset()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("upload copy should be removed on reset")
	}
}

func TestWorkspace_SetLimits(t *testing.T) {
	f := newFixture(t, 1, nil)
	attempts := 0
	f.mock.Respond = func(call int, req *providers.Request) (string, error) {
		attempts = call
		return "", &providers.ContentError{Provider: "mock", Reason: "empty"}
	}
	f.ws.SetLimits(1, time.Millisecond, -1)

	ctx := context.Background()
	s, err := f.ws.Load(ctx, "a.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := f.ws.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitIdle(t, s)

	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
	p, _ := s.Document.Page(1)
	if p.Status != document.StatusError {
		t.Errorf("expected error status, got %s", p.Status)
	}
}
