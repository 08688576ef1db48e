// Package workspace owns the document currently loaded into folio.
//
// A Workspace holds at most one Session. Loading a new file or resetting
// stops any active run on the previous session and releases its renderer.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/export"
	"github.com/jackzampolin/folio/internal/extract"
	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/providers"
)

var (
	// ErrNoDocument is returned when an operation needs a loaded document.
	ErrNoDocument = errors.New("no document loaded")

	// ErrNoProvider is returned when no recognizer can serve a run.
	ErrNoProvider = errors.New("no recognition provider available")
)

// OpenFunc validates an upload and opens it for rendering.
type OpenFunc func(name string, data []byte, maxBytes int64, opts pdf.Options) (pdf.Source, error)

// Config configures a Workspace.
type Config struct {
	Registry *providers.Registry
	Recorder extract.CallRecorder

	// Engine supplies limits, timer and logger for every new session.
	Engine extract.Config

	Render   pdf.Options
	MaxBytes int64

	// Provider names the recognizer used by runs. Empty uses the registry default.
	Provider string

	// Translation settings applied to newly loaded documents.
	Translate      bool
	TargetLanguage string

	// UploadsDir, when set, receives a copy of every loaded file.
	UploadsDir string

	// Open defaults to OpenPDF.
	Open OpenFunc

	Logger *slog.Logger
}

// Workspace manages the current session.
type Workspace struct {
	mu      sync.Mutex
	cfg     Config
	current *Session
	logger  *slog.Logger
}

// New creates an empty workspace.
func New(cfg Config) *Workspace {
	if cfg.Open == nil {
		cfg.Open = OpenPDF
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = providers.NewRegistry()
	}
	return &Workspace{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "workspace"),
	}
}

// OpenPDF checks the upload and opens it with the configured backend.
// Rejected files return a *pdf.ValidationError.
func OpenPDF(name string, data []byte, maxBytes int64, opts pdf.Options) (pdf.Source, error) {
	if err := pdf.Validate(name, data, maxBytes); err != nil {
		return nil, err
	}
	count, err := pdf.PageCount(data)
	if err != nil {
		return nil, &pdf.ValidationError{Message: fmt.Sprintf("%s is not a readable PDF", name), Err: err}
	}
	if count == 0 {
		return nil, &pdf.ValidationError{Message: fmt.Sprintf("%s has no pages", name)}
	}
	src, err := pdf.Open(data, opts)
	if err != nil {
		return nil, &pdf.ValidationError{Message: fmt.Sprintf("%s could not be opened", name), Err: err}
	}
	return src, nil
}

// Load validates data and makes it the current document. On failure the
// previous session is left untouched.
func (w *Workspace) Load(ctx context.Context, name string, data []byte) (*Session, error) {
	w.mu.Lock()
	cfg := w.cfg
	w.mu.Unlock()

	src, err := cfg.Open(name, data, cfg.MaxBytes, cfg.Render)
	if err != nil {
		return nil, err
	}
	if src.PageCount() <= 0 {
		src.Close()
		return nil, &pdf.ValidationError{Message: fmt.Sprintf("%s has no pages", name)}
	}

	doc := document.New(src.PageCount())
	if cfg.Translate || cfg.TargetLanguage != "" {
		if err := doc.SetTranslation(cfg.Translate, cfg.TargetLanguage); err != nil {
			w.logger.Warn("ignoring configured target language", "language", cfg.TargetLanguage, "error", err)
		}
	}

	s := &Session{
		ID:       uuid.New().String(),
		FileName: name,
		Size:     int64(len(data)),
		LoadedAt: time.Now(),
		Document: doc,
		source:   src,
	}
	engineCfg := cfg.Engine
	engineCfg.SessionID = s.ID
	engineCfg.Recorder = cfg.Recorder
	if engineCfg.Logger == nil {
		engineCfg.Logger = cfg.Logger
	}
	engineCfg.Logger = engineCfg.Logger.With("session_id", s.ID)
	s.Engine = extract.New(doc, src, nil, engineCfg)

	if cfg.UploadsDir != "" {
		if err := os.MkdirAll(cfg.UploadsDir, 0o755); err == nil {
			s.uploadPath = fmt.Sprintf("%s/%s.pdf", cfg.UploadsDir, s.ID)
			if err := os.WriteFile(s.uploadPath, data, 0o644); err != nil {
				w.logger.Warn("failed to keep upload copy", "path", s.uploadPath, "error", err)
				s.uploadPath = ""
			}
		}
	}

	// The first page is rendered up front so it can be previewed at once.
	if _, err := s.Engine.EnsureImage(ctx, 1); err != nil {
		w.logger.Warn("failed to pre-render first page", "error", err)
	}

	w.mu.Lock()
	prev := w.current
	w.current = s
	w.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	w.logger.Info("document loaded",
		"session_id", s.ID,
		"file", name,
		"pages", doc.PageCount(),
		"bytes", s.Size)
	return s, nil
}

// Current returns the loaded session.
func (w *Workspace) Current() (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil, ErrNoDocument
	}
	return w.current, nil
}

// Reset stops any run and discards the current document.
func (w *Workspace) Reset() {
	w.mu.Lock()
	prev := w.current
	w.current = nil
	w.mu.Unlock()

	if prev != nil {
		prev.close()
		w.logger.Info("document discarded", "session_id", prev.ID)
	}
}

// Close releases the current session.
func (w *Workspace) Close() {
	w.Reset()
}

// Start launches a run on the current document with the configured provider.
func (w *Workspace) Start(ctx context.Context) error {
	s, err := w.Current()
	if err != nil {
		return err
	}
	if s.Engine.Running() {
		return extract.ErrAlreadyRunning
	}
	rec, err := w.recognizer()
	if err != nil {
		return err
	}

	w.mu.Lock()
	limits := w.cfg.Engine
	w.mu.Unlock()

	s.Engine.SetRecognizer(rec)
	s.Engine.SetLimits(limits.MaxAttempts, limits.BackoffBase, limits.InterPageDelay)
	return s.Engine.Start(ctx)
}

// Stop requests a cooperative stop of the current run.
func (w *Workspace) Stop() error {
	s, err := w.Current()
	if err != nil {
		return err
	}
	s.Engine.Stop()
	return nil
}

// PageImage returns the JPEG of page n, rendering it on first access.
func (w *Workspace) PageImage(ctx context.Context, n int) ([]byte, error) {
	s, err := w.Current()
	if err != nil {
		return nil, err
	}
	return s.Engine.EnsureImage(ctx, n)
}

// Export renders the current document and returns the bytes and file name.
func (w *Workspace) Export(f export.Format) ([]byte, string, error) {
	s, err := w.Current()
	if err != nil {
		return nil, "", err
	}
	return s.Export(f)
}

// Provider returns the provider used by new runs.
func (w *Workspace) Provider() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cfg.Provider != "" {
		return w.cfg.Provider
	}
	return w.cfg.Registry.Default()
}

// SetProvider selects the provider for new runs.
func (w *Workspace) SetProvider(name string) error {
	if name != "" && !w.cfg.Registry.Has(name) {
		return fmt.Errorf("provider not found: %s", name)
	}
	w.mu.Lock()
	w.cfg.Provider = name
	w.mu.Unlock()
	return nil
}

// Registry returns the provider registry.
func (w *Workspace) Registry() *providers.Registry {
	return w.cfg.Registry
}

// SetLimits updates retry and pacing for the next run.
func (w *Workspace) SetLimits(maxAttempts int, backoffBase, interPageDelay time.Duration) {
	w.mu.Lock()
	w.cfg.Engine.MaxAttempts = maxAttempts
	w.cfg.Engine.BackoffBase = backoffBase
	w.cfg.Engine.InterPageDelay = interPageDelay
	w.mu.Unlock()
}

func (w *Workspace) recognizer() (providers.Recognizer, error) {
	w.mu.Lock()
	name := w.cfg.Provider
	w.mu.Unlock()
	rec, err := w.cfg.Registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
	}
	return rec, nil
}
