// Package extract drives the pages of a document through rendering,
// recognition and retry, one page at a time.
//
// A run walks pages in ascending order starting at the first selected
// pending or error page. Done and unselected pages are skipped. Each page is
// rendered (once, then cached), moved to processing, and recognized with up
// to MaxAttempts attempts separated by a linearly growing backoff. Stop is a
// cancellation observed between pages, before each attempt, and during every
// wait. A recognition call already in flight is never interrupted by stop.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/singleflight"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/providers"
)

var (
	// ErrAlreadyRunning is returned when a run is requested while one is active.
	ErrAlreadyRunning = errors.New("extraction is already running")

	// ErrNothingToProcess is returned when every selected page is done.
	ErrNothingToProcess = errors.New("select at least one page that is not done")

	// ErrStopped marks an attempt loop abandoned because of a stop request.
	ErrStopped = errors.New("extraction stopped")
)

// RenderFailureMessage is stored on a page whose image could not be produced.
const RenderFailureMessage = "Could not read the image of this page."

// RejectedMessage is stored on a page the recognizer refused outright.
func RejectedMessage(reason string) string {
	return fmt.Sprintf("The provider cannot process this page: %s.", reason)
}

// FailureMessage is stored on a page whose recognition failed on every attempt.
func FailureMessage(attempts int) string {
	return fmt.Sprintf("Failed after %d attempts. This may be caused by network errors or API limits.", attempts)
}

// Timer abstracts waiting so tests can observe and skip delays.
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

type realTimer struct{}

func (realTimer) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// CallRecorder receives one record per recognition attempt.
type CallRecorder interface {
	RecordCall(call *llmcall.Call)
}

// Config controls retry and pacing.
type Config struct {
	MaxAttempts    int           // default: 3
	BackoffBase    time.Duration // default: 2s; attempt k waits k*BackoffBase
	InterPageDelay time.Duration // default: 1s
	RenderScale    float64       // default: 1.5

	SessionID string
	Timer     Timer
	Logger    *slog.Logger
	Recorder  CallRecorder
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.InterPageDelay < 0 {
		c.InterPageDelay = 0
	} else if c.InterPageDelay == 0 {
		c.InterPageDelay = time.Second
	}
	if c.RenderScale <= 0 {
		c.RenderScale = pdf.DefaultScale
	}
	if c.Timer == nil {
		c.Timer = realTimer{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Summary describes a finished run.
type Summary struct {
	Done     int           `json:"done"`
	Failed   int           `json:"failed"`
	Attempts int           `json:"attempts"`
	Stopped  bool          `json:"stopped"`
	Duration time.Duration `json:"duration"`
}

// Engine runs extraction over one document.
type Engine struct {
	doc     *document.Document
	src     pdf.Source
	renders singleflight.Group

	mu     sync.Mutex
	cfg    Config
	rec    providers.Recognizer
	logger *slog.Logger
	stop   context.CancelFunc
	done   chan struct{}
	last   *Summary
}

// New creates an engine. The engine is the only writer of page status while
// a run is active.
func New(doc *document.Document, src pdf.Source, rec providers.Recognizer, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		doc:    doc,
		src:    src,
		cfg:    cfg,
		rec:    rec,
		logger: cfg.Logger.With("component", "extract"),
	}
}

// Document returns the document the engine works on.
func (e *Engine) Document() *document.Document {
	return e.doc
}

// SetRecognizer replaces the recognizer. Pages that start afterwards use it.
func (e *Engine) SetRecognizer(rec providers.Recognizer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec = rec
}

// Recognizer returns the current recognizer.
func (e *Engine) Recognizer() providers.Recognizer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec
}

// SetLimits updates retry and pacing settings for the next run.
func (e *Engine) SetLimits(maxAttempts int, backoffBase, interPageDelay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.cfg
	cfg.MaxAttempts = maxAttempts
	cfg.BackoffBase = backoffBase
	cfg.InterPageDelay = interPageDelay
	e.cfg = cfg.withDefaults()
}

// Running reports whether a run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done != nil
}

// LastSummary returns the summary of the most recent finished run, or nil.
func (e *Engine) LastSummary() *Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Run executes one run synchronously. ctx bounds the whole run, including
// in-flight recognition calls; Stop only prevents new work.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	stopCtx, cfg, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	sum := e.loop(ctx, stopCtx, cfg)
	e.finish(sum)
	return sum, nil
}

// Start launches a run in the background. Guard errors are returned
// synchronously.
func (e *Engine) Start(ctx context.Context) error {
	stopCtx, cfg, err := e.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		sum := e.loop(ctx, stopCtx, cfg)
		e.finish(sum)
	}()
	return nil
}

// Stop requests a cooperative stop of the active run. It does not wait.
func (e *Engine) Stop() {
	e.doc.RequestStop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		e.stop()
	}
}

// Wait blocks until the active run, if any, has finished.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (e *Engine) begin(ctx context.Context) (context.Context, Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done != nil {
		return nil, Config{}, ErrAlreadyRunning
	}
	if !e.doc.NeedsWork() {
		return nil, Config{}, ErrNothingToProcess
	}
	if e.rec == nil {
		return nil, Config{}, fmt.Errorf("no recognizer configured")
	}
	if !e.doc.BeginRun() {
		return nil, Config{}, ErrAlreadyRunning
	}

	stopCtx, cancel := context.WithCancel(ctx)
	e.stop = cancel
	e.done = make(chan struct{})
	return stopCtx, e.cfg, nil
}

func (e *Engine) finish(sum *Summary) {
	e.doc.EndRun()

	e.mu.Lock()
	e.stop()
	e.stop = nil
	close(e.done)
	e.done = nil
	e.last = sum
	e.mu.Unlock()

	e.logger.Info("extraction finished",
		"done", sum.Done,
		"failed", sum.Failed,
		"attempts", sum.Attempts,
		"stopped", sum.Stopped,
		"duration", sum.Duration)
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeFailed
	outcomeRenderFailed
	outcomeAbandoned
	outcomeStopped
)

func (e *Engine) loop(ctx, stopCtx context.Context, cfg Config) *Summary {
	start := time.Now()
	sum := &Summary{}

	first := e.doc.ResumePoint()
	if first == 0 {
		first = 1
	}
	e.logger.Info("extraction started", "resume_at", first, "pages", e.doc.PageCount())

	for n := first; n <= e.doc.PageCount(); n++ {
		if stopCtx.Err() != nil {
			sum.Stopped = true
			break
		}

		page, err := e.doc.Page(n)
		if err != nil {
			break
		}
		if !page.Selected || page.Status == document.StatusDone {
			continue
		}

		switch e.processPage(ctx, stopCtx, cfg, n, sum) {
		case outcomeDone:
			sum.Done++
		case outcomeFailed:
			sum.Failed++
		case outcomeRenderFailed:
			sum.Failed++
			continue
		case outcomeAbandoned, outcomeStopped:
			sum.Stopped = true
		}
		if sum.Stopped {
			break
		}

		if stopCtx.Err() != nil || !e.doc.HasWorkAfter(n) {
			continue
		}
		if err := e.wait(stopCtx, cfg.Timer, cfg.InterPageDelay); err != nil {
			sum.Stopped = true
			break
		}
	}

	sum.Duration = time.Since(start)
	return sum
}

func (e *Engine) processPage(ctx, stopCtx context.Context, cfg Config, n int, sum *Summary) outcome {
	logger := e.logger.With("page_num", n)

	img, err := e.render(ctx, n, cfg.RenderScale)
	if err != nil {
		logger.Warn("failed to render page", "error", err)
		if err := e.doc.MarkError(n, RenderFailureMessage); err != nil {
			logger.Error("failed to record render error", "error", err)
		}
		return outcomeRenderFailed
	}

	// The image is cached; the page stays as it was until the next run.
	if stopCtx.Err() != nil {
		logger.Info("stop requested before recognition")
		return outcomeStopped
	}

	if err := e.doc.MarkProcessing(n); err != nil {
		logger.Error("failed to mark page processing", "error", err)
		return outcomeFailed
	}

	rec := e.Recognizer()
	req := &providers.Request{
		Image:          img,
		PageNumber:     n,
		TargetLanguage: e.doc.TargetLanguage(),
	}

	var content string
	attempts := 0
	err = retry.Do(
		func() error {
			if stopCtx.Err() != nil {
				return retry.Unrecoverable(ErrStopped)
			}
			// A rate limit hold is not part of the call, so stop ends it.
			if l, ok := rec.(*providers.Limited); ok {
				if err := l.Wait(stopCtx); err != nil {
					return retry.Unrecoverable(ErrStopped)
				}
			}
			attempts++
			sum.Attempts++
			if err := e.doc.RecordAttempt(n); err != nil {
				return retry.Unrecoverable(err)
			}
			res, err := e.recognize(ctx, cfg, rec, req, attempts)
			if err != nil {
				return err
			}
			content = res.Content
			return nil
		},
		retry.Context(stopCtx),
		retry.Attempts(uint(cfg.MaxAttempts)),
		retry.DelayType(func(k uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(k) * cfg.BackoffBase
		}),
		retry.WithTimer(cfg.Timer),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && !providers.IsPermanent(err)
		}),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(k uint, err error) {
			logger.Debug("recognition attempt failed",
				"attempt", k+1,
				"max_attempts", cfg.MaxAttempts,
				"error", err)
		}),
	)

	switch {
	case err == nil:
		if err := e.doc.MarkDone(n, content); err != nil {
			logger.Error("failed to mark page done", "error", err)
			return outcomeFailed
		}
		logger.Info("page done", "attempts", attempts)
		return outcomeDone

	case errors.Is(err, ErrStopped) || (stopCtx.Err() != nil && attempts < cfg.MaxAttempts):
		if err := e.doc.MarkAbandoned(n); err != nil {
			logger.Error("failed to revert abandoned page", "error", err)
		}
		logger.Info("page abandoned on stop", "attempts", attempts)
		return outcomeAbandoned

	case providers.IsPermanent(err):
		var ce *providers.ContentError
		errors.As(err, &ce)
		if err := e.doc.MarkError(n, RejectedMessage(ce.Reason)); err != nil {
			logger.Error("failed to mark page error", "error", err)
		}
		logger.Warn("page rejected by provider", "attempts", attempts, "error", err)
		return outcomeFailed

	default:
		if err := e.doc.MarkError(n, FailureMessage(cfg.MaxAttempts)); err != nil {
			logger.Error("failed to mark page error", "error", err)
		}
		logger.Warn("page failed", "attempts", attempts, "error", err)
		return outcomeFailed
	}
}

func (e *Engine) recognize(ctx context.Context, cfg Config, rec providers.Recognizer, req *providers.Request, attempt int) (*providers.Result, error) {
	call := rec.Recognize
	if l, ok := rec.(*providers.Limited); ok {
		call = l.RecognizeNow
	}
	start := time.Now()
	res, err := call(ctx, req)
	if cfg.Recorder != nil {
		cfg.Recorder.RecordCall(llmcall.FromResult(res, err, llmcall.RecordOptions{
			SessionID:      cfg.SessionID,
			PageNumber:     req.PageNumber,
			Attempt:        attempt,
			Provider:       rec.Name(),
			TargetLanguage: req.TargetLanguage,
			Latency:        time.Since(start),
		}))
	}
	return res, err
}

func (e *Engine) wait(ctx context.Context, timer Timer, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-timer.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnsureImage returns the cached bitmap of page n, rendering it first if
// needed. Concurrent callers for the same page share one render.
func (e *Engine) EnsureImage(ctx context.Context, n int) ([]byte, error) {
	e.mu.Lock()
	scale := e.cfg.RenderScale
	e.mu.Unlock()
	return e.render(ctx, n, scale)
}

func (e *Engine) render(ctx context.Context, n int, scale float64) ([]byte, error) {
	page, err := e.doc.Page(n)
	if err != nil {
		return nil, err
	}
	if page.HasImage() {
		return page.Image, nil
	}

	v, err, _ := e.renders.Do(strconv.Itoa(n), func() (any, error) {
		if p, err := e.doc.Page(n); err == nil && p.HasImage() {
			return p.Image, nil
		}
		img, err := e.src.Rasterize(ctx, n, scale)
		if err != nil {
			var re *pdf.RenderError
			if !errors.As(err, &re) {
				err = &pdf.RenderError{Page: n, Err: err}
			}
			return nil, err
		}
		if err := e.doc.SetImage(n, img); err != nil {
			return nil, err
		}
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
