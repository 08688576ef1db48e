// Package document holds the in-memory state of one loaded PDF: its page
// records, run flags, translation settings and derived statistics.
//
// A Document is the single owner of that state. The extraction engine is the
// only writer of page status during a run; API handlers and the CLI read
// copies through Page, Pages and Snapshot, or follow changes via Subscribe.
package document

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrInvalidTransition is matched by every TransitionError.
	ErrInvalidTransition = errors.New("invalid page status transition")

	// ErrPageNotFound is returned for page numbers outside 1..N.
	ErrPageNotFound = errors.New("page not found")

	// ErrUnsupportedLanguage is returned when a target language is not in Languages.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Document is the ordered set of page records for one source file.
type Document struct {
	mu    sync.RWMutex
	pages []Page

	processing    bool
	stopRequested bool

	// elapsed accumulates wall time across runs; runStarted is set while a run is active.
	elapsed    time.Duration
	runStarted time.Time

	translationEnabled bool
	targetLanguage     string

	subs   map[int]chan Event
	nextID int

	now func() time.Time
}

// Option configures a Document.
type Option func(*Document)

// WithClock overrides the time source used for elapsed time.
func WithClock(now func() time.Time) Option {
	return func(d *Document) {
		d.now = now
	}
}

// New creates a Document with pageCount pending, selected pages numbered 1..pageCount.
func New(pageCount int, opts ...Option) *Document {
	if pageCount < 0 {
		pageCount = 0
	}
	d := &Document{
		pages:          make([]Page, pageCount),
		targetLanguage: DefaultTargetLanguage,
		subs:           make(map[int]chan Event),
		now:            time.Now,
	}
	for i := range d.pages {
		d.pages[i] = Page{
			Number:   i + 1,
			Status:   StatusPending,
			Selected: true,
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pages)
}

// Page returns a copy of page n.
func (d *Document) Page(n int) (Page, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n < 1 || n > len(d.pages) {
		return Page{}, fmt.Errorf("page %d: %w", n, ErrPageNotFound)
	}
	return d.pages[n-1], nil
}

// Pages returns a copy of every page record in page order.
func (d *Document) Pages() []Page {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Page, len(d.pages))
	copy(out, d.pages)
	return out
}

// NeedsWork reports whether any selected page is not yet done.
func (d *Document) NeedsWork() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.pages {
		if p.NeedsWork() {
			return true
		}
	}
	return false
}

// ResumePoint returns the number of the first selected pending or error page,
// or 0 if there is none.
func (d *Document) ResumePoint() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.pages {
		if p.Resumable() {
			return p.Number
		}
	}
	return 0
}

// HasWorkAfter reports whether a page numbered above n still needs work.
func (d *Document) HasWorkAfter(n int) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := n; i < len(d.pages); i++ {
		if d.pages[i].NeedsWork() {
			return true
		}
	}
	return false
}

// update applies fn to a copy of page n and stores the result as the new record.
func (d *Document) update(n int, fn func(p *Page) error) (Page, error) {
	d.mu.Lock()
	if n < 1 || n > len(d.pages) {
		d.mu.Unlock()
		return Page{}, fmt.Errorf("page %d: %w", n, ErrPageNotFound)
	}
	p := d.pages[n-1]
	if err := fn(&p); err != nil {
		d.mu.Unlock()
		return Page{}, err
	}
	d.pages[n-1] = p
	d.mu.Unlock()

	v := p.view()
	d.publish(Event{Type: EventPage, Page: &v})
	return p, nil
}

func (d *Document) transition(n int, to Status, fn func(p *Page)) error {
	_, err := d.update(n, func(p *Page) error {
		if !canTransition(p.Status, to) {
			return &TransitionError{Page: n, From: p.Status, To: to}
		}
		if to == StatusProcessing {
			for _, other := range d.pages {
				if other.Status == StatusProcessing && other.Number != n {
					return fmt.Errorf("page %d: page %d is already processing: %w", n, other.Number, ErrInvalidTransition)
				}
			}
		}
		p.Status = to
		if fn != nil {
			fn(p)
		}
		return nil
	})
	return err
}

// SetImage caches the rendered bitmap for page n. An existing image is kept.
func (d *Document) SetImage(n int, img []byte) error {
	_, err := d.update(n, func(p *Page) error {
		if len(p.Image) == 0 {
			p.Image = img
		}
		return nil
	})
	return err
}

// MarkProcessing moves page n to processing and clears any previous error.
func (d *Document) MarkProcessing(n int) error {
	return d.transition(n, StatusProcessing, func(p *Page) {
		p.Error = ""
	})
}

// RecordAttempt increments the informational attempt counter of page n.
func (d *Document) RecordAttempt(n int) error {
	_, err := d.update(n, func(p *Page) error {
		p.RetryCount++
		return nil
	})
	return err
}

// MarkDone stores recognized content and moves page n to done.
func (d *Document) MarkDone(n int, content string) error {
	return d.transition(n, StatusDone, func(p *Page) {
		p.Content = content
		p.Error = ""
		p.Edited = false
	})
}

// MarkError moves page n to error with a user-facing message.
func (d *Document) MarkError(n int, msg string) error {
	return d.transition(n, StatusError, func(p *Page) {
		p.Error = msg
	})
}

// MarkAbandoned reverts a processing page to pending after a stop request.
func (d *Document) MarkAbandoned(n int) error {
	return d.transition(n, StatusPending, nil)
}

// EditContent overwrites the content of page n without changing its status.
// This is the manual-edit side channel; the last write wins.
func (d *Document) EditContent(n int, content string) (Page, error) {
	return d.update(n, func(p *Page) error {
		p.Content = content
		p.Edited = true
		return nil
	})
}

// SetSelected sets the inclusion flag of page n.
func (d *Document) SetSelected(n int, selected bool) (Page, error) {
	return d.update(n, func(p *Page) error {
		p.Selected = selected
		return nil
	})
}

// ToggleSelected flips the inclusion flag of page n.
func (d *Document) ToggleSelected(n int) (Page, error) {
	return d.update(n, func(p *Page) error {
		p.Selected = !p.Selected
		return nil
	})
}

// SetAllSelected sets the inclusion flag of every page.
func (d *Document) SetAllSelected(selected bool) {
	d.mu.Lock()
	for i := range d.pages {
		d.pages[i].Selected = selected
	}
	d.mu.Unlock()
	d.publish(Event{Type: EventDocument})
}

// SetTranslation updates the translation settings. An empty targetLanguage
// keeps the current one. Pages that start recognition afterwards use the
// new values.
func (d *Document) SetTranslation(enabled bool, targetLanguage string) error {
	var name string
	if targetLanguage != "" {
		lang, ok := LookupLanguage(targetLanguage)
		if !ok {
			return fmt.Errorf("%q: %w", targetLanguage, ErrUnsupportedLanguage)
		}
		name = lang.Name
	}

	d.mu.Lock()
	d.translationEnabled = enabled
	if name != "" {
		d.targetLanguage = name
	}
	d.mu.Unlock()
	d.publish(Event{Type: EventSettings})
	return nil
}

// Translation returns the current translation settings.
func (d *Document) Translation() (enabled bool, targetLanguage string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.translationEnabled, d.targetLanguage
}

// TargetLanguage returns the language recognition should translate into, or
// "" when translation is off.
func (d *Document) TargetLanguage() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.translationEnabled {
		return ""
	}
	return d.targetLanguage
}

// BeginRun marks the document as processing. It returns false if a run is
// already active.
func (d *Document) BeginRun() bool {
	d.mu.Lock()
	if d.processing {
		d.mu.Unlock()
		return false
	}
	d.processing = true
	d.stopRequested = false
	d.runStarted = d.now()
	d.mu.Unlock()
	d.publish(Event{Type: EventRun})
	return true
}

// EndRun clears the processing and stop flags and folds the run's wall time
// into the elapsed total.
func (d *Document) EndRun() {
	d.mu.Lock()
	if d.processing {
		d.elapsed += d.now().Sub(d.runStarted)
	}
	d.processing = false
	d.stopRequested = false
	d.runStarted = time.Time{}
	d.mu.Unlock()
	d.publish(Event{Type: EventRun})
}

// RequestStop records a stop request for display. The engine's cancellation
// token is what the control loop actually observes.
func (d *Document) RequestStop() {
	d.mu.Lock()
	if !d.processing {
		d.mu.Unlock()
		return
	}
	d.stopRequested = true
	d.mu.Unlock()
	d.publish(Event{Type: EventRun})
}

// IsProcessing reports whether a run is active.
func (d *Document) IsProcessing() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.processing
}

// StopRequested reports whether a stop was requested for the active run.
func (d *Document) StopRequested() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stopRequested
}

// Elapsed returns the total processing wall time.
func (d *Document) Elapsed() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.elapsedLocked()
}

func (d *Document) elapsedLocked() time.Duration {
	e := d.elapsed
	if d.processing {
		e += d.now().Sub(d.runStarted)
	}
	return e
}
