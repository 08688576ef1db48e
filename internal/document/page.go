package document

import "fmt"

// Status is the processing state of a single page.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Page is the per-page record tracked by a Document.
//
// A Page value is always a copy. The Document replaces whole records on every
// mutation so readers never observe a partially updated page.
//
// Status only moves along the transitions checked by canTransition. Two
// operations bypass the state machine on purpose: EditContent overwrites
// Content (and sets Edited) without touching Status, and SetSelected changes
// only Selected.
type Page struct {
	Number     int    `json:"page_num"`
	Image      []byte `json:"-"`
	Content    string `json:"content"`
	Status     Status `json:"status"`
	RetryCount int    `json:"retry_count"`
	Selected   bool   `json:"selected"`
	Error      string `json:"error,omitempty"`
	Edited     bool   `json:"edited,omitempty"`
}

// HasImage reports whether the rendered bitmap is cached.
func (p Page) HasImage() bool {
	return len(p.Image) > 0
}

// NeedsWork reports whether a run would process this page.
func (p Page) NeedsWork() bool {
	return p.Selected && p.Status != StatusDone
}

// Resumable reports whether a run may begin at this page.
func (p Page) Resumable() bool {
	return p.Selected && (p.Status == StatusPending || p.Status == StatusError)
}

// Exportable reports whether exporters include this page.
func (p Page) Exportable() bool {
	return p.Selected && p.Status == StatusDone
}

// canTransition reports whether the automatic state machine allows from -> to.
//
//	pending    -> processing | error (render failure)
//	error      -> processing | error (render failure)
//	processing -> done | error | pending (abandoned by stop)
//
// done is terminal.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending, StatusError:
		return to == StatusProcessing || to == StatusError
	case StatusProcessing:
		return to == StatusDone || to == StatusError || to == StatusPending
	default:
		return false
	}
}

// TransitionError reports a status change the state machine does not allow.
type TransitionError struct {
	Page int
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("page %d: invalid transition %s -> %s", e.Page, e.From, e.To)
}

// Is lets errors.Is match any TransitionError against ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
