package document

import (
	"fmt"
	"time"
)

// PageView is the externally visible form of a page record.
type PageView struct {
	Number     int    `json:"page_num"`
	Status     Status `json:"status"`
	Selected   bool   `json:"selected"`
	RetryCount int    `json:"retry_count"`
	HasImage   bool   `json:"has_image"`
	Content    string `json:"content,omitempty"`
	Error      string `json:"error,omitempty"`
	Edited     bool   `json:"edited,omitempty"`
	Words      int    `json:"words"`
}

func (p Page) view() PageView {
	v := PageView{
		Number:     p.Number,
		Status:     p.Status,
		Selected:   p.Selected,
		RetryCount: p.RetryCount,
		HasImage:   p.HasImage(),
		Content:    p.Content,
		Error:      p.Error,
		Edited:     p.Edited,
	}
	if p.Status == StatusDone {
		v.Words = CountWords(p.Content)
	}
	return v
}

// View returns the externally visible form of the page.
func (p Page) View() PageView {
	return p.view()
}

// Stats are aggregate figures derived from the page records.
type Stats struct {
	Total          int    `json:"total"`
	Selected       int    `json:"selected"`
	Pending        int    `json:"pending"`
	Processing     int    `json:"processing"`
	Done           int    `json:"done"`
	Failed         int    `json:"failed"`
	Words          int    `json:"words"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Elapsed        string `json:"elapsed"`
}

// Snapshot is a consistent copy of the document state at one instant.
type Snapshot struct {
	Processing         bool       `json:"processing"`
	StopRequested      bool       `json:"stop_requested"`
	TranslationEnabled bool       `json:"translation_enabled"`
	TargetLanguage     string     `json:"target_language"`
	Stats              Stats      `json:"stats"`
	Pages              []PageView `json:"pages"`
}

// Snapshot captures the document state under a single read lock.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Snapshot{
		Processing:         d.processing,
		StopRequested:      d.stopRequested,
		TranslationEnabled: d.translationEnabled,
		TargetLanguage:     d.targetLanguage,
		Pages:              make([]PageView, len(d.pages)),
	}
	for i, p := range d.pages {
		s.Pages[i] = p.view()
	}
	s.Stats = d.statsLocked(s.Pages)
	return s
}

// Stats returns the aggregate statistics.
func (d *Document) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	views := make([]PageView, len(d.pages))
	for i, p := range d.pages {
		views[i] = p.view()
	}
	return d.statsLocked(views)
}

func (d *Document) statsLocked(views []PageView) Stats {
	st := Stats{Total: len(views)}
	for _, v := range views {
		if v.Selected {
			st.Selected++
		}
		switch v.Status {
		case StatusPending:
			st.Pending++
		case StatusProcessing:
			st.Processing++
		case StatusDone:
			st.Done++
			st.Words += v.Words
		case StatusError:
			st.Failed++
		}
	}
	elapsed := d.elapsedLocked()
	st.ElapsedSeconds = int(elapsed / time.Second)
	st.Elapsed = FormatElapsed(elapsed)
	return st
}

// FormatElapsed renders a duration as mm:ss. Minutes keep counting past 59.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
