package llmcall

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/providers"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "calls.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFromResult(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		res := &providers.Result{
			Content:          "<p>Hello</p>",
			Provider:         "gemini",
			Model:            "gemini-2.5-pro",
			PromptTokens:     1200,
			CompletionTokens: 40,
		}
		call := FromResult(res, nil, RecordOptions{
			SessionID:  "s1",
			PageNumber: 3,
			Attempt:    2,
			Latency:    1500 * time.Millisecond,
		})
		if call.ID == "" {
			t.Error("expected an ID")
		}
		if !call.Success || call.Error != "" {
			t.Errorf("unexpected status: success=%v error=%q", call.Success, call.Error)
		}
		if call.Provider != "gemini" || call.Model != "gemini-2.5-pro" {
			t.Errorf("unexpected model info: %s/%s", call.Provider, call.Model)
		}
		if call.LatencyMs != 1500 || call.InputTokens != 1200 || call.OutputTokens != 40 {
			t.Errorf("unexpected metrics: %+v", call)
		}
		if call.PageNumber != 3 || call.Attempt != 2 {
			t.Errorf("unexpected page/attempt: %d/%d", call.PageNumber, call.Attempt)
		}
	})

	t.Run("failure", func(t *testing.T) {
		call := FromResult(nil, errors.New("boom"), RecordOptions{Provider: "openai", PageNumber: 1, Attempt: 1})
		if call.Success {
			t.Error("expected failure")
		}
		if call.Error != "boom" || call.Provider != "openai" {
			t.Errorf("unexpected call: %+v", call)
		}
	})
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := []*Call{
		{ID: "a", Timestamp: base, SessionID: "s1", PageNumber: 1, Attempt: 1, Provider: "gemini", Success: true, Response: "<p>one</p>"},
		{ID: "b", Timestamp: base.Add(time.Second), SessionID: "s1", PageNumber: 2, Attempt: 1, Provider: "gemini", Error: "timeout"},
		{ID: "c", Timestamp: base.Add(2 * time.Second), SessionID: "s1", PageNumber: 2, Attempt: 2, Provider: "openai", Success: true},
		{ID: "d", Timestamp: base.Add(3 * time.Second), SessionID: "s2", PageNumber: 1, Attempt: 1, Provider: "gemini", Success: true},
	}
	if err := s.Insert(ctx, calls...); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	t.Run("get", func(t *testing.T) {
		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got == nil || got.Response != "<p>one</p>" || !got.Success {
			t.Errorf("unexpected call: %+v", got)
		}
		if !got.Timestamp.Equal(base) {
			t.Errorf("unexpected timestamp: %v", got.Timestamp)
		}

		missing, err := s.Get(ctx, "zzz")
		if err != nil || missing != nil {
			t.Errorf("expected nil, nil for missing call, got %v, %v", missing, err)
		}
	})

	t.Run("list by session newest first", func(t *testing.T) {
		got, err := s.List(ctx, QueryFilter{SessionID: "s1"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 calls, got %d", len(got))
		}
		if got[0].ID != "c" || got[2].ID != "a" {
			t.Errorf("unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
		}
	})

	t.Run("list with filters", func(t *testing.T) {
		failed := false
		got, err := s.List(ctx, QueryFilter{Success: &failed})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "b" {
			t.Errorf("unexpected failed calls: %+v", got)
		}

		got, err = s.List(ctx, QueryFilter{SessionID: "s1", PageNumber: 2, Limit: 1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "c" {
			t.Errorf("unexpected page 2 calls: %+v", got)
		}
	})

	t.Run("count by provider", func(t *testing.T) {
		counts, err := s.CountByProvider(ctx, "s1")
		if err != nil {
			t.Fatalf("CountByProvider() error = %v", err)
		}
		if counts["gemini"] != 2 || counts["openai"] != 1 {
			t.Errorf("unexpected counts: %v", counts)
		}
	})
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	r := NewRecorder(RecorderConfig{Store: s, FlushInterval: time.Hour})
	r.Start()

	for i := 1; i <= 3; i++ {
		r.RecordCall(FromResult(&providers.Result{Provider: "mock", Content: "x"}, nil, RecordOptions{SessionID: "s", PageNumber: i, Attempt: 1}))
	}
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	got, err := s.List(ctx, QueryFilter{SessionID: "s"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 stored calls, got %d", len(got))
	}

	r.Stop()
	r.RecordCall(&Call{ID: "late"})
	if late, _ := s.Get(ctx, "late"); late != nil {
		t.Error("calls recorded after Stop should be dropped")
	}

	t.Run("nil store is a no-op", func(t *testing.T) {
		r := NewRecorder(RecorderConfig{})
		r.RecordCall(&Call{ID: "x"})
	})
}
