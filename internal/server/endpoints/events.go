package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// eventKeepAlive is how often an idle stream sends a comment line and
// checks that its document is still the loaded one.
var eventKeepAlive = 15 * time.Second

// EventsEndpoint handles GET /api/document/events.
type EventsEndpoint struct{}

var _ api.Endpoint = (*EventsEndpoint)(nil)

func (e *EventsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/document/events", e.handler
}

func (e *EventsEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Stream document changes
//	@Description	Server-sent events: a "snapshot" first, then "page", "run", "settings" and "document" events. The stream ends when the document is replaced or reset.
//	@Tags			document
//	@Produce		text/event-stream
//	@Success		200
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/document/events [get]
func (e *EventsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ws := svcctx.WorkspaceFrom(r.Context())
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	events, unsubscribe := s.Document.Subscribe()
	defer unsubscribe()

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "snapshot", documentResponse(ws, s, false)); err != nil {
		return
	}

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, string(ev.Type), eventPayload(s.Document, ev)); err != nil {
				return
			}
		case <-ticker.C:
			if cur, err := ws.Current(); err != nil || cur != s {
				writeEvent(w, "closed", ErrorResponse{Error: "document replaced"})
				return
			}
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// eventPayload attaches fresh stats to run-level events so clients need not
// refetch the document.
func eventPayload(doc *document.Document, ev document.Event) any {
	if ev.Page != nil {
		return ev
	}
	return struct {
		document.Event
		Stats         document.Stats `json:"stats"`
		Processing    bool           `json:"processing"`
		StopRequested bool           `json:"stop_requested"`
	}{
		Event:         ev,
		Stats:         doc.Stats(),
		Processing:    doc.IsProcessing(),
		StopRequested: doc.StopRequested(),
	}
}

func writeEvent(w http.ResponseWriter, eventType string, v any) error {
	rc := http.NewResponseController(w)

	var data bytes.Buffer
	enc := json.NewEncoder(&data)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, strings.TrimSpace(data.String())); err != nil {
		return err
	}
	return rc.Flush()
}

func (e *EventsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream page updates until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := api.NewClient(getServerURL())
			return client.Stream(ctx, "/api/document/events", func(data []byte) error {
				if api.IsStructuredOutput() {
					fmt.Println(string(data))
					return nil
				}
				var ev document.Event
				if err := json.Unmarshal(data, &ev); err != nil || ev.Page == nil {
					return nil
				}
				p := ev.Page
				line := fmt.Sprintf("page %3d  %-10s attempts=%d", p.Number, p.Status, p.RetryCount)
				if p.Error != "" {
					line += "  " + p.Error
				}
				fmt.Println(line)
				return nil
			})
		},
	}
}
