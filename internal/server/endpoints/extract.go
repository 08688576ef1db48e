package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// StartExtractRequest optionally selects the provider for this and later runs.
type StartExtractRequest struct {
	Provider string `json:"provider,omitempty"`
}

// RunResponse reports the run flags and stats after a control request.
type RunResponse struct {
	Processing    bool           `json:"processing"`
	StopRequested bool           `json:"stop_requested"`
	Provider      string         `json:"provider"`
	Stats         document.Stats `json:"stats"`
}

// StartExtractEndpoint handles POST /api/document/extract.
type StartExtractEndpoint struct{}

var _ api.Endpoint = (*StartExtractEndpoint)(nil)

func (e *StartExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/document/extract", e.handler
}

func (e *StartExtractEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Start extraction
//	@Description	Process selected pages that are not done, resuming at the first unfinished page
//	@Tags			extract
//	@Accept			json
//	@Produce		json
//	@Param			request	body		StartExtractRequest	false	"Provider override"
//	@Success		202		{object}	RunResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/document/extract [post]
func (e *StartExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	// The body is optional.
	var req StartExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	ws := svcctx.WorkspaceFrom(r.Context())
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if req.Provider != "" {
		if err := ws.SetProvider(req.Provider); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	// The run outlives the request.
	if err := ws.Start(context.WithoutCancel(r.Context())); err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, RunResponse{
		Processing:    s.Document.IsProcessing(),
		StopRequested: s.Document.StopRequested(),
		Provider:      ws.Provider(),
		Stats:         s.Document.Stats(),
	})
}

func (e *StartExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Start extraction on the current document",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RunResponse
			if err := client.Post(cmd.Context(), "/api/document/extract", StartExtractRequest{Provider: provider}, &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			fmt.Printf("Extraction started with %s (%d of %d pages done)\n", resp.Provider, resp.Stats.Done, resp.Stats.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider to use (default: configured provider)")
	return cmd
}

// StopExtractEndpoint handles POST /api/document/stop.
type StopExtractEndpoint struct{}

var _ api.Endpoint = (*StopExtractEndpoint)(nil)

func (e *StopExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/document/stop", e.handler
}

func (e *StopExtractEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Stop extraction
//	@Description	Request a cooperative stop; the in-flight page finishes first
//	@Tags			extract
//	@Produce		json
//	@Success		202	{object}	RunResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/document/stop [post]
func (e *StopExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ws := svcctx.WorkspaceFrom(r.Context())
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := ws.Stop(); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RunResponse{
		Processing:    s.Document.IsProcessing(),
		StopRequested: s.Document.StopRequested(),
		Provider:      ws.Provider(),
		Stats:         s.Document.Stats(),
	})
}

func (e *StopExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp RunResponse
			if err := client.Post(cmd.Context(), "/api/document/stop", nil, &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			if resp.Processing {
				fmt.Println("Stop requested; the current page will finish first")
			} else {
				fmt.Println("No extraction running")
			}
			return nil
		},
	}
}
