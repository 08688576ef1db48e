package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/extract"
	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/svcctx"
	"github.com/jackzampolin/folio/internal/workspace"
)

// DocumentResponse describes the loaded document and its page records.
type DocumentResponse struct {
	Info workspace.Info `json:"document"`
	document.Snapshot
	Provider string           `json:"provider"`
	LastRun  *extract.Summary `json:"last_run,omitempty"`
}

func documentResponse(ws *workspace.Workspace, s *workspace.Session, withContent bool) DocumentResponse {
	snap := s.Document.Snapshot()
	if !withContent {
		for i := range snap.Pages {
			snap.Pages[i].Content = ""
		}
	}
	return DocumentResponse{
		Info:     s.Info(),
		Snapshot: snap,
		Provider: ws.Provider(),
		LastRun:  s.Engine.LastSummary(),
	}
}

// UploadDocumentEndpoint handles POST /api/document with a multipart upload.
type UploadDocumentEndpoint struct {
	MaxBytes int64
}

var _ api.Endpoint = (*UploadDocumentEndpoint)(nil)

func (e *UploadDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/document", e.handler
}

func (e *UploadDocumentEndpoint) RequiresDocument() bool { return false }

// handler godoc
//
//	@Summary		Upload a PDF
//	@Description	Validate and load a PDF, replacing the current document and stopping any run
//	@Tags			document
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF file"
//	@Success		201		{object}	DocumentResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Router			/api/document [post]
func (e *UploadDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ws := svcctx.WorkspaceFrom(r.Context())
	if ws == nil {
		writeError(w, http.StatusServiceUnavailable, "workspace not initialized")
		return
	}

	maxBytes := e.MaxBytes
	if maxBytes <= 0 {
		maxBytes = pdf.DefaultMaxBytes
	}
	// Leave room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)

	const maxMemory = 32 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB limit", maxBytes>>20))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	s, err := ws.Load(r.Context(), header.Filename, data)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, documentResponse(ws, s, false))
}

func (e *UploadDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF and make it the current document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp DocumentResponse
			if err := client.PostFile(cmd.Context(), "/api/document", args[0], &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp.Info)
			}
			fmt.Printf("Loaded %s: %d pages (session %s)\n", resp.Info.FileName, resp.Info.PageCount, resp.Info.ID)
			return nil
		},
	}
}

// GetDocumentEndpoint handles GET /api/document.
type GetDocumentEndpoint struct{}

var _ api.Endpoint = (*GetDocumentEndpoint)(nil)

func (e *GetDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/document", e.handler
}

func (e *GetDocumentEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Get the document
//	@Description	Snapshot of file info, stats, run flags, settings and pages
//	@Tags			document
//	@Produce		json
//	@Param			content	query		bool	false	"Include page content (default true)"
//	@Success		200		{object}	DocumentResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/document [get]
func (e *GetDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	withContent := r.URL.Query().Get("content") != "false"
	writeJSON(w, http.StatusOK, documentResponse(svcctx.WorkspaceFrom(r.Context()), s, withContent))
}

func (e *GetDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var withContent bool
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the current document",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/document"
			if !withContent {
				path += "?content=false"
			}
			var resp DocumentResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			st := resp.Stats
			fmt.Printf("%s: %d pages, %d done, %d failed, %d pending, %d selected\n",
				resp.Info.FileName, st.Total, st.Done, st.Failed, st.Pending, st.Selected)
			fmt.Printf("Words: %d  Elapsed: %s  Running: %t\n", st.Words, st.Elapsed, resp.Processing)
			for _, p := range resp.Pages {
				mark := " "
				if p.Selected {
					mark = "x"
				}
				line := fmt.Sprintf("  [%s] page %3d  %-10s", mark, p.Number, p.Status)
				if p.Error != "" {
					line += "  " + p.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withContent, "content", false, "Include page content")
	return cmd
}

// ResetDocumentEndpoint handles DELETE /api/document.
type ResetDocumentEndpoint struct{}

var _ api.Endpoint = (*ResetDocumentEndpoint)(nil)

func (e *ResetDocumentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/document", e.handler
}

func (e *ResetDocumentEndpoint) RequiresDocument() bool { return false }

// handler godoc
//
//	@Summary		Reset
//	@Description	Stop any run and discard the current document
//	@Tags			document
//	@Success		204
//	@Router			/api/document [delete]
func (e *ResetDocumentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ws := svcctx.WorkspaceFrom(r.Context())
	if ws == nil {
		writeError(w, http.StatusServiceUnavailable, "workspace not initialized")
		return
	}
	ws.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (e *ResetDocumentEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Stop any run and discard the current document",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/document", nil); err != nil {
				return err
			}
			fmt.Println("Document discarded")
			return nil
		},
	}
}

// SelectionRequest sets page inclusion.
type SelectionRequest struct {
	Selected bool `json:"selected"`
}

// SelectAllEndpoint handles PUT /api/document/selection.
type SelectAllEndpoint struct{}

var _ api.Endpoint = (*SelectAllEndpoint)(nil)

func (e *SelectAllEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/document/selection", e.handler
}

func (e *SelectAllEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Select or deselect all pages
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SelectionRequest	true	"Selection"
//	@Success		200		{object}	document.Stats
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/document/selection [put]
func (e *SelectAllEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	s.Document.SetAllSelected(req.Selected)
	writeJSON(w, http.StatusOK, s.Document.Stats())
}

func (e *SelectAllEndpoint) Command(getServerURL func() string) *cobra.Command {
	var none bool
	cmd := &cobra.Command{
		Use:   "select-all",
		Short: "Select every page (or none with --none)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var stats document.Stats
			if err := client.Put(cmd.Context(), "/api/document/selection", SelectionRequest{Selected: !none}, &stats); err != nil {
				return err
			}
			return api.Output(stats)
		},
	}
	cmd.Flags().BoolVar(&none, "none", false, "Deselect every page")
	return cmd
}
