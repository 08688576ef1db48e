package endpoints

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/pdf"
)

// GetPageEndpoint handles GET /api/document/pages/{page_num}.
type GetPageEndpoint struct{}

var _ api.Endpoint = (*GetPageEndpoint)(nil)

func (e *GetPageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/document/pages/{page_num}", e.handler
}

func (e *GetPageEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Get page
//	@Description	Status, retry count and content of one page
//	@Tags			pages
//	@Produce		json
//	@Param			page_num	path		int	true	"Page number (1-indexed)"
//	@Success		200			{object}	document.PageView
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/document/pages/{page_num} [get]
func (e *GetPageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	n, ok := pageNumber(w, r)
	if !ok {
		return
	}
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	p, err := s.Document.Page(n)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (e *GetPageEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "page <page_num>",
		Short: "Show one page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp document.PageView
			if err := client.Get(cmd.Context(), "/api/document/pages/"+args[0], &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			fmt.Printf("Page %d: %s (attempts: %d, selected: %t)\n", resp.Number, resp.Status, resp.RetryCount, resp.Selected)
			if resp.Error != "" {
				fmt.Println(resp.Error)
			}
			fmt.Println(resp.Content)
			return nil
		},
	}
}

// PageImageEndpoint handles GET /api/document/pages/{page_num}/image.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/document/pages/{page_num}/image", e.handler
}

func (e *PageImageEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Get page image
//	@Description	JPEG of a page, rendered on first request and cached
//	@Tags			pages
//	@Produce		image/jpeg
//	@Param			page_num	path		int	true	"Page number (1-indexed)"
//	@Success		200			{file}		binary
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/document/pages/{page_num}/image [get]
func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	n, ok := pageNumber(w, r)
	if !ok {
		return
	}
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	img, err := s.Engine.EnsureImage(r.Context(), n)
	if err != nil {
		writeErr(w, err)
		return
	}

	w.Header().Set("Content-Type", pdf.MIMETypeJPEG)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, fmt.Sprintf("page_%04d.jpg", n), s.LoadedAt, bytes.NewReader(img))
}

func (e *PageImageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "image <page_num>",
		Short: "Download the rendered page image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid page number %q", args[0])
			}
			client := api.NewClient(getServerURL())
			data, name, err := client.GetRaw(cmd.Context(), fmt.Sprintf("/api/document/pages/%d/image", n))
			if err != nil {
				return err
			}
			if outputPath == "" {
				outputPath = name
			}
			if outputPath == "" {
				outputPath = fmt.Sprintf("page_%04d.jpg", n)
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", outputPath, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&outputPath, "out", "", "Output file path")
	return cmd
}

// ContentRequest replaces the content of a page.
type ContentRequest struct {
	Content string `json:"content"`
}

// UpdatePageContentEndpoint handles PUT /api/document/pages/{page_num}/content.
type UpdatePageContentEndpoint struct{}

var _ api.Endpoint = (*UpdatePageContentEndpoint)(nil)

func (e *UpdatePageContentEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/document/pages/{page_num}/content", e.handler
}

func (e *UpdatePageContentEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Edit page content
//	@Description	Overwrite page content; status is unchanged and the last write wins
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			page_num	path		int				true	"Page number (1-indexed)"
//	@Param			request		body		ContentRequest	true	"New content"
//	@Success		200			{object}	document.PageView
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/document/pages/{page_num}/content [put]
func (e *UpdatePageContentEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	n, ok := pageNumber(w, r)
	if !ok {
		return
	}
	var req ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	p, err := s.Document.EditContent(n, req.Content)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (e *UpdatePageContentEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "edit <page_num>",
		Short: "Replace page content from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if file == "" || file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}
			client := api.NewClient(getServerURL())
			var resp document.PageView
			path := fmt.Sprintf("/api/document/pages/%s/content", args[0])
			if err := client.Put(cmd.Context(), path, ContentRequest{Content: string(data)}, &resp); err != nil {
				return err
			}
			fmt.Printf("Page %d updated (%d words)\n", resp.Number, resp.Words)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "HTML file with the new content (default stdin)")
	return cmd
}

// SetPageSelectionEndpoint handles PUT /api/document/pages/{page_num}/selection.
type SetPageSelectionEndpoint struct{}

var _ api.Endpoint = (*SetPageSelectionEndpoint)(nil)

func (e *SetPageSelectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/document/pages/{page_num}/selection", e.handler
}

func (e *SetPageSelectionEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Set page selection
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			page_num	path		int					true	"Page number (1-indexed)"
//	@Param			request		body		SelectionRequest	true	"Selection"
//	@Success		200			{object}	document.PageView
//	@Failure		400			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/document/pages/{page_num}/selection [put]
func (e *SetPageSelectionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	n, ok := pageNumber(w, r)
	if !ok {
		return
	}
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	p, err := s.Document.SetSelected(n, req.Selected)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (e *SetPageSelectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var deselect bool
	cmd := &cobra.Command{
		Use:   "select <page_num>...",
		Short: "Select pages for processing and export (or deselect with --off)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			ctx := cmd.Context()
			for _, arg := range args {
				var resp document.PageView
				path := fmt.Sprintf("/api/document/pages/%s/selection", arg)
				if err := client.Put(ctx, path, SelectionRequest{Selected: !deselect}, &resp); err != nil {
					return fmt.Errorf("page %s: %w", arg, err)
				}
				fmt.Printf("Page %d selected: %t\n", resp.Number, resp.Selected)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&deselect, "off", false, "Deselect instead of select")
	return cmd
}
