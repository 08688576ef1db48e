package endpoints

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/export"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// ExportEndpoint handles GET /api/document/export/{format}.
type ExportEndpoint struct{}

var _ api.Endpoint = (*ExportEndpoint)(nil)

func (e *ExportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/document/export/{format}", e.handler
}

func (e *ExportEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Export the document
//	@Description	Download the selected, extracted pages as html, doc, md or epub
//	@Tags			export
//	@Produce		text/html,application/msword,text/markdown,application/epub+zip
//	@Param			format	path		string	true	"html, doc, md or epub"
//	@Success		200		{file}		file
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/document/export/{format} [get]
func (e *ExportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		writeErr(w, err)
		return
	}
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	data, name, err := s.Export(format)
	if err != nil {
		writeErr(w, err)
		return
	}

	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("document exported", "session_id", s.ID, "format", format, "bytes", len(data))
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *ExportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export <html|doc|md|epub>",
		Short: "Download an export of the current document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(args[0])
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			data, name, err := client.GetRaw(cmd.Context(), "/api/document/export/"+string(format))
			if err != nil {
				return err
			}
			if name == "" {
				name = "document_extracted." + format.Extension()
			}
			path := filepath.Join(outDir, filepath.Base(name))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", path, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	return cmd
}
