package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/export"
	"github.com/jackzampolin/folio/internal/extract"
	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/svcctx"
	"github.com/jackzampolin/folio/internal/workspace"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		pdfInvalid    *pdf.ValidationError
		exportInvalid *export.ValidationError
	)
	switch {
	case errors.Is(err, workspace.ErrNoDocument),
		errors.Is(err, document.ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrNoProvider):
		return http.StatusServiceUnavailable
	case errors.Is(err, extract.ErrAlreadyRunning),
		errors.Is(err, document.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, extract.ErrNothingToProcess),
		errors.Is(err, document.ErrUnsupportedLanguage),
		errors.As(err, &pdfInvalid),
		errors.As(err, &exportInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeErr writes err with the status statusFor picks.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// currentSession resolves the loaded session or writes the error response.
func currentSession(w http.ResponseWriter, r *http.Request) (*workspace.Session, bool) {
	ws := svcctx.WorkspaceFrom(r.Context())
	if ws == nil {
		writeError(w, http.StatusServiceUnavailable, "workspace not initialized")
		return nil, false
	}
	s, err := ws.Current()
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return s, true
}

// pageNumber parses the {page_num} path parameter.
func pageNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("page_num"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "page_num must be a positive integer")
		return 0, false
	}
	return n, true
}

// decodeJSON decodes the request body into v or writes a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
