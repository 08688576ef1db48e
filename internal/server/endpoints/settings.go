package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/document"
)

// LanguagesResponse lists the translation targets.
type LanguagesResponse struct {
	Languages []document.Language `json:"languages"`
	Default   string              `json:"default"`
}

// LanguagesEndpoint handles GET /api/languages.
type LanguagesEndpoint struct{}

var _ api.Endpoint = (*LanguagesEndpoint)(nil)

func (e *LanguagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/languages", e.handler
}

func (e *LanguagesEndpoint) RequiresDocument() bool { return false }

// handler godoc
//
//	@Summary		List languages
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	LanguagesResponse
//	@Router			/api/languages [get]
func (e *LanguagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LanguagesResponse{
		Languages: document.Languages,
		Default:   document.DefaultTargetLanguage,
	})
}

func (e *LanguagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List translation target languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp LanguagesResponse
			if err := client.Get(cmd.Context(), "/api/languages", &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			for _, l := range resp.Languages {
				marker := " "
				if l.Name == resp.Default {
					marker = "*"
				}
				fmt.Printf("%s %-3s %s\n", marker, l.Code, l.Name)
			}
			return nil
		},
	}
}

// TranslationSettings are the per-document translation options.
type TranslationSettings struct {
	Enabled        bool   `json:"enabled"`
	TargetLanguage string `json:"target_language"`
}

// GetTranslationEndpoint handles GET /api/settings/translation.
type GetTranslationEndpoint struct{}

var _ api.Endpoint = (*GetTranslationEndpoint)(nil)

func (e *GetTranslationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/settings/translation", e.handler
}

func (e *GetTranslationEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Get translation settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	TranslationSettings
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/settings/translation [get]
func (e *GetTranslationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	enabled, lang := s.Document.Translation()
	writeJSON(w, http.StatusOK, TranslationSettings{Enabled: enabled, TargetLanguage: lang})
}

func (e *GetTranslationEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "translation",
		Short: "Show translation settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TranslationSettings
			if err := client.Get(cmd.Context(), "/api/settings/translation", &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			printTranslation(resp)
			return nil
		},
	}
}

// UpdateTranslationEndpoint handles PUT /api/settings/translation.
type UpdateTranslationEndpoint struct{}

var _ api.Endpoint = (*UpdateTranslationEndpoint)(nil)

func (e *UpdateTranslationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/settings/translation", e.handler
}

func (e *UpdateTranslationEndpoint) RequiresDocument() bool { return true }

// handler godoc
//
//	@Summary		Update translation settings
//	@Description	Applies to pages that start recognition after the change
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		TranslationSettings	true	"Settings"
//	@Success		200		{object}	TranslationSettings
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/settings/translation [put]
func (e *UpdateTranslationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req TranslationSettings
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := s.Document.SetTranslation(req.Enabled, req.TargetLanguage); err != nil {
		writeErr(w, err)
		return
	}
	enabled, lang := s.Document.Translation()
	writeJSON(w, http.StatusOK, TranslationSettings{Enabled: enabled, TargetLanguage: lang})
}

func (e *UpdateTranslationEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		language string
		off      bool
	)
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Turn translation on (or off with --off)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := TranslationSettings{Enabled: !off, TargetLanguage: language}
			var resp TranslationSettings
			if err := client.Put(cmd.Context(), "/api/settings/translation", req, &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			printTranslation(resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Target language name or code (default: keep the current one)")
	cmd.Flags().BoolVar(&off, "off", false, "Disable translation")
	return cmd
}

func printTranslation(t TranslationSettings) {
	if t.Enabled {
		fmt.Printf("Translation: on (%s)\n", t.TargetLanguage)
		return
	}
	fmt.Printf("Translation: off (target %s)\n", t.TargetLanguage)
}
