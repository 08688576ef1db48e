package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/providers"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// ProviderInfo describes one registered provider.
type ProviderInfo struct {
	Name      string                       `json:"name"`
	Default   bool                         `json:"default"`
	Active    bool                         `json:"active"`
	RateLimit *providers.RateLimiterStatus `json:"rate_limit,omitempty"`
}

// ProvidersResponse lists providers and the one new runs will use.
type ProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
	Default   string         `json:"default,omitempty"`
	Active    string         `json:"active,omitempty"`
}

func providersResponse(r *http.Request) (ProvidersResponse, bool) {
	ws := svcctx.WorkspaceFrom(r.Context())
	if ws == nil {
		return ProvidersResponse{}, false
	}
	reg := ws.Registry()
	resp := ProvidersResponse{
		Default: reg.Default(),
		Active:  ws.Provider(),
	}
	for _, name := range reg.List() {
		info := ProviderInfo{
			Name:    name,
			Default: name == resp.Default,
			Active:  name == resp.Active,
		}
		if rec, err := reg.Get(name); err == nil {
			if l, ok := rec.(*providers.Limited); ok {
				st := l.Limiter().Status()
				info.RateLimit = &st
			}
		}
		resp.Providers = append(resp.Providers, info)
	}
	return resp, true
}

// ListProvidersEndpoint handles GET /api/providers.
type ListProvidersEndpoint struct{}

var _ api.Endpoint = (*ListProvidersEndpoint)(nil)

func (e *ListProvidersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/providers", e.handler
}

func (e *ListProvidersEndpoint) RequiresDocument() bool { return false }

// handler godoc
//
//	@Summary		List providers
//	@Description	Registered recognition providers with rate limiter state
//	@Tags			providers
//	@Produce		json
//	@Success		200	{object}	ProvidersResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/providers [get]
func (e *ListProvidersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp, ok := providersResponse(r)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "workspace not initialized")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListProvidersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recognition providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProvidersResponse
			if err := client.Get(cmd.Context(), "/api/providers", &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			printProviders(resp)
			return nil
		},
	}
}

// SetProviderRequest selects the provider for new runs. An empty name
// falls back to the registry default.
type SetProviderRequest struct {
	Provider string `json:"provider"`
}

// SetProviderEndpoint handles PUT /api/providers.
type SetProviderEndpoint struct{}

var _ api.Endpoint = (*SetProviderEndpoint)(nil)

func (e *SetProviderEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/providers", e.handler
}

func (e *SetProviderEndpoint) RequiresDocument() bool { return false }

// handler godoc
//
//	@Summary		Select provider
//	@Tags			providers
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SetProviderRequest	true	"Provider"
//	@Success		200		{object}	ProvidersResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/providers [put]
func (e *SetProviderEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SetProviderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws := svcctx.WorkspaceFrom(r.Context())
	if ws == nil {
		writeError(w, http.StatusServiceUnavailable, "workspace not initialized")
		return
	}
	if err := ws.SetProvider(req.Provider); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("provider selected", "provider", ws.Provider())
	}
	resp, _ := providersResponse(r)
	writeJSON(w, http.StatusOK, resp)
}

func (e *SetProviderEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Select the provider for new runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ProvidersResponse
			if err := client.Put(cmd.Context(), "/api/providers", SetProviderRequest{Provider: args[0]}, &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			printProviders(resp)
			return nil
		},
	}
}

func printProviders(resp ProvidersResponse) {
	if len(resp.Providers) == 0 {
		fmt.Println("No providers configured")
		return
	}
	for _, p := range resp.Providers {
		marker := " "
		if p.Active {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s", marker, p.Name)
		if p.Default {
			line += " (default)"
		}
		if p.RateLimit != nil {
			line += fmt.Sprintf("  %.1f req/s", p.RateLimit.RatePerSecond)
		}
		fmt.Println(line)
	}
}
