package endpoints

import (
	"github.com/jackzampolin/folio/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// MaxUploadBytes bounds multipart uploads. Zero uses the PDF default.
	MaxUploadBytes int64
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},
		&LanguagesEndpoint{},

		// Document endpoints
		&UploadDocumentEndpoint{MaxBytes: cfg.MaxUploadBytes},
		&GetDocumentEndpoint{},
		&ResetDocumentEndpoint{},
		&SelectAllEndpoint{},

		// Page endpoints
		&GetPageEndpoint{},
		&PageImageEndpoint{},
		&UpdatePageContentEndpoint{},
		&SetPageSelectionEndpoint{},

		// Run control
		&StartExtractEndpoint{},
		&StopExtractEndpoint{},
		&EventsEndpoint{},

		// Export
		&ExportEndpoint{},

		// Settings and providers
		&GetTranslationEndpoint{},
		&UpdateTranslationEndpoint{},
		&ListProvidersEndpoint{},
		&SetProviderEndpoint{},

		// Recognition call history
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},
		&LLMCallCountsEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}
