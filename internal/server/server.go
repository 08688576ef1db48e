package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/extract"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/providers"
	"github.com/jackzampolin/folio/internal/server/endpoints"
	"github.com/jackzampolin/folio/internal/svcctx"
	"github.com/jackzampolin/folio/internal/workspace"
)

// Server is the folio HTTP server. It owns the workspace holding the loaded
// document and, when call recording is on, the call store.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	workspace  *workspace.Workspace
	registry   *providers.Registry
	configMgr  *config.Manager
	store      *llmcall.Store
	recorder   *llmcall.Recorder
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support.
	ConfigManager *config.Manager
	// Settings is the static configuration used when ConfigManager is nil.
	// Nil uses config.DefaultConfig.
	Settings *config.Config
	// Home is the data directory for upload copies and the call database.
	// Nil keeps everything in memory and disables call recording.
	Home *home.Dir
	// Registry overrides the provider registry built from configuration.
	Registry *providers.Registry
	// OpenDocument overrides how uploads are validated and opened.
	OpenDocument workspace.OpenFunc
	// AllowedOrigins lists CORS origins for browser clients (default: any).
	AllowedOrigins []string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := cfg.Settings
	if appCfg == nil {
		appCfg = config.DefaultConfig()
	}
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(appCfg.ToProviderRegistryConfig())
	}

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	if cfg.Home != nil && appCfg.Engine.RecordCalls {
		store, err := llmcall.Open(cfg.Home.LLMCallsDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open call store: %w", err)
		}
		s.store = store
		s.recorder = llmcall.NewRecorder(llmcall.RecorderConfig{
			Store:  store,
			Logger: cfg.Logger,
		})
		s.recorder.Start()
	}

	wsCfg := workspace.Config{
		Registry: registry,
		Engine: extract.Config{
			MaxAttempts:    appCfg.Engine.MaxAttempts,
			BackoffBase:    appCfg.Engine.BackoffBase(),
			InterPageDelay: appCfg.Engine.InterPageDelay(),
			RenderScale:    appCfg.Render.Scale,
		},
		Render: pdf.Options{
			Backend:     pdf.Backend(appCfg.Render.Backend),
			JPEGQuality: appCfg.Render.JPEGQuality,
		},
		MaxBytes:       appCfg.Upload.MaxBytes,
		Translate:      appCfg.Defaults.Translate,
		TargetLanguage: appCfg.Defaults.TargetLanguage,
		Open:           cfg.OpenDocument,
		Logger:         cfg.Logger,
	}
	if s.recorder != nil {
		wsCfg.Recorder = s.recorder
	}
	if cfg.Home != nil {
		wsCfg.UploadsDir = cfg.Home.UploadsDir()
	}
	s.workspace = workspace.New(wsCfg)

	// Watch for config changes
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			if cfg.Registry == nil {
				registry.Reload(c.ToProviderRegistryConfig())
			}
			s.workspace.SetLimits(c.Engine.MaxAttempts, c.Engine.BackoffBase(), c.Engine.InterPageDelay())
			cfg.Logger.Info("configuration reloaded",
				"providers", registry.List(),
				"max_attempts", c.Engine.MaxAttempts)
		})
	}

	s.services = &svcctx.Services{
		Workspace:     s.workspace,
		Registry:      registry,
		ConfigManager: cfg.ConfigManager,
		Logger:        cfg.Logger,
		Home:          cfg.Home,
		LLMCallStore:  s.store,
		Recorder:      s.recorder,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{MaxUploadBytes: appCfg.Upload.MaxBytes}) {
		s.endpointRegistry.Register(ep)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(s.withServices)
	s.endpointRegistry.RegisterRoutes(r, s.requireDocument)
	s.handler = r

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     r,
		ReadTimeout: 2 * time.Minute,
		// Long enough for a large export; event streams clear their own deadline.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	// Request contexts end when shutdown begins so event streams close.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	s.httpServer.BaseContext = func(net.Listener) context.Context { return baseCtx }
	s.httpServer.RegisterOnShutdown(cancelBase)

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		cancelBase()
		_ = s.shutdown()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server, any running extraction, and the recorder.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.Close()
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close releases the workspace and call store without touching the HTTP
// listener. It is safe to call more than once.
func (s *Server) Close() {
	s.workspace.Close()
	if s.recorder != nil {
		s.recorder.Stop()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("call store close error", "error", err)
		}
		s.store = nil
		s.services.LLMCallStore = nil
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Workspace returns the document workspace.
func (s *Server) Workspace() *workspace.Workspace {
	return s.workspace
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := svcctx.WithServices(r.Context(), s.services)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireDocument is middleware that rejects requests while no document is
// loaded.
func (s *Server) requireDocument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.workspace.Current(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"no document loaded"}`))
			return
		}
		next(w, r)
	}
}

// requestLogger logs one line per request at debug level, or warn for
// server errors.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
