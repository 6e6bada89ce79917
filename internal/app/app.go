package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/config"
	apperrors "github.com/yavuzmtr/edefter-otomasyon-sub001/internal/errors"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/infrastructure"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/issuance"
	customMiddleware "github.com/yavuzmtr/edefter-otomasyon-sub001/internal/middleware"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/internal/services"
	handlers "github.com/yavuzmtr/edefter-otomasyon-sub001/internal/transport/http"
	"github.com/yavuzmtr/edefter-otomasyon-sub001/pkg/contracts"
)

const (
	// AppName identifies the issuer in logs
	AppName = "E-Defter Otomasyon License Issuer"

	systemMetricsInterval = 15 * time.Second
)

// Application represents the issuer process: its HTTP surface and the
// services behind it.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Issuer        *issuance.Service
	HealthService *services.HealthService
	Collector     *infrastructure.SystemMetricsCollector
	DataDir       string

	errorHandler *apperrors.ErrorHandler
}

// NewApplication loads configuration, initializes the global logger and
// wires the issuer.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires an Application from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("build_time", contracts.BuildTime))

	dataDir, err := cfg.IssuerDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve issuer data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create issuer data dir: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		DataDir:       dataDir,
		errorHandler:  apperrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the record store, issuance and health services
func (a *Application) initializeServices() error {
	if meter := a.OTelProviders.Meter; meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(meter)
		if err != nil {
			return fmt.Errorf("failed to create business metrics: %w", err)
		}
		a.Metrics = metrics

		collector, err := infrastructure.NewSystemMetricsCollector(meter, systemMetricsInterval, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create system metrics collector: %w", err)
		}
		a.Collector = collector
	}

	recordsFile := a.Config.Issuer.RecordsFile
	if recordsFile == "" {
		recordsFile = filepath.Join(a.DataDir, config.DefaultRecordsFile)
	}
	store := issuance.NewJSONRecordStore(recordsFile)

	host, err := a.Config.HostPaths()
	if err != nil {
		return fmt.Errorf("failed to resolve host paths: %w", err)
	}
	issuerCfg := issuance.ForHost(host)
	issuerCfg.DataDir = a.DataDir
	issuerCfg.LicenseDir = a.Config.Issuer.LicenseDir
	issuerCfg.PrivateKeyPath = a.Config.Issuer.PrivateKeyPath
	issuerCfg.PublicKeyPath = a.Config.Issuer.PublicKeyPath
	if p := a.Config.Issuer.AppPublicKeyPath; p != "" {
		issuerCfg.AppPublicKeyPath = p
	}
	a.Issuer = issuance.NewService(issuerCfg.WithDefaults(), store, a.Metrics, a.Logger)

	a.HealthService = services.NewHealthService(contracts.GetVersionInfo(), a.Issuer, a.Logger)

	a.Logger.Info("Issuer services initialized",
		slog.String("data_dir", a.DataDir),
		slog.String("records_file", store.Path()),
		slog.String("app_public_key", issuerCfg.AppPublicKeyPath),
		slog.Bool("metrics_enabled", a.Metrics != nil))

	return nil
}

// setupRouter configures the HTTP router. Order: RequestID → LocalOnly →
// OTel → Logger → Recoverer → SecurityHeaders → CORS → RateLimit → Timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	if a.Config.Security.LocalOnly {
		r.Use(customMiddleware.LocalOnly(a.Logger))
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		if a.Config.Server.RequestTimeout > 0 {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		}

		a.setupAPIRoutes(r)
	})

	// Prometheus scrape endpoint sits outside the instrumented group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes mounts the admin API under /api
func (a *Application) setupAPIRoutes(r chi.Router) {
	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.ContentTypeValidator("application/json"))
		r.Use(validation.ValidateRequest)
		r.Use(customMiddleware.AuditLog(a.Logger))

		handlers.NewHealthHandler(a.HealthService, a.Logger).Routes(r)
		handlers.NewIssuanceHandler(a.Issuer, validation, a.errorHandler, a.Logger).Routes(r)
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		ExposedHeaders: []string{middleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully. A listener failure is returned.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Issuer listening",
		slog.String("address", "http://"+ln.Addr().String()),
		slog.Bool("local_only", a.Config.Security.LocalOnly))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.Collector != nil {
		g.Go(func() error {
			return a.Collector.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(gctx, "Shutdown requested")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// performStartupHealthCheck verifies the issuer can write where it needs to
// and notes a missing signing key.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	cfg := a.Issuer.Config()

	var warnings []string

	directories := map[string]string{
		"Data":     a.DataDir,
		"Licenses": cfg.LicenseDir,
	}
	for name, dir := range directories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not creatable: %s", name, dir))
			continue
		}
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			_ = os.Remove(testFile)
		}
	}

	if _, err := os.Stat(cfg.PrivateKeyPath); err != nil {
		a.Logger.InfoContext(ctx, "Signing key not found, POST /api/init-keys creates one",
			slog.String("path", cfg.PrivateKeyPath))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
