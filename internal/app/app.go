// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/status24/api"
	"github.com/bissquit/status24/internal/config"
	"github.com/bissquit/status24/internal/identity"
	"github.com/bissquit/status24/internal/identity/clerk"
	"github.com/bissquit/status24/internal/identity/jwt"
	"github.com/bissquit/status24/internal/pkg/ctxlog"
	"github.com/bissquit/status24/internal/pkg/httputil"
	"github.com/bissquit/status24/internal/statuspage"
	"github.com/bissquit/status24/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	store         *store
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	st, err := openStore(connectCtx, metricsCtx, cfg.Database)
	if err != nil {
		metricsCancel()
		return nil, err
	}

	app := &App{
		config:        cfg,
		logger:        logger,
		store:         st,
		metricsCancel: metricsCancel,
	}

	router, err := app.setupRouter()
	if err != nil {
		_ = st.close(context.Background())
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"driver", a.config.Database.Driver,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the servers, then releases the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := a.store.close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

	r.Get("/", a.rootHandler)
	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(api.OpenAPISpec)
	})
	r.Get("/docs", docsHandler)

	clerkClient := clerk.NewClient(clerk.Config{
		APIURL:    a.config.Clerk.APIURL,
		APIKey:    a.config.Clerk.APIKey,
		Timeout:   a.config.Clerk.Timeout,
		RateLimit: a.config.Clerk.RateLimit,
		Burst:     a.config.Clerk.Burst,
	})

	membershipPolicy, err := identity.NewMembershipPolicy(a.config.Auth.MembershipMatch)
	if err != nil {
		return nil, err
	}
	adminPolicy := identity.AdminPolicy{OrgName: a.config.Auth.AdminOrgName}

	identityService := identity.NewService(a.tokenVerifier(), clerkClient, a.config.Auth.AdminOrgName)
	identityHandler := identity.NewHandler(identityService)

	statusService := statuspage.NewService(a.store.repo)
	statusHandler := statuspage.NewHandler(statusService, membershipPolicy)

	identityHandler.RegisterRoutes(r)
	statusHandler.RegisterPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(identityService, identity.ErrorMappings))

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequirePolicy(identity.ReadOnlyPolicy{}, identity.ErrorMappings))
			identityHandler.RegisterProtectedRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequirePolicy(adminPolicy, identity.ErrorMappings))
			identityHandler.RegisterAdminRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequirePolicy(membershipPolicy, identity.ErrorMappings))
			statusHandler.RegisterRoutes(r)
		})
	})

	return r, nil
}

func (a *App) tokenVerifier() identity.TokenVerifier {
	if a.config.Auth.InsecureSkipVerify {
		a.logger.Warn("token signature verification is disabled: any well-formed token is accepted")
		return jwt.UnverifiedDecoder{}
	}

	cfg := jwt.Config{
		JWKSURL:         a.config.Auth.JWKSURL,
		Issuer:          a.config.Auth.Issuer,
		Leeway:          a.config.Auth.Leeway,
		RefreshInterval: a.config.Auth.JWKSRefreshInterval,
		Timeout:         a.config.Clerk.Timeout,
	}
	// The Backend API key set requires the secret key; public key sets do not.
	if strings.HasPrefix(cfg.JWKSURL, a.config.Clerk.APIURL) {
		cfg.APIKey = a.config.Clerk.APIKey
	}
	return jwt.NewJWKSVerifier(cfg)
}

func (a *App) rootHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Status24 API"})
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.repo.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Status24 API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
