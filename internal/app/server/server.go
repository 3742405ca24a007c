package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/shrtnr/config"
	"github.com/sifan077/shrtnr/internal/app/service"
	inthttp "github.com/sifan077/shrtnr/internal/http/handler"
	"github.com/sifan077/shrtnr/internal/http/middleware"
	"go.uber.org/zap"
)

// Dependencies bundles what the HTTP server needs.
type Dependencies struct {
	Logger      *zap.Logger
	Config      config.ServerConfig
	Links       service.LinkService
	Analytics   service.AnalyticsService
	Credentials service.CredentialService
	Clicks      service.ClickRecorder
	// Observer receives request latencies; nil disables HTTP metrics.
	Observer     middleware.RequestObserver
	HealthChecks map[string]inthttp.HealthCheck
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates the HTTP server with every route registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "shrtnr",
		CaseSensitive:         true,
		DisableStartupMessage: true,
		ErrorHandler:          inthttp.ErrorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.MethodOverride())
	if s.deps.Observer != nil {
		s.app.Use(middleware.Metrics(s.deps.Observer))
	}
}

// Redirects are registered last: /:code would otherwise shadow /health.
func (s *Server) registerRoutes() {
	inthttp.NewHealthHandler(s.deps.Logger, s.deps.HealthChecks).Register(s.app)

	inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		Links:       s.deps.Links,
		Analytics:   s.deps.Analytics,
		Credentials: s.deps.Credentials,
		BaseURL:     s.deps.Config.BaseURL,
	}).Register(s.app)

	inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:       s.deps.Logger,
		Links:        s.deps.Links,
		Clicks:       s.deps.Clicks,
		BaseURL:      s.deps.Config.BaseURL,
		ProxyHeader:  s.deps.Config.ProxyHeader,
		Interstitial: s.deps.Config.Interstitial,
	}).Register(s.app)
}
