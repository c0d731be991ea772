// Package api serves the assessment pages, the JSON session API and the
// websocket session event stream.
package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/health"
	"github.com/smart-disease-client/internal/middleware"
	"github.com/smart-disease-client/internal/session"
)

const defaultShutdownTimeout = 30 * time.Second

// Server represents the HTTP server
type Server struct {
	config   *domain.Config
	sessions *session.Store
	chat     domain.ChatService
	health   *health.HealthChecker
	logger   *logrus.Logger

	router   *gin.Engine
	server   *http.Server
	upgrader websocket.Upgrader
}

// Dependencies are the collaborators a Server routes requests to. Health may
// be nil.
type Dependencies struct {
	Sessions *session.Store
	Chat     domain.ChatService
	Health   *health.HealthChecker
	Logger   *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, deps Dependencies) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(assets, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	if handler := corsHandler(cfg.Server.AllowedOrigins); handler != nil {
		router.Use(handler)
	}

	s := &Server{
		config:   cfg,
		sessions: deps.Sessions,
		chat:     deps.Chat,
		health:   deps.Health,
		logger:   deps.Logger,
		router:   router,
		upgrader: newUpgrader(cfg.Server.AllowedOrigins),
	}

	router.StaticFS("/static", http.FS(static))
	router.GET("/health", s.handleHealth)
	s.setupRoutes()

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr": addr,
			"tls":  cfg.TLSEnabled,
		}).Info("HTTP server listening")

		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the page and API routes
func (s *Server) setupRoutes() {
	cfg := s.config

	app := s.router.Group("/")
	app.Use(middleware.SessionCookie(cfg.Session.CookieName, cfg.Session.CookieSecure))
	app.Use(middleware.AuditLogger(s.logger))
	if cfg.Server.RateLimit > 0 {
		app.Use(middleware.NewRateLimiter(cfg.Server.RateLimit).Middleware())
	}

	app.GET("/", s.handleIndex)
	app.GET("/assess/:variant", s.handleAssessPage)
	app.POST("/assess/variant", s.handleSelectVariantForm)
	app.POST("/assess/submit", s.handleSubmitForm)
	app.POST("/assess/reset", s.handleResetForm)
	app.GET("/chat", s.handleChatPage)
	app.POST("/chat", s.handleChatForm)

	v1 := app.Group("/api/v1")
	{
		v1.GET("/variants", s.handleListVariants)
		v1.GET("/variants/:variant/schema", s.handleVariantSchema)

		v1.GET("/session", s.handleGetSession)
		v1.PUT("/session/variant", s.handleSelectVariant)
		v1.PATCH("/session/fields", s.handleSetFields)
		v1.POST("/session/submit", s.handleSubmit)
		v1.POST("/session/reset", s.handleReset)
		v1.GET("/session/render", s.handleRender)
		v1.GET("/session/events", s.handleSessionEvents)

		v1.POST("/chat", s.handleChat)
	}
}

// controller returns the session controller owned by the request's cookie.
func (s *Server) controller(c *gin.Context) *session.Controller {
	return s.sessions.GetOrCreate(middleware.SessionID(c))
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"overall": health.HealthStateHealthy, "timestamp": time.Now().UTC()})
		return
	}

	status := s.health.Status()
	if status.Overall == health.HealthStateUnknown {
		status = *s.health.RunChecks(c.Request.Context())
	}

	code := http.StatusOK
	if status.Overall == health.HealthStateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func corsHandler(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}

	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Correlation-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}
