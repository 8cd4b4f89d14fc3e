package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shirou/gopsutil/v3/process"

	mw "github.com/tphakala/gainguard/internal/api/middleware"
	"github.com/tphakala/gainguard/internal/buildinfo"
	"github.com/tphakala/gainguard/internal/controller"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/observability"
)

// Server is the HTTP control server.
type Server struct {
	echo       *echo.Echo
	config     *Config
	controller *controller.Controller
	metrics    *observability.Metrics
	logger     logger.Logger
	startTime  time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics serves the metrics registry and records request metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// New creates the HTTP server for ctrl.
func New(config *Config, ctrl *controller.Controller, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:     config,
		controller: ctrl,
		logger:     GetLogger(),
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.Logger = logger.NewEchoAdapter(s.logger.Module("echo"))
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.logger.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("metrics", s.metrics != nil && config.MetricsPath != ""))
	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			c.SetRequest(c.Request().WithContext(logger.WithRequestID(c.Request().Context(), id)))
		},
	}))
	s.echo.Use(mw.NewRequestLogger(s.logger))

	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	cors := mw.DefaultSecurityConfig()
	if len(s.config.AllowedOrigins) > 0 {
		cors.AllowedOrigins = s.config.AllowedOrigins
	}

	s.echo.Use(mw.NewCORS(cors))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.RequireJSON())
	s.echo.Use(mw.NewSecureHeaders())
	s.echo.Use(mw.NoStore())
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	if s.metrics != nil && s.config.MetricsPath != "" {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/state", s.GetState)
	v1.POST("/reset", s.ResetAll)

	s.initParamRoutes(v1.Group("/params"))
	s.initPresetRoutes(v1.Group("/presets"))
	s.initModeRoutes(v1.Group("/modes"))
	s.initProfileRoutes(v1.Group("/profiles"))
	s.initMeterRoutes(v1.Group("/meter"))
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	body := map[string]any{
		"status":         "healthy",
		"version":        buildinfo.Current().GetVersion(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"goroutines":     runtime.NumGoroutine(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}
	if mem, err := processMemory(); err == nil {
		body["memory"] = mem
	} else {
		s.logger.Debug("process memory unavailable", logger.Error(err))
	}
	return c.JSON(http.StatusOK, body)
}

// ProcessMemory is the server process's memory use.
type ProcessMemory struct {
	ResidentMB int64 `json:"resident_mb"`
	VirtualMB  int64 `json:"virtual_mb"`
}

func processMemory() (*ProcessMemory, error) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return nil, fmt.Errorf("failed to get process instance: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get process memory info: %w", err)
	}
	return &ProcessMemory{
		ResidentMB: int64(info.RSS / 1024 / 1024),
		VirtualMB:  int64(info.VMS / 1024 / 1024),
	}, nil
}

// Start serves HTTP requests until Shutdown is called.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.logger.Info("starting HTTP server", logger.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(fmt.Errorf("server error: %w", err)).
			Component("api").
			Category(errors.CategoryNetwork).
			Build()
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
