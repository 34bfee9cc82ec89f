package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/samsdev/sams-auth/internal/audit"
	"github.com/samsdev/sams-auth/internal/auth"
	"github.com/samsdev/sams-auth/internal/infrastructure/config"
	"github.com/samsdev/sams-auth/internal/infrastructure/logging"
	"github.com/samsdev/sams-auth/internal/staff"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.ServerConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	UserRepo  auth.UserRepository
	StaffRepo staff.Repository
	AuditRepo audit.Repository // optional; nil disables the audit trail
	Version   string
}

// Server is the HTTP API server for the SAMS auth service.
//
// It manages the HTTP listener, routes, middleware, and the async audit
// writer. The server is created with New() and started with Start().
type Server struct {
	cfg     config.ServerConfig
	secCfg  config.SecurityConfig
	logger  *logging.Logger
	version string

	userRepo  auth.UserRepository
	staffRepo staff.Repository
	auditRepo audit.Repository

	authenticator *auth.Authenticator
	codec         *auth.TokenCodec
	resolver      *auth.SessionResolver

	validate     *validator.Validate
	metrics      *Metrics
	loginLimiter *loginLimiter

	auditCh chan *audit.Entry
	server  *http.Server
	cancel  context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.StaffRepo == nil {
		return nil, fmt.Errorf("staff repository is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	codec := auth.NewTokenCodec(deps.Security.JWT.Secret, deps.Security.JWT.TokenTTLMinutes)

	s := &Server{
		cfg:           deps.Config,
		secCfg:        deps.Security,
		logger:        deps.Logger,
		version:       deps.Version,
		userRepo:      deps.UserRepo,
		staffRepo:     deps.StaffRepo,
		auditRepo:     deps.AuditRepo,
		authenticator: auth.NewAuthenticator(deps.UserRepo),
		codec:         codec,
		resolver:      auth.NewSessionResolver(codec, deps.UserRepo),
		validate:      validator.New(),
		metrics:       NewMetrics(),
		loginLimiter: newLoginLimiter(
			deps.Security.RateLimit.LoginPerMinute,
			deps.Security.RateLimit.LoginBurst,
		),
	}

	s.metrics.SetTokenTTL(codec.TTL())

	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Handler returns the fully assembled router. Exposed for tests that
// drive the server through httptest without a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It launches the async audit writer and the HTTP listener in background
// goroutines. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	// Cancel background goroutines (audit writer)
	if s.cancel != nil {
		s.cancel()
	}
	s.loginLimiter.Stop()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
