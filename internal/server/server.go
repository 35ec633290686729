package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"hookbox/internal/dispatch"
	"hookbox/internal/history"
	"hookbox/internal/rule"
	"hookbox/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 10 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 60 * time.Second

	// Rate limiting - requests per minute per client IP
	GlobalRateLimit  = 120
	WebhookRateLimit = 60

	DefaultMaxPayloadBytes = 1_000_000 // 1 MB
)

// ErrInvalidOptions is wrapped by every error New returns.
var ErrInvalidOptions = errors.New("invalid options")

// ConfigError reports which option New rejected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidOptions, e.Reason)
	}
	return fmt.Sprintf("%s: `%s` %s", ErrInvalidOptions, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidOptions
}

// Logger is the logging surface the server exposes. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) *slog.Logger
}

var _ Logger = (*slog.Logger)(nil)

// Options configures a Server.
type Options struct {
	// Path is the URL path GitHub posts to, e.g. "/webhook". A missing
	// leading '/' is added. Route pattern characters such as '{' and '*'
	// are rejected, as are the built-in /ping, /health and /status paths.
	Path string

	// Secret is the shared HMAC key configured on the GitHub webhook
	Secret string

	// Rules are evaluated in order for every authenticated delivery
	Rules []*rule.Rule

	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// History records every handler run. Nil disables /status.
	// Shutdown closes it.
	History *history.History

	// MaxPayloadBytes defaults to DefaultMaxPayloadBytes
	MaxPayloadBytes int64

	DisableRateLimit bool
}

// Server receives webhook deliveries and dispatches them to matching rules.
type Server struct {
	path            string
	secret          string
	rules           *rule.Set
	logger          *slog.Logger
	history         *history.History
	maxPayloadBytes int64
	rateLimit       bool

	dispatcher *dispatch.Dispatcher
	router     *chi.Mux
	httpServer *http.Server
}

// New validates opts and builds a Server. Nothing is listening until Start or Serve.
func New(opts *Options) (*Server, error) {
	if opts == nil {
		return nil, &ConfigError{Reason: "an options object is required"}
	}
	if opts.Path == "" {
		return nil, &ConfigError{Field: "path", Reason: "is required"}
	}
	if opts.Secret == "" {
		return nil, &ConfigError{Field: "secret", Reason: "is required"}
	}
	if len(opts.Rules) == 0 {
		return nil, &ConfigError{Field: "rules", Reason: "must contain at least one rule"}
	}
	set, err := rule.NewSet(opts.Rules...)
	if err != nil {
		return nil, &ConfigError{Field: "rules", Reason: err.Error()}
	}

	// "webhook" and "/webhook" name the same route
	path := opts.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if err := security.ValidateWebhookPath(path); err != nil {
		return nil, &ConfigError{Field: "path", Reason: err.Error()}
	}
	if opts.MaxPayloadBytes < 0 {
		return nil, &ConfigError{Field: "max_payload_bytes", Reason: "must not be negative"}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxPayload := opts.MaxPayloadBytes
	if maxPayload == 0 {
		maxPayload = DefaultMaxPayloadBytes
	}

	// A nil *History must not become a non-nil Recorder
	var recorder dispatch.Recorder
	if opts.History != nil {
		recorder = opts.History
	}

	s := &Server{
		path:            path,
		secret:          opts.Secret,
		rules:           set,
		logger:          logger,
		history:         opts.History,
		maxPayloadBytes: maxPayload,
		rateLimit:       !opts.DisableRateLimit,
		dispatcher:      dispatch.New(logger, recorder),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return s, nil
}

// Rules returns the configured rules in evaluation order.
func (s *Server) Rules() []*rule.Rule {
	return s.rules.Rules()
}

// RuleSet returns the immutable rule set.
func (s *Server) RuleSet() *rule.Set {
	return s.rules
}

// HTTPServer returns the underlying transport.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the resolved request handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Logger() Logger {
	return s.logger
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(requestLogger(s.logger))

	if s.rateLimit {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.logger))
	}

	// Routes
	r.Get("/ping", s.HandlePing)
	r.Get("/health", s.HandleHealth)
	r.Get("/status", s.HandleStatus)
	r.Get("/status/{deliveryID}", s.HandleDeliveryStatus)

	if s.rateLimit {
		r.With(NewRateLimitMiddleware(WebhookRateLimit, s.logger)).Post(s.path, s.HandleWebhook)
	} else {
		r.Post(s.path, s.HandleWebhook)
	}

	return r
}

// Start listens on addr and serves until Shutdown. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer.Addr = addr
	s.logStartup(addr)
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.logStartup(l.Addr().String())
	return s.httpServer.Serve(l)
}

func (s *Server) logStartup(addr string) {
	s.logger.Info("Starting server",
		"addr", addr,
		"path", s.path,
		"rules", s.rules.Names(),
		"fingerprint", s.rules.Fingerprint())
}

// WaitForDispatches waits for all in-flight handler runs to complete.
// This is primarily useful for testing.
func (s *Server) WaitForDispatches() {
	s.dispatcher.Wait()
}

// Shutdown stops accepting requests, waits for in-flight handlers and closes history.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.dispatcher.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for handlers: %w", ctx.Err())
	}

	if s.history != nil {
		return s.history.Close()
	}
	return nil
}
