// Package server wraps echo with the middleware every cryptkit API shares:
// panic recovery, request ids, body limits, structured request logs,
// timeouts and translation of tagged errors into JSON error responses.
package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joshjon/cryptkit/log"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	// DefaultBodyLimit bounds request bodies. Ciphertexts of the largest RSA
	// keys are well below it.
	DefaultBodyLimit = "1M"
)

// Option optionally configures a Server.
type Option func(opts *options) error

// WithLogger sets a custom Logger.
func WithLogger(logger log.Logger) Option {
	return func(opts *options) error {
		opts.logger = logger
		return nil
	}
}

// WithRequestTimeout sets the timeout for request handlers.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(opts *options) error {
		if timeout <= 0 {
			return fmt.Errorf("request timeout must be positive, got %s", timeout)
		}
		opts.timeout = timeout
		return nil
	}
}

// WithBodyLimit caps request bodies, e.g. "512K" or "2M".
func WithBodyLimit(limit string) Option {
	return func(opts *options) error {
		opts.bodyLimit = limit
		return nil
	}
}

// WithCORS allows cross origin requests from the provided origins.
func WithCORS(origins ...string) Option {
	return func(opts *options) error {
		opts.corsOrigins = append(opts.corsOrigins, origins...)
		return nil
	}
}

// WithTLS serves HTTPS with the given certificate and key. When clientCAFile
// is set, clients must present a certificate signed by that CA.
func WithTLS(certFile string, keyFile string, clientCAFile string) Option {
	return func(opts *options) error {
		if certFile == "" || keyFile == "" {
			return errors.New("tls requires both a certificate and a key file")
		}
		opts.tls = &tlsFiles{
			cert:     certFile,
			key:      keyFile,
			clientCA: clientCAFile,
		}
		return nil
	}
}

type tlsFiles struct {
	cert     string
	key      string
	clientCA string
}

type options struct {
	logger      log.Logger
	timeout     time.Duration
	bodyLimit   string
	corsOrigins []string
	tls         *tlsFiles // nil serves plain HTTP
}

// Server is an echo HTTP server with request logging, error mapping and a
// /healthz route. Handlers are mounted with Register.
type Server struct {
	port   int
	echo   *echo.Echo
	tls    *tlsFiles
	logger log.Logger
}

// NewServer creates a new Server listening on port once started.
func NewServer(port int, opts ...Option) (*Server, error) {
	srvOpts := options{
		logger:    log.NewLogger(),
		timeout:   DefaultRequestTimeout,
		bodyLimit: DefaultBodyLimit,
	}
	for _, opt := range opts {
		if err := opt(&srvOpts); err != nil {
			return nil, err
		}
	}

	srv := &Server{
		port:   port,
		echo:   echo.New(),
		logger: srvOpts.logger,
		tls:    srvOpts.tls,
	}

	e := srv.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandlerFunc(srv.logger)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(srvOpts.bodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(newRequestLoggerConfig(srv.logger)))
	e.Use(errorTransformMiddleware)
	if len(srvOpts.corsOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: srvOpts.corsOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout:      srvOpts.timeout,
		ErrorMessage: "request timed out",
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status: http.StatusText(http.StatusOK),
		})
	})

	return srv, nil
}

// Start serves until Stop is called. A graceful stop returns nil.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)

	var err error
	if s.tls == nil {
		err = s.echo.Start(addr)
	} else {
		var cfg *tls.Config
		if cfg, err = s.tls.config(); err != nil {
			return err
		}
		s.echo.TLSServer.TLSConfig = cfg
		err = s.echo.StartTLS(addr, s.tls.cert, s.tls.key)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (f *tlsFiles) config() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(f.cert, f.key)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if f.clientCA == "" {
		return cfg, nil
	}

	caPEM, err := os.ReadFile(f.clientCA)
	if err != nil {
		return nil, fmt.Errorf("read client ca certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, errors.New("client ca file holds no PEM certificates")
	}
	cfg.ClientCAs = pool
	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	return cfg, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// WaitHealthy polls /healthz until it answers 200 OK or maxRetries attempts
// spaced by interval have failed.
func (s *Server) WaitHealthy(maxRetries int, interval time.Duration) error {
	healthzURL := s.Address() + "/healthz"
	client := &http.Client{Timeout: time.Second}
	if s.tls != nil {
		client.Transport = &http.Transport{
			// liveness only, the certificate may be self signed
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}

	ping := func() error {
		res, err := client.Get(healthzURL)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return errors.New(http.StatusText(res.StatusCode))
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxRetries))
	if err := backoff.Retry(ping, bo); err != nil {
		return fmt.Errorf("server unhealthy: %w", err)
	}
	return nil
}

// Address returns the server address which clients can connect to.
func (s *Server) Address() string {
	hp := fmt.Sprintf("localhost:%d", s.port)
	if s.tls == nil {
		return "http://" + hp
	}
	return "https://" + hp
}

// ServeHTTP lets the server be driven without a listener, e.g. by
// httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Handler mounts a group of routes.
type Handler interface {
	Register(g *echo.Group)
}

// Register mounts h under pathPrefix.
func (s *Server) Register(pathPrefix string, h Handler, middleware ...echo.MiddlewareFunc) {
	h.Register(s.echo.Group(pathPrefix, middleware...))
}
