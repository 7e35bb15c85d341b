// Package httpapi exposes the authentication services over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

type SessionManager interface {
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type RecoveryManager interface {
	ConfirmEmailVerification(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
}

type Purger interface {
	Purge(ctx context.Context) (*services.PurgeResult, error)
}

type HTTPServer struct {
	address  string
	logger   logging.Logger
	sessions SessionManager
	recovery RecoveryManager
	registry Registrar
	authn    Authenticator
	purger   Purger
	metrics  *httpMetrics
	gatherer prometheus.Gatherer
}

// NewHTTPServer wires the handlers. reg receives the HTTP metrics and is
// exposed on /metrics when it is also a Gatherer.
func NewHTTPServer(addr string, l logging.Logger, sm SessionManager, rm RecoveryManager, r Registrar, a Authenticator, p Purger, reg prometheus.Registerer) *HTTPServer {
	s := &HTTPServer{
		address:  addr,
		logger:   l.With("module", "http_server"),
		sessions: sm,
		recovery: rm,
		registry: r,
		authn:    a,
		purger:   p,
		metrics:  newHTTPMetrics(reg),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}
	return s
}

func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.recoverer)
	r.Use(s.accessLog)
	r.Use(s.metrics.middleware)

	r.Get("/healthz", s.healthz)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/login/", s.login)
	r.Post("/refresh/", s.refresh)
	r.Post("/logout/", s.logout)
	r.Post("/register/", s.register)
	r.Get("/verify-email/", s.verifyEmail)
	r.Post("/forgot-password/", s.forgotPassword)
	r.Post("/reset-password/{token}/", s.resetPassword)

	// logout takes the bearer token as input, so it sits outside this group
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.With(requireAuth).Get("/me/", s.me)
		r.With(requireAuth, requireAdmin).Post("/admin/purge/", s.purge)
	})

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
