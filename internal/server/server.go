package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/sousadfs/supermercado-happe/internal/config"
	"github.com/sousadfs/supermercado-happe/internal/http/handlers"
	"github.com/sousadfs/supermercado-happe/internal/mail"
	"github.com/sousadfs/supermercado-happe/internal/middleware"
	"github.com/sousadfs/supermercado-happe/internal/oauth"
	"github.com/sousadfs/supermercado-happe/internal/session"
	"github.com/sousadfs/supermercado-happe/internal/storage"
	"github.com/sousadfs/supermercado-happe/internal/views"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.UserStore, sessions *session.Store, mailer mail.Mailer, logger *zap.Logger) (*Server, error) {
	renderer, err := views.New()
	if err != nil {
		return nil, err
	}

	cookies := session.NewCookieCodec(cfg.SessionSecret, "supermercado-happe", cfg.SessionTTL)

	var facebook handlers.FacebookFlow
	if cfg.FacebookEnabled() {
		facebook = oauth.NewFacebook(cfg.FacebookClientID, cfg.FacebookClientSecret,
			cfg.BaseURL+"/auth/facebook/callback")
	} else {
		logger.Warn("facebook login disabled: missing FACEBOOK_CLIENT_ID / FACEBOOK_CLIENT_SECRET")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", views.Static())

	health := handlers.NewHealthHandler(time.Now())
	health.Register(mux)

	account := handlers.New(handlers.Config{
		Store:         store,
		Sessions:      sessions,
		Cookies:       cookies,
		Renderer:      renderer,
		Mailer:        mailer,
		Facebook:      facebook,
		Logger:        logger,
		BaseURL:       cfg.BaseURL,
		SecureCookies: cfg.SecureCookies,
	})
	account.Register(mux)

	loader := middleware.NewSessionLoader(sessions, cookies, logger, cfg.SecureCookies)

	protect := csrf.Protect(
		[]byte(cfg.CSRFSecret),
		csrf.Secure(cfg.SecureCookies),
		csrf.Path("/"),
	)

	handler := middleware.Chain(mux,
		middleware.RequestLogger(logger),
		middleware.SecurityHeaders,
		protect,
		loader.Load,
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}, nil
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
