// Package handlers contains the HTTP route handlers for the account flows.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/sousadfs/supermercado-happe/internal/mail"
	"github.com/sousadfs/supermercado-happe/internal/models"
	oauthfb "github.com/sousadfs/supermercado-happe/internal/oauth"
	"github.com/sousadfs/supermercado-happe/internal/session"
	"github.com/sousadfs/supermercado-happe/internal/storage"
	"github.com/sousadfs/supermercado-happe/internal/views"
)

// FacebookFlow is the minimal interface the OAuth handlers need from the
// Facebook client.
type FacebookFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (oauthfb.Profile, error)
}

var _ FacebookFlow = (*oauthfb.Facebook)(nil)

// Handler owns the account routes: login, signup, profile, password
// change and reset, account deletion, OAuth link/unlink.
type Handler struct {
	store    storage.UserStore
	sessions *session.Store
	cookies  *session.CookieCodec
	renderer *views.Renderer
	mailer   mail.Mailer
	facebook FacebookFlow
	logger   *zap.Logger

	baseURL       string
	secureCookies bool
}

// Config carries the handler dependencies.
type Config struct {
	Store    storage.UserStore
	Sessions *session.Store
	Cookies  *session.CookieCodec
	Renderer *views.Renderer
	Mailer   mail.Mailer
	Facebook FacebookFlow
	Logger   *zap.Logger

	BaseURL       string
	SecureCookies bool
}

// New constructs the handler.
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mailer := cfg.Mailer
	if mailer == nil {
		mailer = mail.Disabled{}
	}
	return &Handler{
		store:         cfg.Store,
		sessions:      cfg.Sessions,
		cookies:       cfg.Cookies,
		renderer:      cfg.Renderer,
		mailer:        mailer,
		facebook:      cfg.Facebook,
		logger:        logger,
		baseURL:       cfg.BaseURL,
		secureCookies: cfg.SecureCookies,
	}
}

// Register attaches the account routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.home)

	mux.HandleFunc("GET /entrar", h.getLogin)
	mux.HandleFunc("POST /entrar", h.postLogin)
	mux.HandleFunc("GET /sair", h.logout)

	mux.HandleFunc("GET /registrar", h.getSignup)
	mux.HandleFunc("POST /registrar", h.postSignup)

	mux.HandleFunc("GET /esqueci-a-senha", h.getForgot)
	mux.HandleFunc("POST /esqueci-a-senha", h.postForgot)
	mux.HandleFunc("GET /redefinir-senha/{token}", h.getReset)
	mux.HandleFunc("POST /redefinir-senha/{token}", h.postReset)

	mux.Handle("GET /conta", h.requireLogin(h.getAccount))
	mux.Handle("POST /conta/perfil", h.requireLogin(h.postUpdateProfile))
	mux.Handle("POST /conta/senha", h.requireLogin(h.postUpdatePassword))
	mux.Handle("POST /conta/excluir", h.requireLogin(h.postDeleteAccount))
	mux.Handle("GET /conta/desvincular/{provider}", h.requireLogin(h.getOauthUnlink))

	mux.HandleFunc("GET /auth/facebook", h.getFacebook)
	mux.HandleFunc("GET /auth/facebook/callback", h.getFacebookCallback)
}

// home redirects to the account page or the login page.
func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil && sess.Authenticated() {
		http.Redirect(w, r, "/conta", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/entrar", http.StatusFound)
}

// requireLogin redirects anonymous requests to the login page.
func (h *Handler) requireLogin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil || !sess.Authenticated() {
			http.Redirect(w, r, "/entrar", http.StatusFound)
			return
		}
		next(w, r)
	})
}

// render writes a page, draining queued flash notices into it.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data views.Data) {
	sess := session.FromContext(r.Context())
	if sess != nil {
		data.Flashes = sess.TakeFlashes()
		if data.Flashes != nil {
			if err := h.sessions.Save(r.Context(), sess); err != nil {
				h.logger.Error("save session after flash drain", zap.Error(err))
			}
		}
		if data.User == nil && sess.Authenticated() {
			if user, err := h.store.FindByID(r.Context(), sess.UserID); err == nil {
				data.User = &user
			}
		}
	}
	data.CSRFField = csrf.TemplateField(r)

	if err := h.renderer.Render(w, page, data); err != nil {
		h.logger.Error("render page", zap.String("page", page), zap.Error(err))
	}
}

// flashAndRedirect queues a notice and redirects.
func (h *Handler) flashAndRedirect(w http.ResponseWriter, r *http.Request, category, message, location string) {
	sess := session.FromContext(r.Context())
	if sess != nil {
		sess.AddFlash(category, message)
		if err := h.sessions.Save(r.Context(), sess); err != nil {
			h.logger.Error("save session flash", zap.Error(err))
		}
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// flashErrors queues every validation message and redirects back.
func (h *Handler) flashErrors(w http.ResponseWriter, r *http.Request, messages []string, location string) {
	sess := session.FromContext(r.Context())
	if sess != nil {
		for _, msg := range messages {
			sess.AddFlash(session.FlashErrors, msg)
		}
		if err := h.sessions.Save(r.Context(), sess); err != nil {
			h.logger.Error("save session flash", zap.Error(err))
		}
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// serverError logs the failure and renders the generic error page.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	w.WriteHeader(http.StatusInternalServerError)
	h.render(w, r, "error", views.Data{Title: "Erro"})
}

// login binds the user to a renewed session and sets the cookie.
func (h *Handler) login(w http.ResponseWriter, r *http.Request, user models.User) (*session.Session, error) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		created, err := h.sessions.New(r.Context())
		if err != nil {
			return nil, err
		}
		sess = created
	}
	sess.UserID = user.ID
	renewed, err := h.sessions.Renew(r.Context(), sess)
	if err != nil {
		return nil, err
	}
	if err := h.cookies.SetCookie(w, renewed.ID, h.secureCookies); err != nil {
		return nil, err
	}
	*sess = *renewed
	return sess, nil
}

// currentUser fetches the authenticated user, if any.
func (h *Handler) currentUser(r *http.Request) (models.User, bool) {
	sess := session.FromContext(r.Context())
	if sess == nil || !sess.Authenticated() {
		return models.User{}, false
	}
	user, err := h.store.FindByID(r.Context(), sess.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Error("load current user", zap.Int64("user_id", sess.UserID), zap.Error(err))
		}
		return models.User{}, false
	}
	return user, true
}
