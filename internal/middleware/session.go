package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sousadfs/supermercado-happe/internal/session"
)

// SessionLoader resolves the session cookie on every request, creating an
// anonymous session when none exists, and records the return-to path for
// anonymous page visits so login can send the user back.
type SessionLoader struct {
	store   *session.Store
	cookies *session.CookieCodec
	logger  *zap.Logger
	secure  bool
}

// NewSessionLoader creates the loader.
func NewSessionLoader(store *session.Store, cookies *session.CookieCodec, logger *zap.Logger, secure bool) *SessionLoader {
	return &SessionLoader{store: store, cookies: cookies, logger: logger, secure: secure}
}

// Load is the middleware function attaching the session to the context.
func (l *SessionLoader) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := l.resolve(w, r)
		if sess == nil {
			http.Error(w, "serviço indisponível", http.StatusServiceUnavailable)
			return
		}

		if l.recordReturnTo(r, sess) {
			if err := l.store.Save(r.Context(), sess); err != nil {
				l.logger.Error("save session return-to", zap.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

// resolve returns the request session, newly created when the cookie is
// absent, tampered, or points at an expired record.
func (l *SessionLoader) resolve(w http.ResponseWriter, r *http.Request) *session.Session {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if sid, err := l.cookies.Decode(cookie.Value); err == nil {
			sess, err := l.store.Get(r.Context(), sid)
			if err == nil {
				return sess
			}
			if !errors.Is(err, session.ErrNotFound) {
				l.logger.Error("load session", zap.Error(err))
				return nil
			}
		}
	}

	sess, err := l.store.New(r.Context())
	if err != nil {
		l.logger.Error("create session", zap.Error(err))
		return nil
	}
	if err := l.cookies.SetCookie(w, sess.ID, l.secure); err != nil {
		l.logger.Error("set session cookie", zap.Error(err))
		return nil
	}
	return sess
}

// recordReturnTo mirrors the original post-login redirect bookkeeping:
// anonymous page GETs (and /conta for signed-in users) become the next
// login's destination.
func (l *SessionLoader) recordReturnTo(r *http.Request, sess *session.Session) bool {
	if r.Method != http.MethodGet || staticPath(r.URL.Path) {
		return false
	}
	path := r.URL.Path

	if !sess.Authenticated() {
		if path == "/entrar" || path == "/registrar" || strings.HasPrefix(path, "/auth") {
			return false
		}
		if sess.ReturnTo == path {
			return false
		}
		sess.ReturnTo = path
		return true
	}

	if path == "/conta" && sess.ReturnTo != path {
		sess.ReturnTo = path
		return true
	}
	return false
}
