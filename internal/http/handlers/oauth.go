package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sousadfs/supermercado-happe/internal/models"
	oauthfb "github.com/sousadfs/supermercado-happe/internal/oauth"
	"github.com/sousadfs/supermercado-happe/internal/session"
	"github.com/sousadfs/supermercado-happe/internal/storage"
)

const oauthStateCookie = "happe_oauth_state"

func (h *Handler) getFacebook(w http.ResponseWriter, r *http.Request) {
	if h.facebook == nil {
		h.flashAndRedirect(w, r, session.FlashErrors,
			"O login com Facebook não está disponível no momento.", "/entrar")
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		h.serverError(w, r, err)
		return
	}
	state := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/facebook",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.facebook.AuthCodeURL(state), http.StatusFound)
}

func (h *Handler) getFacebookCallback(w http.ResponseWriter, r *http.Request) {
	if h.facebook == nil {
		http.Redirect(w, r, "/entrar", http.StatusFound)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		h.flashAndRedirect(w, r, session.FlashErrors,
			"Não foi possível validar a resposta do Facebook.", "/entrar")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth/facebook", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.flashAndRedirect(w, r, session.FlashErrors,
			"O login com Facebook foi cancelado.", "/entrar")
		return
	}

	token, err := h.facebook.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("facebook exchange", zap.Error(err))
		h.flashAndRedirect(w, r, session.FlashErrors,
			"Não foi possível entrar com o Facebook.", "/entrar")
		return
	}
	profile, err := h.facebook.FetchProfile(r.Context(), token)
	if err != nil {
		h.logger.Error("facebook profile", zap.Error(err))
		h.flashAndRedirect(w, r, session.FlashErrors,
			"Não foi possível entrar com o Facebook.", "/entrar")
		return
	}

	user, err := h.userForFacebook(r, profile, token.AccessToken)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	returnTo := "/"
	if sess := session.FromContext(r.Context()); sess != nil && sess.ReturnTo != "" {
		returnTo = sess.ReturnTo
	}

	sess, err := h.login(w, r, user)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	sess.ReturnTo = ""
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// userForFacebook resolves the Graph profile to a local account: the
// already-linked user when one exists, otherwise the signed-in user (link
// flow from the account page), otherwise a fresh account on first login.
func (h *Handler) userForFacebook(r *http.Request, profile oauthfb.Profile, accessToken string) (models.User, error) {
	ctx := r.Context()

	user, err := h.store.FindByFacebookID(ctx, profile.ID)
	switch {
	case err == nil:
		return user, nil
	case !errors.Is(err, storage.ErrNotFound):
		return models.User{}, err
	}

	if current, ok := h.currentUser(r); ok {
		if err := h.store.LinkFacebook(ctx, current.ID, profile.ID, accessToken); err != nil {
			return models.User{}, err
		}
		return h.store.FindByID(ctx, current.ID)
	}

	created, err := h.store.CreateUser(ctx, models.User{
		Email:         normalizeEmail(profile.Email),
		Name:          profile.Name,
		FacebookID:    profile.ID,
		FacebookToken: accessToken,
	})
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, storage.ErrDuplicateEmail) {
		return models.User{}, err
	}

	// An account with this email already exists; link it.
	existing, err := h.store.FindByEmail(ctx, normalizeEmail(profile.Email))
	if err != nil {
		return models.User{}, err
	}
	if err := h.store.LinkFacebook(ctx, existing.ID, profile.ID, accessToken); err != nil {
		return models.User{}, err
	}
	return h.store.FindByID(ctx, existing.ID)
}
