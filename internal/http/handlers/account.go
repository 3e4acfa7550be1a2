package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sousadfs/supermercado-happe/internal/models"
	"github.com/sousadfs/supermercado-happe/internal/session"
	"github.com/sousadfs/supermercado-happe/internal/storage"
	"github.com/sousadfs/supermercado-happe/internal/views"
)

func (h *Handler) getLogin(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil && sess.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, "login", views.Data{Title: "Entrar"})
}

func (h *Handler) postLogin(w http.ResponseWriter, r *http.Request) {
	email := normalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")

	if errs := validateLogin(email, password); len(errs) > 0 {
		h.flashErrors(w, r, errs, "/entrar")
		return
	}

	user, err := h.store.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.flashAndRedirect(w, r, session.FlashErrors, "Email ou senha inválidos.", "/entrar")
			return
		}
		h.serverError(w, r, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		h.flashAndRedirect(w, r, session.FlashErrors, "Email ou senha inválidos.", "/entrar")
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
	sess.AddFlash(session.FlashSuccess, fmt.Sprintf("Seja bem-vindo %s!", user.Name))
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil {
		if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
			h.logger.Error("delete session on logout", zap.Error(err))
		}
	}
	h.cookies.ClearCookie(w, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) getSignup(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil && sess.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, "signup", views.Data{Title: "Registrar"})
}

func (h *Handler) postSignup(w http.ResponseWriter, r *http.Request) {
	email := normalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirmPassword")

	if errs := validateSignup(email, password, confirm); len(errs) > 0 {
		h.flashErrors(w, r, errs, "/registrar")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	// The unique index is the authority on duplicates; no pre-check.
	user, err := h.store.CreateUser(r.Context(), models.User{
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			h.flashAndRedirect(w, r, session.FlashErrors,
				"Já existe uma conta com o email inserido.", "/registrar")
			return
		}
		h.serverError(w, r, err)
		return
	}

	if _, err := h.login(w, r, user); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/entrar", http.StatusFound)
		return
	}
	h.render(w, r, "profile", views.Data{Title: "Gerenciar Conta", User: &user})
}

func (h *Handler) postUpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	email := normalizeEmail(r.FormValue("email"))
	if !validEmail(email) {
		h.flashAndRedirect(w, r, session.FlashErrors, msgInvalidEmail, "/conta")
		return
	}

	// Missing fields clear the stored value: last write wins.
	update := storage.ProfileUpdate{
		Email:    email,
		Name:     r.FormValue("name"),
		Gender:   r.FormValue("gender"),
		Location: r.FormValue("location"),
		Website:  r.FormValue("website"),
	}
	if err := h.store.UpdateProfile(r.Context(), sess.UserID, update); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			h.flashAndRedirect(w, r, session.FlashErrors,
				"O endereço de email já está associado à outra conta.", "/conta")
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.flashAndRedirect(w, r, session.FlashSuccess,
		"As informações do perfil foram atualizadas.", "/conta")
}

func (h *Handler) postUpdatePassword(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	password := r.FormValue("password")
	confirm := r.FormValue("confirmPassword")

	if errs := validateNewPassword(password, confirm); len(errs) > 0 {
		h.flashErrors(w, r, errs, "/conta")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if err := h.store.UpdatePassword(r.Context(), sess.UserID, string(hash)); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.flashAndRedirect(w, r, session.FlashSuccess, "A senha foi alterada.", "/conta")
}

func (h *Handler) postDeleteAccount(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if err := h.store.DeleteUser(r.Context(), sess.UserID); err != nil {
		h.serverError(w, r, err)
		return
	}
	if err := h.sessions.Delete(r.Context(), sess.ID); err != nil {
		h.logger.Error("delete session after account removal", zap.Error(err))
	}
	h.cookies.ClearCookie(w, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) getOauthUnlink(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	provider := r.PathValue("provider")
	if !models.KnownProvider(provider) {
		h.flashAndRedirect(w, r, session.FlashErrors, "Provedor desconhecido.", "/conta")
		return
	}
	if err := h.store.UnlinkProvider(r.Context(), sess.UserID, provider); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.flashAndRedirect(w, r, session.FlashInfo,
		fmt.Sprintf("A conta do %s foi desvinculada do seu perfil.", provider), "/conta")
}
