package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sousadfs/supermercado-happe/internal/session"
	"github.com/sousadfs/supermercado-happe/internal/storage"
	"github.com/sousadfs/supermercado-happe/internal/views"
)

const (
	resetTokenBytes = 16
	resetTokenTTL   = time.Hour
)

const msgResetTokenInvalid = "O token para resetar a senha é inválido ou se expirou."

// forgotNotice is shown whether or not the email is registered, so the
// response does not reveal which addresses have accounts.
const forgotNotice = "Se existir uma conta vinculada à esse email, enviaremos as instruções para alterar a sua senha."

// newResetToken generates the opaque hex reset token.
func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (h *Handler) getForgot(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil && sess.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, "forgot", views.Data{Title: "Esqueci a senha"})
}

func (h *Handler) postForgot(w http.ResponseWriter, r *http.Request) {
	email := normalizeEmail(r.FormValue("email"))
	if !validEmail(email) {
		h.flashAndRedirect(w, r, session.FlashErrors, msgInvalidEmail, "/esqueci-a-senha")
		return
	}

	token, err := newResetToken()
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	err = h.store.SetResetToken(r.Context(), email, token, time.Now().Add(resetTokenTTL))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Unknown address: same notice, no mail sent.
			h.flashAndRedirect(w, r, session.FlashInfo, forgotNotice, "/esqueci-a-senha")
			return
		}
		h.serverError(w, r, err)
		return
	}

	resetURL := h.baseURL + "/redefinir-senha/" + token
	if err := h.mailer.SendPasswordReset(r.Context(), email, resetURL); err != nil {
		// The token is already persisted; keep the response uniform and
		// leave delivery problems to the logs.
		h.logger.Error("send reset mail", zap.Error(err))
	}
	h.flashAndRedirect(w, r, session.FlashInfo, forgotNotice, "/esqueci-a-senha")
}

func (h *Handler) getReset(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil && sess.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	token := r.PathValue("token")

	_, err := h.store.FindByResetToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.flashAndRedirect(w, r, session.FlashErrors, msgResetTokenInvalid, "/esqueci-a-senha")
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "reset", views.Data{Title: "Alterar Senha", Token: token})
}

func (h *Handler) postReset(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	password := r.FormValue("password")
	confirm := r.FormValue("confirm")

	if errs := validateNewPassword(password, confirm); len(errs) > 0 {
		h.flashErrors(w, r, errs, "/redefinir-senha/"+token)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	// Token consumption and credential replacement happen in one
	// statement inside the store.
	user, err := h.store.ResetPassword(r.Context(), token, string(hash))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.flashAndRedirect(w, r, session.FlashErrors, msgResetTokenInvalid, "/redefinir-senha/"+token)
			return
		}
		h.serverError(w, r, err)
		return
	}

	sess, err := h.login(w, r, user)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	// The password change is durable at this point; a failed confirmation
	// mail is logged but never fails the request.
	if err := h.mailer.SendPasswordChanged(r.Context(), user.Email); err != nil {
		h.logger.Error("send password-changed mail", zap.Error(err))
	}

	sess.AddFlash(session.FlashSuccess, "A sua senha foi alterada com sucesso.")
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
