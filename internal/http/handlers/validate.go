package handlers

import (
	"strings"

	"github.com/mcnijman/go-emailaddress"
)

const (
	minPasswordLen = 8
	// bcrypt only reads the first 72 bytes; longer input is rejected
	// before hashing instead of being silently truncated.
	maxPasswordLen = 72
)

// Validation messages shown as error flashes.
const (
	msgInvalidEmail      = "Por favor, digite um email válido."
	msgPasswordRequired  = "A senha deve ser preenchida"
	msgPasswordTooShort  = "A senha deve conter no mínimo 8 caracteres"
	msgPasswordTooLong   = "A senha deve conter no máximo 72 caracteres"
	msgPasswordsMismatch = "As senhas não coincidem"
)

// normalizeEmail lowercases and trims an address for storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail reports whether the address is syntactically valid.
func validEmail(email string) bool {
	_, err := emailaddress.Parse(strings.TrimSpace(email))
	return err == nil
}

// validateSignup collects every failing check before anything persists.
func validateSignup(email, password, confirm string) []string {
	var errs []string
	if !validEmail(email) {
		errs = append(errs, msgInvalidEmail)
	}
	errs = append(errs, validateNewPassword(password, confirm)...)
	return errs
}

// validateNewPassword enforces the length and confirmation rules shared by
// signup, password change, and password reset.
func validateNewPassword(password, confirm string) []string {
	var errs []string
	if len(password) < minPasswordLen {
		errs = append(errs, msgPasswordTooShort)
	}
	if len(password) > maxPasswordLen {
		errs = append(errs, msgPasswordTooLong)
	}
	if confirm != password {
		errs = append(errs, msgPasswordsMismatch)
	}
	return errs
}

// validateLogin checks the login form.
func validateLogin(email, password string) []string {
	var errs []string
	if !validEmail(email) {
		errs = append(errs, "Email inválido")
	}
	if password == "" {
		errs = append(errs, msgPasswordRequired)
	}
	return errs
}
