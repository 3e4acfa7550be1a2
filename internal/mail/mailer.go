// Package mail delivers account notifications over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned when outbound mail has no SMTP settings.
var ErrNotConfigured = errors.New("outbound mail not configured")

// Mailer sends the account-flow notifications.
type Mailer interface {
	// SendPasswordReset mails the reset link for a pending token.
	SendPasswordReset(ctx context.Context, to, resetURL string) error
	// SendPasswordChanged confirms a completed password change.
	SendPasswordChanged(ctx context.Context, to string) error
}

// SMTPMailer delivers mail through a single SMTP endpoint.
type SMTPMailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
}

// NewSMTPMailer creates a mailer for the given SMTP endpoint.
func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, password: password, from: from}
}

// SendPasswordReset mails the reset link for a pending token.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	body := fmt.Sprintf("Você está recebendo esse email porque você (ou outra pessoa) fez a solicitação para alteração de senha.\n\n"+
		"Por favor, clique no link abaixo ou copie e cole no seu navegador:\n\n"+
		"%s\n\n"+
		"Se você não fez essa requisição, ignore esse email e a sua senha permanecerá a mesma.\n", resetURL)
	return m.send(ctx, to, "Alterar a senha - Supermercado HAPPE", body)
}

// SendPasswordChanged confirms a completed password change.
func (m *SMTPMailer) SendPasswordChanged(ctx context.Context, to string) error {
	body := fmt.Sprintf("Olá,\n\nA senha da conta %s foi alterada com sucesso.\n", to)
	return m.send(ctx, to, "Senha alterada - Supermercado HAPPE", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	opts := []gomail.Option{
		gomail.WithPort(m.port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.user != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.user),
			gomail.WithPassword(m.password))
	}

	client, err := gomail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Disabled is a Mailer that rejects every send; used when SMTP settings
// are absent so the rest of the app can still run.
type Disabled struct{}

// SendPasswordReset always fails with ErrNotConfigured.
func (Disabled) SendPasswordReset(context.Context, string, string) error { return ErrNotConfigured }

// SendPasswordChanged always fails with ErrNotConfigured.
func (Disabled) SendPasswordChanged(context.Context, string) error { return ErrNotConfigured }
