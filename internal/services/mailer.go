package services

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends transactional email over SMTP. Dispatch happens off the
// request's critical path; a failed send is logged by the caller and never
// rolls back committed state.
type Mailer struct {
	dialer      *gomail.Dialer
	from        string
	frontendURL string
}

func NewMailer(host string, port int, username, password, from, frontendURL string) *Mailer {
	return &Mailer{
		dialer:      gomail.NewDialer(host, port, username, password),
		from:        from,
		frontendURL: frontendURL,
	}
}

// SendVerificationEmail sends the email-verification link for a freshly
// registered user.
func (m *Mailer) SendVerificationEmail(to, token string) error {
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", m.frontendURL, token)
	body := fmt.Sprintf("Please verify your email by clicking the following link: %s", link)
	return m.send(to, "Verify your email", body)
}

// SendPasswordResetEmail sends the password reset link. The raw token goes
// to the user; only its hash is stored server-side.
func (m *Mailer) SendPasswordResetEmail(to, token string) error {
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", m.frontendURL, token)
	body := fmt.Sprintf("To reset your password, click the following link: %s\n\nThe link expires in 30 minutes. If you did not request a reset, ignore this email.", link)
	return m.send(to, "Reset your password", body)
}

func (m *Mailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
