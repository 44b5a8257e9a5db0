package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/taskpilot/taskpilot/internal/pkg/env"
)

// SendMail sends an HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// ActivationMail renders the account activation email.
func ActivationMail(baseURL, token string) (subject, body string) {
	link := strings.TrimRight(baseURL, "/") + "/verify-email?token=" + token
	subject = "Activate your TaskPilot account"
	body = "<p>Welcome to TaskPilot!</p>" +
		"<p>Please confirm your email address by clicking the link below:</p>" +
		fmt.Sprintf(`<p><a href="%s">%s</a></p>`, link, link)
	return subject, body
}

// PasswordResetMail renders the password reset email.
func PasswordResetMail(baseURL, token string) (subject, body string) {
	link := strings.TrimRight(baseURL, "/") + "/password-reset?token=" + token
	subject = "Reset your TaskPilot password"
	body = "<p>We received a request to reset your password.</p>" +
		fmt.Sprintf(`<p><a href="%s">%s</a></p>`, link, link) +
		"<p>If you did not request this, you can ignore this email.</p>"
	return subject, body
}
