package queue

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

// mailer sends moderation notifications over SMTP.  Configuration is
// read from the environment; when any required variable is missing the
// mailer is disabled and sends become no-ops, so the consumer keeps
// draining the queue either way.
type mailer struct {
	host    string
	port    string
	user    string
	pass    string
	from    string
	to      string
	enabled bool
}

func newMailerFromEnv() *mailer {
	m := &mailer{
		host: os.Getenv("SMTP_HOST"),
		port: os.Getenv("SMTP_PORT"),
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: os.Getenv("SMTP_FROM"),
		to:   os.Getenv("MODERATOR_EMAIL"),
	}
	m.enabled = m.host != "" && m.port != "" && m.from != "" && m.to != ""
	if !m.enabled {
		log.Println("notify-consumer: mailer disabled, missing SMTP environment variables")
	}
	return m
}

// send delivers a plain-text message to the moderator address.
func (m *mailer) send(subject, body string) error {
	if !m.enabled {
		return nil
	}
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	msg := []byte(strings.Join([]string{
		"To: " + m.to,
		"From: " + m.from,
		"Subject: " + subject,
		"MIME-version: 1.0;",
		`Content-Type: text/plain; charset="UTF-8";`,
		"",
		body,
	}, "\r\n"))
	return smtp.SendMail(addr, auth, m.from, []string{m.to}, msg)
}
