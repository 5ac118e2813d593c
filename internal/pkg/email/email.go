package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer delivers notification e-mails
type Mailer interface {
	SendNotification(toEmail, toName, message, link string) error
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	BaseURL   string // Base URL used to build absolute links
}

// SMTPMailer sends e-mails through an SMTP server
type SMTPMailer struct {
	config SMTPConfig
	dialer *gomail.Dialer
	logger zerolog.Logger
}

// NewMailer returns an SMTP mailer, or a logging mailer when SMTP is not configured
func NewMailer(config SMTPConfig, logger zerolog.Logger) Mailer {
	if config.Host == "" || config.FromEmail == "" {
		return &LogMailer{logger: logger}
	}
	return &SMTPMailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger: logger,
	}
}

// SendNotification e-mails a notification message with a link back to the site
func (m *SMTPMailer) SendNotification(toEmail, toName, message, link string) error {
	msg := m.buildMessage(toEmail, toName, message, link)
	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error().Err(err).Str("toEmail", toEmail).Msg("Failed to send notification e-mail")
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.Debug().Str("toEmail", toEmail).Msg("Notification e-mail sent")
	return nil
}

func (m *SMTPMailer) buildMessage(toEmail, toName, message, link string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("Message-ID", generateMessageID(domainOf(m.config.FromEmail)))
	msg.SetHeader("Date", time.Now().Format(time.RFC1123Z))
	msg.SetAddressHeader("From", m.config.FromEmail, m.config.FromName)
	msg.SetAddressHeader("To", toEmail, toName)
	msg.SetHeader("Subject", "CommunityLink notification")

	url := ""
	if link != "" {
		url = strings.TrimRight(m.config.BaseURL, "/") + link
	}

	text := message
	if url != "" {
		text += "\n\n" + url
	}
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", renderHTML(toName, message, url))
	return msg
}

func renderHTML(toName, message, url string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`)
	fmt.Fprintf(&b, "<p>Hello %s,</p><p>%s</p>", html.EscapeString(toName), html.EscapeString(message))
	if url != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Open CommunityLink</a></p>`, html.EscapeString(url))
	}
	b.WriteString("<p>The CommunityLink Team</p></div></body></html>")
	return b.String()
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}

func generateMessageID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}

// LogMailer only logs what would have been sent. It is used when SMTP is not configured.
type LogMailer struct {
	logger zerolog.Logger
}

// SendNotification logs the message
func (m *LogMailer) SendNotification(toEmail, toName, message, link string) error {
	m.logger.Info().
		Str("toEmail", toEmail).
		Str("link", link).
		Str("message", message).
		Msg("SMTP not configured - notification e-mail not sent")
	return nil
}
