// Package mailer composes and sends the retrieval-link email.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	mail "github.com/wneessen/go-mail"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const subject = "File Download Link"

// Config carries the SMTP account and link-building settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
}

// Mailer sends download-link messages through a single SMTP account. One
// attempt per message, no retry.
type Mailer struct {
	client  *mail.Client
	from    string
	baseURL string
	tmpl    *template.Template
}

// New builds a Mailer from the SMTP configuration.
func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("from address is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &Mailer{
		client:  client,
		from:    cfg.From,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tmpl:    tmpl,
	}, nil
}

// SendLink dispatches the download link for token to the destination address.
func (m *Mailer) SendLink(ctx context.Context, to, token, fileName string) error {
	if m == nil {
		return errors.New("nil mailer")
	}

	body, err := m.render(token, fileName)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	return m.client.DialAndSendWithContext(ctx, msg)
}

func (m *Mailer) render(token, fileName string) (string, error) {
	data := map[string]string{
		"FileName": fileName,
		"Link":     fmt.Sprintf("%s/file/%s", m.baseURL, token),
	}

	buf := bytes.NewBuffer(nil)
	if err := m.tmpl.ExecuteTemplate(buf, "link.html.tmpl", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
