// Package email delivers verification, password reset and welcome messages.
// SMTPSender sends them directly; KafkaPublisher hands them to a mail service.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/redmonkez12/ai-data-assistant/templates"
)

// Kind identifies a message type in metrics, events and templates
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
	KindWelcome       Kind = "welcome"
)

var subjects = map[Kind]string{
	KindVerification:  "Verify your email address",
	KindPasswordReset: "Reset your password",
	KindWelcome:       "Welcome to %s",
}

// Links builds the frontend URLs placed in emails. Tokens are inserted as-is;
// they are URL-safe and matched byte for byte on the way back.
type Links struct {
	BaseURL string
}

func (l Links) Verification(token string) string {
	return fmt.Sprintf("%s/verify?token=%s", l.BaseURL, token)
}

func (l Links) PasswordReset(token string) string {
	return fmt.Sprintf("%s/reset?token=%s", l.BaseURL, token)
}

func (l Links) Login() string {
	return l.BaseURL + "/"
}

// Message is one rendered email
type Message struct {
	Kind     Kind
	To       string
	Username string
	Subject  string
	Link     string
	HTML     string
}

type templateData struct {
	AppName   string
	Username  string
	Link      string
	ExpiresIn string
}

// renderer turns a kind plus recipient into a Message
type renderer struct {
	appName string
	links   Links
	ttls    map[Kind]time.Duration
	tmpl    *template.Template
}

func newRenderer(appName string, links Links, verificationTTL, resetTTL time.Duration) (*renderer, error) {
	tmpl, err := template.ParseFS(templates.EmailFS, "email/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	return &renderer{
		appName: appName,
		links:   links,
		ttls: map[Kind]time.Duration{
			KindVerification:  verificationTTL,
			KindPasswordReset: resetTTL,
		},
		tmpl: tmpl,
	}, nil
}

func (r *renderer) render(kind Kind, to, username, link string) (Message, error) {
	data := templateData{
		AppName:   r.appName,
		Username:  username,
		Link:      link,
		ExpiresIn: humanDuration(r.ttls[kind]),
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, string(kind)+".html", data); err != nil {
		return Message{}, fmt.Errorf("execute %s template: %w", kind, err)
	}

	subject := subjects[kind]
	if kind == KindWelcome {
		subject = fmt.Sprintf(subject, r.appName)
	}

	return Message{
		Kind:     kind,
		To:       to,
		Username: username,
		Subject:  subject,
		Link:     link,
		HTML:     buf.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%(24*time.Hour) == 0:
		return plural(int(d/(24*time.Hour)), "day")
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
