// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/notifier"
)

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendFunc
	now      func() time.Time
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host, ok := cfg.Params["host"].(string); ok {
		e.host = host
	}
	if port, ok := cfg.Params["port"].(int); ok {
		e.port = port
	}
	if username, ok := cfg.Params["username"].(string); ok {
		e.username = username
	}
	if password, ok := cfg.Params["password"].(string); ok {
		e.password = password
	}
	if from, ok := cfg.Params["from"].(string); ok {
		e.from = from
	}
	if to, ok := cfg.Params["to"].([]string); ok {
		e.to = to
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}
	if e.now == nil {
		e.now = time.Now
	}

	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("email: host, from, and to are required"))
	}
	return nil
}

// Send mails one alert. SMTP has no context support; ctx is only checked
// before dialing.
func (e *Email) Send(ctx context.Context, alert notifier.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject := fmt.Sprintf("Folio alert: %s (%s)", alert.Rule, alert.ProfileName)
	return e.sendEmail(subject, formatAlert(alert))
}

func (e *Email) SendBatch(ctx context.Context, alerts []notifier.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Folio digest: %d portfolio alerts", len(alerts))

	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<h2>Folio Portfolio Alerts</h2>")
	fmt.Fprintf(&sb, "<p>Generated at: %s</p>", e.now().Format("2006-01-02 15:04:05"))
	sb.WriteString("<hr>")
	for _, a := range alerts {
		sb.WriteString(formatAlertHTML(a))
		sb.WriteString("<hr>")
	}
	sb.WriteString("</body></html>")

	return e.sendEmail(subject, sb.String())
}

func formatAlert(a notifier.Alert) string {
	return fmt.Sprintf(`
Folio Portfolio Alert

Rule: %s
Severity: %s
Profile: %s
Condition: %s (current %s = %.4g)
Message: %s
Time: %s
`,
		a.Rule,
		a.Severity,
		a.ProfileName,
		a.Expr,
		a.Metric,
		a.Value,
		a.Message,
		a.FiredAt.Format("2006-01-02 15:04:05"),
	)
}

func severityColor(severity string) string {
	switch severity {
	case "critical":
		return "#dc3545"
	case "info":
		return "#17a2b8"
	default:
		return "#ffc107"
	}
}

func formatAlertHTML(a notifier.Alert) string {
	return fmt.Sprintf(`
<div style="margin: 10px 0;">
  <h3 style="color: %s;">%s - %s</h3>
  <p><strong>Condition:</strong> %s (current %s = %.4g)</p>
  <p><strong>Message:</strong> %s</p>
  <p><small>%s</small></p>
</div>
`,
		severityColor(a.Severity),
		html.EscapeString(a.Rule),
		html.EscapeString(a.ProfileName),
		html.EscapeString(a.Expr),
		html.EscapeString(a.Metric),
		a.Value,
		html.EscapeString(a.Message),
		a.FiredAt.Format("2006-01-02 15:04:05"),
	)
}

func (e *Email) sendEmail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	contentType := "text/plain"
	if strings.Contains(body, "<html>") {
		contentType = "text/html"
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		contentType,
		body,
	)

	if err := e.send(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("email: %w", err))
	}
	return nil
}
