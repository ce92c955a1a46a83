package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/notifier"
)

type captured struct {
	addr string
	to   []string
	msg  string
}

func newTestEmail(fail bool) (*Email, *captured) {
	e := New("smtp.example.com", 587, "", "", "from@example.com", []string{"to@example.com"})
	c := &captured{}
	e.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if fail {
			return errors.New("connection refused")
		}
		c.addr, c.to, c.msg = addr, to, string(msg)
		return nil
	}
	e.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return e, c
}

func sampleAlert(severity string) notifier.Alert {
	return notifier.Alert{
		Rule:        "bond_heavy",
		Severity:    severity,
		ProfileName: "Income <Core>",
		Metric:      "bond_weight",
		Value:       0.75,
		Expr:        "bond_weight > 0.7",
		Message:     "Bond weight above target",
		FiredAt:     time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestEmail_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Email)(nil)
}

func TestEmail_Name(t *testing.T) {
	e := New("smtp.example.com", 587, "", "", "from@example.com", []string{"to@example.com"})
	if e.Name() != "email" {
		t.Errorf("expected 'email', got %s", e.Name())
	}
}

func TestEmail_Init_RequiredFields(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{Params: map[string]any{}})
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestEmail_Init_WithConfig(t *testing.T) {
	e := &Email{}
	err := e.Init(notifier.Config{
		Params: map[string]any{
			"host": "smtp.example.com",
			"port": 587,
			"from": "folio@example.com",
			"to":   []string{"user@example.com"},
		},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if e.host != "smtp.example.com" {
		t.Errorf("expected host smtp.example.com, got %s", e.host)
	}
	assert.NotNil(t, e.send)
}

func TestEmail_Send(t *testing.T) {
	e, c := newTestEmail(false)

	require.NoError(t, e.Send(context.Background(), sampleAlert("warning")))
	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.Equal(t, []string{"to@example.com"}, c.to)
	assert.Contains(t, c.msg, "Subject: Folio alert: bond_heavy (Income <Core>)")
	assert.Contains(t, c.msg, "Content-Type: text/plain")
	assert.Contains(t, c.msg, "Condition: bond_weight > 0.7 (current bond_weight = 0.75)")
}

func TestEmail_SendBatch(t *testing.T) {
	e, c := newTestEmail(false)

	require.NoError(t, e.SendBatch(context.Background(), []notifier.Alert{sampleAlert("critical"), sampleAlert("info")}))
	assert.Contains(t, c.msg, "Subject: Folio digest: 2 portfolio alerts")
	assert.Contains(t, c.msg, "Content-Type: text/html")
	assert.Contains(t, c.msg, "Generated at: 2026-03-02 10:00:00")
	assert.Contains(t, c.msg, "Income &lt;Core&gt;")
	assert.Equal(t, 2, strings.Count(c.msg, "<div"))
}

func TestSeverityColor(t *testing.T) {
	assert.Equal(t, "#dc3545", severityColor("critical"))
	assert.Equal(t, "#ffc107", severityColor("warning"))
	assert.True(t, strings.Contains(formatAlertHTML(sampleAlert("info")), "#17a2b8"))
}

func TestEmail_SendBatch_Empty(t *testing.T) {
	e, _ := newTestEmail(true)
	if err := e.SendBatch(context.Background(), []notifier.Alert{}); err != nil {
		t.Errorf("empty batch should not error: %v", err)
	}
}

func TestEmail_SendFailure(t *testing.T) {
	e, _ := newTestEmail(true)
	err := e.Send(context.Background(), sampleAlert("warning"))
	assert.ErrorIs(t, err, core.ErrNotifierFailed)
}
