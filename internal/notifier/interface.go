// Package notifier delivers portfolio alerts to external channels.
package notifier

import (
	"context"
	"time"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Alert is a fired portfolio risk rule.
type Alert struct {
	Rule        string    `json:"rule"`
	Severity    string    `json:"severity"`
	ProfileID   string    `json:"profileId"`
	ProfileName string    `json:"profileName"`
	Metric      string    `json:"metric"`
	Value       float64   `json:"value"`
	Expr        string    `json:"expr"`
	Message     string    `json:"message"`
	FiredAt     time.Time `json:"firedAt"`
}

// Notifier defines the interface for alert delivery
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single alert
	Send(ctx context.Context, alert Alert) error

	// SendBatch delivers several alerts in one message
	SendBatch(ctx context.Context, alerts []Alert) error
}
