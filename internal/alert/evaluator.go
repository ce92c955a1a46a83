package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/notifier"
)

// Sender delivers fired alerts. *notifier.Registry implements it.
type Sender interface {
	NotifyAll(ctx context.Context, alert notifier.Alert) map[string]error
}

// Recorder counts fired rules.
type Recorder interface {
	RecordAlert(rule string)
}

// DefaultCooldown separates two firings of the same rule on one profile.
const DefaultCooldown = time.Hour

// Evaluator evaluates alert rules per profile and sends notifications.
type Evaluator struct {
	rules    []Rule
	sender   Sender
	metrics  Recorder
	logger   *zap.Logger
	cooldown time.Duration

	// pending alerts waiting for their "for" duration, by profile/rule
	pending map[string]time.Time
	// last fired time for cooldown, by profile/rule
	lastFired map[string]time.Time

	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator compiles rules and creates an evaluator. sender may be nil,
// in which case fired alerts are only logged and returned.
func NewEvaluator(rules []Rule, sender Sender, logger *zap.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	compiled := make([]Rule, len(rules))
	for i, r := range rules {
		if err := r.Compile(); err != nil {
			return nil, err
		}
		compiled[i] = r
	}
	return &Evaluator{
		rules:     compiled,
		sender:    sender,
		logger:    logger,
		cooldown:  DefaultCooldown,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

// SetCooldown sets the cooldown duration between alerts.
func (e *Evaluator) SetCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}

// SetMetrics records fired rules.
func (e *Evaluator) SetMetrics(m Recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// Rules returns the compiled rules.
func (e *Evaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate checks every rule against the metrics of one profile and sends
// the alerts that fire. A rule fires once its condition has held for its
// "for" duration and the cooldown since its last firing has passed.
func (e *Evaluator) Evaluate(ctx context.Context, profileID, profileName string, metrics map[string]float64) []notifier.Alert {
	e.mu.Lock()
	now := e.now()
	var fired []notifier.Alert
	for i := range e.rules {
		rule := &e.rules[i]
		key := profileID + "/" + rule.Name

		if !rule.Evaluate(metrics) {
			delete(e.pending, key)
			continue
		}

		if rule.For > 0 {
			since, isPending := e.pending[key]
			if !isPending {
				e.pending[key] = now
				continue
			}
			if now.Sub(since) < rule.For {
				continue
			}
		}

		if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
			continue
		}

		e.lastFired[key] = now
		delete(e.pending, key)
		if e.metrics != nil {
			e.metrics.RecordAlert(rule.Name)
		}
		fired = append(fired, notifier.Alert{
			Rule:        rule.Name,
			Severity:    rule.Severity,
			ProfileID:   profileID,
			ProfileName: profileName,
			Metric:      rule.Metric(),
			Value:       metrics[rule.Metric()],
			Expr:        rule.Expr,
			Message:     rule.FormatMessage(profileName, metrics),
			FiredAt:     now,
		})
	}
	e.mu.Unlock()

	for _, a := range fired {
		e.logger.Warn("alert fired",
			zap.String("rule", a.Rule),
			zap.String("profile", a.ProfileID),
			zap.String("metric", a.Metric),
			zap.Float64("value", a.Value),
		)
		if e.sender == nil {
			continue
		}
		for name, err := range e.sender.NotifyAll(ctx, a) {
			e.logger.Error("alert delivery failed",
				zap.String("rule", a.Rule),
				zap.String("notifier", name),
				zap.Error(err),
			)
		}
	}
	return fired
}

// advanceTime is for testing - advances the internal clock.
func (e *Evaluator) advanceTime(d time.Duration) {
	oldNow := e.now
	e.now = func() time.Time {
		return oldNow().Add(d)
	}
}
