// Package alert evaluates portfolio risk rules against valuation summaries
// and forwards fired rules to the notifiers.
package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
)

// Metric names available to rule expressions. Weights, concentration and
// total_pnl_percent are fractions.
const (
	MetricConcentration    = "concentration"
	MetricTotalPnLPercent  = "total_pnl_percent"
	MetricEquityWeight     = "equity_weight"
	MetricBondWeight       = "bond_weight"
	MetricCorpBondWeight   = "corp_bond_weight"
	MetricUSTBondWeight    = "ust_bond_weight"
	MetricTotalMarketValue = "total_market_value"
	MetricHoldingsCount    = "holdings_count"
)

var knownMetrics = map[string]bool{
	MetricConcentration:    true,
	MetricTotalPnLPercent:  true,
	MetricEquityWeight:     true,
	MetricBondWeight:       true,
	MetricCorpBondWeight:   true,
	MetricUSTBondWeight:    true,
	MetricTotalMarketValue: true,
	MetricHoldingsCount:    true,
}

// SummaryMetrics flattens a portfolio summary into rule metrics.
func SummaryMetrics(s portfolio.PortfolioSummary) map[string]float64 {
	b := s.AssetClassBreakdown
	return map[string]float64{
		MetricConcentration:    s.Concentration,
		MetricTotalPnLPercent:  s.TotalUnrealizedPnLPercent,
		MetricEquityWeight:     b.Equity.Weight,
		MetricBondWeight:       b.Bond.Weight,
		MetricCorpBondWeight:   b.Bond.Corp.Weight,
		MetricUSTBondWeight:    b.Bond.UST.Weight,
		MetricTotalMarketValue: s.TotalMarketValue,
		MetricHoldingsCount:    float64(s.TotalHoldingsCount),
	}
}

var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?\d+(?:\.\d+)?)$`)

// Rule defines an alert rule.
type Rule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`

	metric    string
	op        string
	threshold float64
}

// Compile parses the "metric op threshold" expression and checks the
// metric name. Rules must be compiled before evaluation.
func (r *Rule) Compile() error {
	if r.Name == "" {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule without name"))
	}
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(m) != 4 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule %s: cannot parse %q", r.Name, r.Expr))
	}
	if !knownMetrics[m[1]] {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule %s: unknown metric %q", r.Name, m[1]))
	}
	threshold, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule %s: %w", r.Name, err))
	}
	r.metric, r.op, r.threshold = m[1], m[2], threshold
	if r.Severity == "" {
		r.Severity = "warning"
	}
	return nil
}

// Metric returns the metric name the rule watches.
func (r *Rule) Metric() string {
	return r.metric
}

// Evaluate reports whether the rule condition holds for metrics.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	if r.metric == "" {
		return false
	}
	value, exists := metrics[r.metric]
	if !exists {
		return false
	}

	switch r.op {
	case ">":
		return value > r.threshold
	case "<":
		return value < r.threshold
	case ">=":
		return value >= r.threshold
	case "<=":
		return value <= r.threshold
	case "==":
		return value == r.threshold
	case "!=":
		return value != r.threshold
	default:
		return false
	}
}

// FormatMessage renders the alert text for profileName.
func (r *Rule) FormatMessage(profileName string, metrics map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s (%s): %s = %.4g (%s)",
		strings.ToUpper(r.Severity), r.Name, profileName, r.metric, metrics[r.metric], strings.TrimSpace(r.Expr))
	if r.Message != "" {
		msg += ". " + r.Message
	}
	return msg
}
