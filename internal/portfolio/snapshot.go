package portfolio

// Snapshot is one full valuation of a profile.
type Snapshot struct {
	Profile Profile              `json:"-"`
	Metrics []HoldingWithMetrics `json:"metrics"`
	Summary PortfolioSummary     `json:"summary"`
	Payload PortfolioPayload     `json:"payload"`
}

// Evaluate runs the whole pipeline for a profile: names are applied, every
// holding is valued in the profile's base currency, and the summary and
// advice payload are derived. The exchange rate is only reported on the
// summary of mixed profiles.
func Evaluate(profile Profile, priceMap map[string]float64, nameMap map[string]string, rate float64) (*Snapshot, error) {
	holdings := ApplyNames(profile.Holdings, nameMap)

	metrics, err := ComputeAllMetrics(holdings, priceMap, profile.EffectiveMarket(), profile.EffectiveBaseCurrency(), rate)
	if err != nil {
		return nil, err
	}

	var shownRate *float64
	if profile.IsMixed() {
		r := rate
		shownRate = &r
	}
	summary := Summarize(metrics, shownRate)

	return &Snapshot{
		Profile: profile,
		Metrics: metrics,
		Summary: summary,
		Payload: BuildPayload(profile, metrics, summary),
	}, nil
}

// Priced reports whether at least one holding has a non-zero price.
func (s *Snapshot) Priced() bool {
	for _, m := range s.Metrics {
		if m.CurrentPrice != 0 {
			return true
		}
	}
	return false
}
