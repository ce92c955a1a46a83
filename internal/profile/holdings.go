package profile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/newthinker/folio/internal/storage/state"
)

// HoldingInput is the editable part of a holding.
type HoldingInput struct {
	Symbol       string             `json:"symbol"`
	Name         string             `json:"name,omitempty"`
	Quantity     float64            `json:"quantity"`
	CostBasis    float64            `json:"costBasis"`
	Market       core.HoldingMarket `json:"market,omitempty"`
	Note         string             `json:"note,omitempty"`
	AssetClass   core.AssetClass    `json:"assetClass,omitempty"`
	BondCategory core.BondCategory  `json:"bondCategory,omitempty"`
	CouponRate   *float64           `json:"couponRate,omitempty"`
	MaturityDate string             `json:"maturityDate,omitempty"`
	CurrentPrice *float64           `json:"currentPrice,omitempty"`
}

func (in HoldingInput) holding(id string) portfolio.Holding {
	h := portfolio.Holding{
		ID:           id,
		Symbol:       core.NormalizeSymbol(in.Symbol),
		Name:         in.Name,
		Quantity:     in.Quantity,
		CostBasis:    in.CostBasis,
		Market:       in.Market,
		Note:         in.Note,
		AssetClass:   in.AssetClass,
		BondCategory: in.BondCategory,
		CouponRate:   in.CouponRate,
		MaturityDate: in.MaturityDate,
		CurrentPrice: in.CurrentPrice,
	}
	if h.Name == "" {
		h.Name = h.Symbol
	}
	return h
}

// checkHolding validates h for profile p. Holdings of MIXED profiles must
// say which market they trade on.
func checkHolding(p portfolio.Profile, h portfolio.Holding) error {
	if p.IsMixed() && h.Market == "" {
		return core.WrapError(core.ErrInvalidHolding, fmt.Errorf("market is required on mixed profiles"))
	}
	return p.ValidateHolding(h)
}

// AddHolding adds a position to a profile. When the symbol is already held
// the purchase is merged into it with a weighted-average cost basis and
// merged is true.
func (s *Service) AddHolding(ctx context.Context, profileID string, in HoldingInput) (h portfolio.Holding, merged bool, err error) {
	err = s.mutate(ctx, func(d *state.StoredData) error {
		idx := findProfile(d.Profiles, profileID)
		if idx < 0 {
			return profileNotFound(profileID)
		}
		p := &d.Profiles[idx]

		candidate := in.holding(s.newID())
		if err := checkHolding(*p, candidate); err != nil {
			return err
		}

		if i := p.FindSymbol(candidate.Symbol); i >= 0 {
			existing := p.Holdings[i]
			if existing.IsBond() != candidate.IsBond() {
				return core.WrapError(core.ErrInvalidHolding,
					fmt.Errorf("%s is already held as %s", candidate.Symbol, existing.EffectiveAssetClass()))
			}
			m := portfolio.MergeHolding(existing, candidate.Quantity, candidate.CostBasis)
			if candidate.CurrentPrice != nil {
				m.CurrentPrice = candidate.CurrentPrice
			}
			p.Holdings[i] = m
			h, merged = m, true
			return nil
		}

		p.Holdings = append(p.Holdings, candidate)
		h = candidate
		return nil
	})
	if err == nil {
		s.logger.Info("holding added",
			zap.String("profile", profileID),
			zap.String("symbol", h.Symbol),
			zap.Bool("merged", merged),
		)
	}
	return h, merged, err
}

// UpdateHolding replaces the editable fields of a holding, keeping its id.
func (s *Service) UpdateHolding(ctx context.Context, profileID, holdingID string, in HoldingInput) (portfolio.Holding, error) {
	var updated portfolio.Holding
	err := s.mutate(ctx, func(d *state.StoredData) error {
		idx := findProfile(d.Profiles, profileID)
		if idx < 0 {
			return profileNotFound(profileID)
		}
		p := &d.Profiles[idx]

		i := p.FindHolding(holdingID)
		if i < 0 {
			return holdingNotFound(holdingID)
		}

		h := in.holding(holdingID)
		if err := checkHolding(*p, h); err != nil {
			return err
		}
		p.Holdings[i] = h
		updated = h
		return nil
	})
	return updated, err
}

// DeleteHolding removes a holding by id.
func (s *Service) DeleteHolding(ctx context.Context, profileID, holdingID string) error {
	return s.mutate(ctx, func(d *state.StoredData) error {
		idx := findProfile(d.Profiles, profileID)
		if idx < 0 {
			return profileNotFound(profileID)
		}
		p := &d.Profiles[idx]

		i := p.FindHolding(holdingID)
		if i < 0 {
			return holdingNotFound(holdingID)
		}
		p.Holdings = append(p.Holdings[:i], p.Holdings[i+1:]...)
		return nil
	})
}

// UpdateNames stores display names resolved from quotes. Nothing is saved
// when no name changes.
func (s *Service) UpdateNames(ctx context.Context, profileID string, names map[string]string) error {
	p, err := s.Get(profileID)
	if err != nil {
		return err
	}
	changed := false
	for _, h := range p.Holdings {
		if n := names[h.Symbol]; n != "" && n != h.Name {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	return s.mutate(ctx, func(d *state.StoredData) error {
		idx := findProfile(d.Profiles, profileID)
		if idx < 0 {
			return profileNotFound(profileID)
		}
		d.Profiles[idx].Holdings = portfolio.ApplyNames(d.Profiles[idx].Holdings, names)
		return nil
	})
}

func holdingNotFound(id string) error {
	return core.WrapError(core.ErrHoldingNotFound, fmt.Errorf("id %s", id))
}
