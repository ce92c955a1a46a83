// Package profile manages profiles and their holdings: creation, settings,
// holding edits with same-symbol merging, the active selection, and
// persistence of the whole document after every change.
package profile

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/newthinker/folio/internal/storage/state"
)

// DefaultProfileName names the profile created on first start.
const DefaultProfileName = "My Portfolio"

// Persister loads and saves the profile document.
type Persister interface {
	Load(ctx context.Context) (*state.StoredData, bool, error)
	Save(ctx context.Context, data state.StoredData) error
}

// HoldingsGauge receives the number of holdings across profiles.
type HoldingsGauge interface {
	SetHoldingsTracked(count int)
}

// Service owns the in-memory profile document. Every mutation works on a
// copy that replaces the current document only once it has been saved.
type Service struct {
	store  Persister
	gauge  HoldingsGauge
	logger *zap.Logger
	newID  func() string

	mu   sync.RWMutex
	data state.StoredData
}

// NewService creates a service. Call Load before use.
func NewService(store Persister, gauge HoldingsGauge, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		gauge:  gauge,
		logger: logger,
		newID:  uuid.NewString,
		data:   state.StoredData{Profiles: []portfolio.Profile{}},
	}
}

// Load reads the persisted document. When there is none, or it holds no
// profile, a default US profile is created and saved.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, found, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if found && len(data.Profiles) > 0 {
		if idx := findProfile(data.Profiles, data.ActiveProfileID); idx < 0 {
			data.ActiveProfileID = data.Profiles[0].ID
		}
		s.data = *data
		s.updateGauge()
		s.logger.Info("profiles loaded",
			zap.Int("profiles", len(data.Profiles)),
			zap.String("active", data.ActiveProfileID),
		)
		return nil
	}

	def := s.defaultProfile()
	next := state.StoredData{Profiles: []portfolio.Profile{def}, ActiveProfileID: def.ID}
	if found {
		next.PriceCache = data.PriceCache
	}
	if err := s.store.Save(ctx, next); err != nil {
		return err
	}
	s.data = next
	s.updateGauge()
	s.logger.Info("created default profile", zap.String("id", def.ID))
	return nil
}

func (s *Service) defaultProfile() portfolio.Profile {
	return portfolio.Profile{
		ID:           s.newID(),
		Name:         DefaultProfileName,
		RiskLevel:    core.RiskBalanced,
		Market:       core.MarketUS,
		BaseCurrency: core.CurrencyUSD,
		Holdings:     []portfolio.Holding{},
	}
}

// State returns a copy of the whole document.
func (s *Service) State() state.StoredData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneData(s.data)
}

// Get returns a copy of one profile.
func (s *Service) Get(id string) (portfolio.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := findProfile(s.data.Profiles, id)
	if idx < 0 {
		return portfolio.Profile{}, profileNotFound(id)
	}
	return cloneProfile(s.data.Profiles[idx]), nil
}

// Active returns a copy of the active profile.
func (s *Service) Active() (portfolio.Profile, error) {
	s.mu.RLock()
	id := s.data.ActiveProfileID
	s.mu.RUnlock()
	return s.Get(id)
}

// CreateInput describes a new profile.
type CreateInput struct {
	Name         string         `json:"name"`
	Market       core.Market    `json:"market"`
	BaseCurrency core.Currency  `json:"baseCurrency,omitempty"`
	RiskLevel    core.RiskLevel `json:"riskLevel,omitempty"`
}

// Create adds a profile and makes it active. The market is fixed from now
// on. Single-market profiles always report in their market's currency;
// MIXED profiles use the requested base currency, USD by default.
func (s *Service) Create(ctx context.Context, in CreateInput) (portfolio.Profile, error) {
	p := portfolio.Profile{
		ID:           s.newID(),
		Name:         in.Name,
		RiskLevel:    in.RiskLevel,
		Market:       in.Market,
		BaseCurrency: in.BaseCurrency,
		Holdings:     []portfolio.Holding{},
	}
	if p.RiskLevel == "" {
		p.RiskLevel = core.RiskBalanced
	}
	if p.Market != core.MarketMixed || p.BaseCurrency == "" {
		p.BaseCurrency = p.Market.DefaultCurrency()
	}
	if err := p.Validate(); err != nil {
		return portfolio.Profile{}, err
	}

	err := s.mutate(ctx, func(d *state.StoredData) error {
		d.Profiles = append(d.Profiles, p)
		d.ActiveProfileID = p.ID
		return nil
	})
	if err != nil {
		return portfolio.Profile{}, err
	}

	s.logger.Info("profile created",
		zap.String("id", p.ID),
		zap.String("market", string(p.Market)),
		zap.String("base_currency", string(p.BaseCurrency)),
	)
	return p, nil
}

// UpdateInput changes profile settings. Nil fields are left untouched.
type UpdateInput struct {
	Name         *string         `json:"name,omitempty"`
	RiskLevel    *core.RiskLevel `json:"riskLevel,omitempty"`
	BaseCurrency *core.Currency  `json:"baseCurrency,omitempty"`
}

// Update changes the name, risk level or, on MIXED profiles, the base
// currency. The market cannot change.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (portfolio.Profile, error) {
	var updated portfolio.Profile
	err := s.mutate(ctx, func(d *state.StoredData) error {
		idx := findProfile(d.Profiles, id)
		if idx < 0 {
			return profileNotFound(id)
		}
		p := d.Profiles[idx]
		if in.Name != nil {
			p.Name = *in.Name
		}
		if in.RiskLevel != nil {
			p.RiskLevel = *in.RiskLevel
		}
		if in.BaseCurrency != nil {
			if !p.IsMixed() && *in.BaseCurrency != p.EffectiveBaseCurrency() {
				return core.WrapError(core.ErrInvalidProfile,
					fmt.Errorf("%s profiles always report in %s", p.Market, p.EffectiveBaseCurrency()))
			}
			p.BaseCurrency = *in.BaseCurrency
		}
		if err := p.Validate(); err != nil {
			return err
		}
		d.Profiles[idx] = p
		updated = p
		return nil
	})
	return updated, err
}

// Delete removes a profile unless it is the last one. When the active
// profile is removed the first remaining profile becomes active.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(d *state.StoredData) error {
		idx := findProfile(d.Profiles, id)
		if idx < 0 {
			return profileNotFound(id)
		}
		if len(d.Profiles) <= 1 {
			return core.ErrLastProfile
		}
		d.Profiles = append(d.Profiles[:idx], d.Profiles[idx+1:]...)
		if d.ActiveProfileID == id {
			d.ActiveProfileID = d.Profiles[0].ID
		}
		return nil
	})
}

// Activate selects the active profile.
func (s *Service) Activate(ctx context.Context, id string) error {
	return s.mutate(ctx, func(d *state.StoredData) error {
		if findProfile(d.Profiles, id) < 0 {
			return profileNotFound(id)
		}
		d.ActiveProfileID = id
		return nil
	})
}

// mutate applies fn to a copy of the document, saves it and swaps it in.
func (s *Service) mutate(ctx context.Context, fn func(d *state.StoredData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneData(s.data)
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.store.Save(ctx, next); err != nil {
		s.logger.Error("saving profiles failed", zap.Error(err))
		return err
	}
	s.data = next
	s.updateGauge()
	return nil
}

func (s *Service) updateGauge() {
	if s.gauge == nil {
		return
	}
	count := 0
	for _, p := range s.data.Profiles {
		count += len(p.Holdings)
	}
	s.gauge.SetHoldingsTracked(count)
}

func findProfile(profiles []portfolio.Profile, id string) int {
	for i := range profiles {
		if profiles[i].ID == id {
			return i
		}
	}
	return -1
}

func profileNotFound(id string) error {
	return core.WrapError(core.ErrProfileNotFound, fmt.Errorf("id %s", id))
}

func cloneProfile(p portfolio.Profile) portfolio.Profile {
	holdings := make([]portfolio.Holding, len(p.Holdings))
	copy(holdings, p.Holdings)
	p.Holdings = holdings
	return p
}

func cloneData(d state.StoredData) state.StoredData {
	profiles := make([]portfolio.Profile, len(d.Profiles))
	for i, p := range d.Profiles {
		profiles[i] = cloneProfile(p)
	}
	d.Profiles = profiles
	if d.PriceCache != nil {
		d.PriceCache = maps.Clone(d.PriceCache)
	}
	return d
}
