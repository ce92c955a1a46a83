// Package state persists the profile document: every profile with its
// holdings, the id of the active profile and the last known price of every
// quoted symbol.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/newthinker/folio/internal/storage/archive"
)

// DefaultPath is where the document lives inside the storage backend.
const DefaultPath = "folio/state.json"

// StoredData is the persisted document.
type StoredData struct {
	Profiles        []portfolio.Profile `json:"profiles"`
	ActiveProfileID string              `json:"activeProfileId"`
	// PriceCache outlives the process so a valuation without a fresh quote
	// still uses the last observed price.
	PriceCache map[string]cache.Entry `json:"priceCache,omitempty"`
	UpdatedAt  time.Time              `json:"updatedAt,omitempty"`
}

// Store loads and saves StoredData as JSON on an archive.Storage.
type Store struct {
	storage archive.Storage
	path    string
	logger  *zap.Logger
	now     func() time.Time

	// serializes writers so a save never interleaves with another
	mu sync.Mutex
}

// NewStore creates a store writing to path, DefaultPath when empty.
func NewStore(storage archive.Storage, path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultPath
	}
	return &Store{storage: storage, path: path, logger: logger, now: time.Now}
}

// Load reads the document. found is false when nothing has been saved yet.
func (s *Store) Load(ctx context.Context) (data *StoredData, found bool, err error) {
	raw, err := s.storage.Read(ctx, s.path)
	if errors.Is(err, core.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var doc StoredData
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, core.WrapError(core.ErrStorageFailed, fmt.Errorf("decoding %s: %w", s.path, err))
	}
	if doc.Profiles == nil {
		doc.Profiles = []portfolio.Profile{}
	}
	for i := range doc.Profiles {
		if doc.Profiles[i].Holdings == nil {
			doc.Profiles[i].Holdings = []portfolio.Holding{}
		}
	}

	s.logger.Debug("state loaded",
		zap.String("path", s.path),
		zap.Int("profiles", len(doc.Profiles)),
	)
	return &doc, true, nil
}

// Save writes the document, stamping UpdatedAt.
func (s *Store) Save(ctx context.Context, data StoredData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data.UpdatedAt = s.now().UTC()
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := s.storage.Write(ctx, s.path, raw); err != nil {
		return err
	}

	s.logger.Debug("state saved",
		zap.String("path", s.path),
		zap.Int("profiles", len(data.Profiles)),
	)
	return nil
}
