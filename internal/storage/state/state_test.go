package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/cache"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/portfolio"
	"github.com/newthinker/folio/internal/storage/archive"
)

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(archive.NewMemory(), "", nil)

	data, found, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	mem := archive.NewMemory()
	s := NewStore(mem, "", nil)
	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	rate := 4.25
	in := StoredData{
		Profiles: []portfolio.Profile{{
			ID:           "p1",
			Name:         "Global",
			RiskLevel:    core.RiskBalanced,
			Market:       core.MarketMixed,
			BaseCurrency: core.CurrencyTWD,
			Holdings: []portfolio.Holding{
				{ID: "h1", Symbol: "2330", Quantity: 1000, CostBasis: 600, Market: core.HoldingMarketTW},
				{ID: "h2", Symbol: "UST30", Quantity: 10000, CostBasis: 97, AssetClass: core.AssetBond,
					BondCategory: core.BondTreasury, CouponRate: &rate, CurrentPrice: &rate},
			},
		}},
		ActiveProfileID: "p1",
		PriceCache: map[string]cache.Entry{
			"2330": cache.NewEntry(612, "TSMC", fixed.Add(-time.Hour)),
		},
	}
	require.NoError(t, s.Save(ctx, in))

	exists, _ := mem.Exists(ctx, DefaultPath)
	assert.True(t, exists)

	out, found, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "p1", out.ActiveProfileID)
	assert.True(t, fixed.Equal(out.UpdatedAt))
	require.Len(t, out.Profiles, 1)
	assert.Equal(t, in.Profiles[0], out.Profiles[0])
	assert.Equal(t, in.PriceCache, out.PriceCache)
}

func TestStore_NilHoldingsBecomeEmpty(t *testing.T) {
	ctx := context.Background()
	mem := archive.NewMemory()
	mem.Write(ctx, "custom.json", []byte(`{"profiles":[{"id":"p1","name":"Empty","market":"US","baseCurrency":"USD"}],"activeProfileId":"p1"}`))

	out, found, err := NewStore(mem, "custom.json", nil).Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotNil(t, out.Profiles[0].Holdings)
}

func TestStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	mem := archive.NewMemory()
	mem.Write(ctx, DefaultPath, []byte("{"))

	_, _, err := NewStore(mem, "", nil).Load(ctx)
	assert.ErrorIs(t, err, core.ErrStorageFailed)
}
