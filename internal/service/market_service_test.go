package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/marketlab/internal/config"
	"github.com/quantlab/marketlab/internal/domain"
	"github.com/quantlab/marketlab/internal/engine"
)

func newService(t *testing.T) *MarketService {
	t.Helper()
	cfg := config.Defaults().Market
	cfg.Bots = nil // deterministic rounds
	cfg.Seed = 1
	sim, err := engine.New(cfg)
	require.NoError(t, err)
	return New(sim, Options{})
}

func TestSubmitOrderValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	err := svc.SubmitOrder(ctx, "Team_99", domain.OrderIntent{Asset: "ABC", Action: domain.ActionBuy, Quantity: 10})
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)

	err = svc.SubmitOrder(ctx, "Team_1", domain.OrderIntent{Asset: "NOPE", Action: domain.ActionBuy, Quantity: 10})
	assert.ErrorIs(t, err, domain.ErrUnknownAsset)
}

func TestSubmitOrderClampsQuantity(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.SubmitOrder(ctx, "Team_1", domain.OrderIntent{
		Asset: "ABC", Action: domain.ActionBuy, Quantity: 99_999,
	}))

	pending := svc.PendingOrders()
	require.Contains(t, pending, "Team_1")
	assert.Equal(t, 2000, pending["Team_1"].Quantity)
}

func TestSubmitOrderReplacesPrevious(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.SubmitOrder(ctx, "Team_1", domain.OrderIntent{Asset: "ABC", Action: domain.ActionBuy, Quantity: 10}))
	require.NoError(t, svc.SubmitOrder(ctx, "Team_1", domain.OrderIntent{Asset: "XYZ", Action: domain.ActionSell, Quantity: 5}))

	pending := svc.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, "XYZ", pending["Team_1"].Asset)
}

func TestAdvanceRoundConsumesPendingOrders(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.SubmitOrder(ctx, "Team_1", domain.OrderIntent{
		Asset: "ABC", Action: domain.ActionBuy, Quantity: 100,
	}))

	res, err := svc.AdvanceRound(ctx)
	require.NoError(t, err)
	assert.True(t, res.Committed)
	require.Len(t, res.Trades, 1)
	assert.Empty(t, svc.PendingOrders())

	// The next round runs with no orders.
	res, err = svc.AdvanceRound(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
}

func TestTradesInMemoryFallback(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.SubmitOrder(ctx, "Team_1", domain.OrderIntent{
			Asset: "ABC", Action: domain.ActionBuy, Quantity: 10,
		}))
		_, err := svc.AdvanceRound(ctx)
		require.NoError(t, err)
	}

	all, err := svc.Trades(ctx, "", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, 3, all[0].Round)
	assert.Equal(t, 1, all[2].Round)

	limited, err := svc.Trades(ctx, "", domain.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 2, limited[0].Round)

	none, err := svc.Trades(ctx, "Team_2", domain.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWealthUnknownAgent(t *testing.T) {
	svc := newService(t)

	series, err := svc.Wealth("Team_1")
	require.NoError(t, err)
	assert.Len(t, series, 1)

	_, err = svc.Wealth("Nobody")
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)
}

func TestSetRegulation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	err := svc.SetRegulation(ctx, domain.Regulation{ShortSellingBan: true, CircuitBreakerPct: 0.20})
	require.NoError(t, err)

	reg := svc.Snapshot().Regulation
	assert.True(t, reg.ShortSellingBan)
	assert.Equal(t, 0.20, reg.CircuitBreakerPct)

	err = svc.SetRegulation(ctx, domain.Regulation{CircuitBreakerPct: 0.80})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	// The failed update leaves the previous settings in place.
	assert.Equal(t, 0.20, svc.Snapshot().Regulation.CircuitBreakerPct)
}

func TestResetClearsPending(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.SubmitOrder(ctx, "Team_1", domain.OrderIntent{
		Asset: "ABC", Action: domain.ActionBuy, Quantity: 10,
	}))
	svc.Reset(ctx)

	assert.Empty(t, svc.PendingOrders())
	assert.Equal(t, 1, svc.Snapshot().Round)
}

func TestShockMultiplier(t *testing.T) {
	for kind, want := range map[string]float64{
		"good":  engine.GoodNewsMultiplier,
		"bad":   engine.BadNewsMultiplier,
		"crash": engine.CrashMultiplier,
	} {
		got, err := ShockMultiplier(kind)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ShockMultiplier("meh")
	assert.ErrorIs(t, err, domain.ErrInvalidShock)
}

func TestApplyNewsThroughService(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	price, err := svc.ApplyNews(ctx, "XYZ", engine.BadNewsMultiplier)
	require.NoError(t, err)
	assert.InDelta(t, 180, price, 1e-9)

	_, err = svc.ApplyNews(ctx, "NOPE", engine.BadNewsMultiplier)
	assert.ErrorIs(t, err, domain.ErrUnknownAsset)
}

func TestArchiveWithoutArchiver(t *testing.T) {
	svc := newService(t)
	_, err := svc.Archive(context.Background())
	assert.Error(t, err)
}
