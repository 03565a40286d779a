package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/marketlab/internal/config"
	"github.com/quantlab/marketlab/internal/domain"
	"github.com/quantlab/marketlab/internal/policy"
)

// testConfig returns a two-asset market with a single human team and no
// bots, so round arithmetic in the tests stays exact.
func testConfig() config.MarketConfig {
	return config.MarketConfig{
		Assets: []config.AssetConfig{
			{Symbol: "ABC", Price: 100},
			{Symbol: "XYZ", Price: 200},
		},
		Humans: config.HumansConfig{
			Count:        1,
			StartingCash: 100_000,
			NamePrefix:   "Team",
		},
		CircuitBreakerPct: 0.10,
		MaxOrderQty:       2000,
		Seed:              42,
	}
}

func newSim(t *testing.T, cfg config.MarketConfig) *Simulation {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func findAgent(t *testing.T, snap domain.MarketSnapshot, name string) domain.AgentSnapshot {
	t.Helper()
	for _, a := range snap.Agents {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("agent %s not in snapshot", name)
	return domain.AgentSnapshot{}
}

func findAsset(t *testing.T, snap domain.MarketSnapshot, symbol string) domain.AssetSnapshot {
	t.Helper()
	for _, a := range snap.Assets {
		if a.Symbol == symbol {
			return a
		}
	}
	t.Fatalf("asset %s not in snapshot", symbol)
	return domain.AssetSnapshot{}
}

func TestRunRoundBuyCommits(t *testing.T) {
	s := newSim(t, testConfig())

	res, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 100},
	})
	require.NoError(t, err)

	assert.True(t, res.Committed)
	assert.Empty(t, res.Breached)
	assert.Equal(t, 1, res.Round)
	assert.Equal(t, 2, s.Round())

	snap := s.Snapshot()
	abc := findAsset(t, snap, "ABC")
	assert.InDelta(t, 102.5, abc.Price, 1e-9)
	assert.InDelta(t, 102.5, abc.CBRef, 1e-9)
	assert.False(t, abc.Halted)
	assert.Equal(t, []float64{100}, abc.History)

	team := findAgent(t, snap, "Team_1")
	assert.Equal(t, 100, team.Positions["ABC"])
	assert.InDelta(t, 90_000, team.Cash, 1e-9)

	log := s.TradeLog()
	require.Len(t, log, 1)
	assert.Equal(t, domain.TradeExecuted, log[0].Status)
	assert.Equal(t, "Team_1", log[0].Agent)
	assert.InDelta(t, 100, log[0].Price, 1e-9) // fills at the pre-round price
}

func TestRunRoundShortBanRejectsHumanWithRecord(t *testing.T) {
	cfg := testConfig()
	cfg.ShortSellingBan = true
	s := newSim(t, cfg)

	res, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionSell, Quantity: 50},
	})
	require.NoError(t, err)
	require.True(t, res.Committed)

	snap := s.Snapshot()
	team := findAgent(t, snap, "Team_1")
	assert.Equal(t, 0, team.Positions["ABC"])
	assert.InDelta(t, 100_000, team.Cash, 1e-9)

	// Price must not have moved: the blocked sell contributes no volume.
	assert.InDelta(t, 100, findAsset(t, snap, "ABC").Price, 1e-9)

	log := s.TradeLog()
	require.Len(t, log, 1)
	assert.Equal(t, domain.TradeRejectedShortBan, log[0].Status)
	assert.Equal(t, 50, log[0].Quantity)
	assert.InDelta(t, 100, log[0].Price, 1e-9)
}

func TestRunRoundShortBanAllowsCoveredSell(t *testing.T) {
	cfg := testConfig()
	cfg.ShortSellingBan = true
	s := newSim(t, cfg)

	_, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 100},
	})
	require.NoError(t, err)

	res, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionSell, Quantity: 100},
	})
	require.NoError(t, err)
	require.True(t, res.Committed)

	team := findAgent(t, s.Snapshot(), "Team_1")
	assert.Equal(t, 0, team.Positions["ABC"])

	log := s.TradeLog()
	require.Len(t, log, 2)
	assert.Equal(t, domain.TradeExecuted, log[1].Status)
}

func TestRunRoundCircuitBreakerHaltsWholeMarket(t *testing.T) {
	s := newSim(t, testConfig())

	res, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 5000},
	})
	require.NoError(t, err)

	assert.False(t, res.Committed)
	assert.Equal(t, []string{"ABC"}, res.Breached)
	assert.InDelta(t, 225, res.Prices["ABC"], 1e-9)

	snap := s.Snapshot()
	abc := findAsset(t, snap, "ABC")
	xyz := findAsset(t, snap, "XYZ")

	// One breach halts every instrument; committed prices stay put.
	assert.True(t, abc.Halted)
	assert.True(t, xyz.Halted)
	assert.InDelta(t, 100, abc.Price, 1e-9)
	assert.InDelta(t, 100, abc.CBRef, 1e-9)
	assert.InDelta(t, 200, xyz.Price, 1e-9)

	// Executor mutations from the abandoned round are kept.
	team := findAgent(t, snap, "Team_1")
	assert.Equal(t, 5000, team.Positions["ABC"])
	assert.InDelta(t, 100_000-5000*100.0, team.Cash, 1e-9)

	// No trade log, no wealth point, no round advance.
	assert.Empty(t, s.TradeLog())
	assert.Len(t, s.WealthSeries("Team_1"), 1)
	assert.Equal(t, 1, s.Round())

	// The abandoned round still records the pre-round price in history.
	assert.Equal(t, []float64{100}, abc.History)
}

func TestRunRoundHaltedAssetDropsOrdersSilently(t *testing.T) {
	s := newSim(t, testConfig())

	_, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 5000},
	})
	require.NoError(t, err)
	require.True(t, findAsset(t, s.Snapshot(), "ABC").Halted)

	res, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 100},
	})
	require.NoError(t, err)

	// The halted asset proposes its own unchanged price, so the round
	// commits and the market stays halted with no fills.
	assert.True(t, res.Committed)
	assert.Empty(t, res.Trades)
	assert.Empty(t, s.TradeLog())

	team := findAgent(t, s.Snapshot(), "Team_1")
	assert.Equal(t, 5000, team.Positions["ABC"]) // unchanged from the aborted round
}

func TestRunRoundPriceFloor(t *testing.T) {
	cfg := testConfig()
	cfg.Assets = []config.AssetConfig{{Symbol: "PNY", Price: 1.5}}
	cfg.CircuitBreakerPct = config.MaxCircuitBreakerPct
	s := newSim(t, cfg)

	// Selling 20 moves the price by -0.5 to exactly the floor, a 33% move
	// under the 50% threshold.
	res, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "PNY", Action: domain.ActionSell, Quantity: 20},
	})
	require.NoError(t, err)
	require.True(t, res.Committed)
	assert.InDelta(t, 1.0, res.Prices["PNY"], 1e-9)
	assert.InDelta(t, 1.0, findAsset(t, s.Snapshot(), "PNY").Price, 1e-9)
}

func TestRunRoundNegativeQuantityIsNoop(t *testing.T) {
	s := newSim(t, testConfig())

	res, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: -10},
	})
	require.NoError(t, err)
	assert.True(t, res.Committed)
	assert.Empty(t, res.Trades)
	assert.InDelta(t, 100, findAsset(t, s.Snapshot(), "ABC").Price, 1e-9)
}

func TestRunRoundUnknownTeamRejected(t *testing.T) {
	s := newSim(t, testConfig())

	_, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_99": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 10},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)
}

func TestRunRoundUnknownAssetRejected(t *testing.T) {
	s := newSim(t, testConfig())

	_, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "NOPE", Action: domain.ActionBuy, Quantity: 10},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownAsset)
}

func TestWealthSeriesTracksCommittedRoundsOnly(t *testing.T) {
	s := newSim(t, testConfig())

	require.Len(t, s.WealthSeries("Team_1"), 1)
	assert.InDelta(t, 100_000, s.WealthSeries("Team_1")[0], 1e-9)

	_, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 100},
	})
	require.NoError(t, err)
	require.Len(t, s.WealthSeries("Team_1"), 2)

	// Mark-to-market at the committed post-round price: 90000 cash plus
	// 100 shares at 102.5.
	assert.InDelta(t, 90_000+100*102.5, s.WealthSeries("Team_1")[1], 1e-9)

	// An aborted round adds no point.
	_, err = s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 5000},
	})
	require.NoError(t, err)
	assert.Len(t, s.WealthSeries("Team_1"), 2)
}

func TestHistoryGrowsOncePerRound(t *testing.T) {
	s := newSim(t, testConfig())

	for i := 0; i < 3; i++ {
		_, err := s.RunRound(nil)
		require.NoError(t, err)
	}
	abc := findAsset(t, s.Snapshot(), "ABC")
	assert.Equal(t, []float64{100, 100, 100}, abc.History)
}

func TestBotsTradeAtBatchPrice(t *testing.T) {
	cfg := testConfig()
	cfg.Humans.Count = 0
	cfg.Bots = []config.BotConfig{
		{Name: "Reckless Hedge Fund", Policy: string(policy.KindReckless), Cash: 1_000_000},
	}
	cfg.CircuitBreakerPct = config.MaxCircuitBreakerPct
	s := newSim(t, cfg)

	// Round 1: no history, so the reckless fund buys 300 of each asset at
	// the pre-round prices.
	res, err := s.RunRound(nil)
	require.NoError(t, err)
	require.True(t, res.Committed)
	require.Len(t, res.Trades, 2)
	for _, tr := range res.Trades {
		assert.Equal(t, domain.ActionBuy, tr.Action)
		assert.Equal(t, 300, tr.Quantity)
	}
	assert.InDelta(t, 100+300/impactDivisor, res.Prices["ABC"], 1e-9)

	// Force a fall with bad news and confirm the double-size sell.
	_, err = s.ApplyNews("ABC", BadNewsMultiplier)
	require.NoError(t, err)
	res, err = s.RunRound(nil)
	require.NoError(t, err)
	var abcTrade domain.TradeRecord
	for _, tr := range res.Trades {
		if tr.Asset == "ABC" {
			abcTrade = tr
		}
	}
	assert.Equal(t, domain.ActionSell, abcTrade.Action)
	assert.Equal(t, 600, abcTrade.Quantity)
}

func TestBotShortBanRejectionIsSilent(t *testing.T) {
	cfg := testConfig()
	cfg.Humans.Count = 0
	cfg.ShortSellingBan = true
	cfg.Bots = []config.BotConfig{
		{Name: "Panic Bot", Policy: string(policy.KindPanic), Cash: 200_000},
	}
	s := newSim(t, cfg)

	// Make the panic bot want to sell: a crash leaves the price far below
	// the last history entry.
	_, err := s.RunRound(nil) // history now [100], [200]
	require.NoError(t, err)
	_, err = s.ApplyNews("ABC", CrashMultiplier)
	require.NoError(t, err)

	res, err := s.RunRound(nil)
	require.NoError(t, err)

	// The bot holds no position, so the ban blocks its sell with no record.
	assert.Empty(t, res.Trades)
	assert.Empty(t, s.TradeLog())
}

func TestApplyNews(t *testing.T) {
	s := newSim(t, testConfig())

	p, err := s.ApplyNews("XYZ", BadNewsMultiplier)
	require.NoError(t, err)
	assert.InDelta(t, 180, p, 1e-9)

	xyz := findAsset(t, s.Snapshot(), "XYZ")
	assert.InDelta(t, 180, xyz.Price, 1e-9)
	assert.InDelta(t, 180, xyz.CBRef, 1e-9)
	assert.False(t, xyz.Halted)
	assert.Equal(t, []float64{200}, xyz.History)
}

func TestApplyNewsClearsHalt(t *testing.T) {
	s := newSim(t, testConfig())

	_, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 5000},
	})
	require.NoError(t, err)
	require.True(t, findAsset(t, s.Snapshot(), "ABC").Halted)

	_, err = s.ApplyNews("ABC", GoodNewsMultiplier)
	require.NoError(t, err)
	assert.False(t, findAsset(t, s.Snapshot(), "ABC").Halted)
	// XYZ stays halted until an explicit resume.
	assert.True(t, findAsset(t, s.Snapshot(), "XYZ").Halted)
}

func TestApplyNewsValidation(t *testing.T) {
	s := newSim(t, testConfig())

	_, err := s.ApplyNews("NOPE", BadNewsMultiplier)
	assert.ErrorIs(t, err, domain.ErrUnknownAsset)

	_, err = s.ApplyNews("ABC", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidShock)

	_, err = s.ApplyNews("ABC", -1.1)
	assert.ErrorIs(t, err, domain.ErrInvalidShock)
}

func TestResumeAll(t *testing.T) {
	s := newSim(t, testConfig())

	_, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 5000},
	})
	require.NoError(t, err)

	s.ResumeAll()
	snap := s.Snapshot()
	for _, a := range snap.Assets {
		assert.False(t, a.Halted, a.Symbol)
		assert.InDelta(t, a.Price, a.CBRef, 1e-9, a.Symbol)
	}
}

func TestReset(t *testing.T) {
	s := newSim(t, testConfig())

	_, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 100},
	})
	require.NoError(t, err)
	require.Equal(t, 2, s.Round())

	s.Reset()

	assert.Equal(t, 1, s.Round())
	assert.Empty(t, s.TradeLog())
	assert.Len(t, s.WealthSeries("Team_1"), 1)

	snap := s.Snapshot()
	abc := findAsset(t, snap, "ABC")
	assert.InDelta(t, 100, abc.Price, 1e-9)
	assert.Empty(t, abc.History)
	team := findAgent(t, snap, "Team_1")
	assert.InDelta(t, 100_000, team.Cash, 1e-9)
	assert.Empty(t, teamPositions(team))
}

// teamPositions filters zero entries so assertions don't depend on map
// seeding.
func teamPositions(a domain.AgentSnapshot) map[string]int {
	out := make(map[string]int)
	for sym, q := range a.Positions {
		if q != 0 {
			out[sym] = q
		}
	}
	return out
}

func TestSetCircuitBreakerPctBounds(t *testing.T) {
	s := newSim(t, testConfig())

	assert.NoError(t, s.SetCircuitBreakerPct(0.05))
	assert.NoError(t, s.SetCircuitBreakerPct(0.50))
	assert.ErrorIs(t, s.SetCircuitBreakerPct(0.04), domain.ErrInvalidConfig)
	assert.ErrorIs(t, s.SetCircuitBreakerPct(0.51), domain.ErrInvalidConfig)
}

func TestLeaderboardSortsByNetWorth(t *testing.T) {
	cfg := testConfig()
	cfg.Humans.Count = 2
	s := newSim(t, cfg)

	// Team_1 buys into a rising price, Team_2 sits out. 300 shares move the
	// price 7.5%, under the breaker.
	res, err := s.RunRound(map[string]domain.OrderIntent{
		"Team_1": {Asset: "ABC", Action: domain.ActionBuy, Quantity: 300},
	})
	require.NoError(t, err)
	require.True(t, res.Committed)

	board := s.Leaderboard()
	require.Len(t, board, 2)
	assert.Equal(t, "Team_1", board[0].Name)
	assert.GreaterOrEqual(t, board[0].NetWorth, board[1].NetWorth)
	assert.Greater(t, board[0].PnL, 0.0)
}

func TestRandomBotIsDeterministicUnderSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Humans.Count = 0
	cfg.Bots = []config.BotConfig{
		{Name: "Random Bot", Policy: string(policy.KindRandom), Cash: 200_000},
	}

	run := func() []domain.TradeRecord {
		s := newSim(t, cfg)
		var all []domain.TradeRecord
		for i := 0; i < 5; i++ {
			res, err := s.RunRound(nil)
			require.NoError(t, err)
			all = append(all, res.Trades...)
		}
		return all
	}

	a, b := run(), run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Action, b[i].Action, i)
		assert.Equal(t, a[i].Quantity, b[i].Quantity, i)
	}
}
