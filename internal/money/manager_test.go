package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMartingaleProgression(t *testing.T) {
	m := NewManager(Config{BaseStake: dec("2"), Multiplier: dec("3")})

	assert.True(t, m.CurrentStake().Equal(dec("2")))

	m.Settle(false)
	assert.True(t, m.CurrentStake().Equal(dec("6")), "loss multiplies the stake")

	m.Settle(false)
	assert.True(t, m.CurrentStake().Equal(dec("18")))

	m.Settle(true)
	assert.True(t, m.CurrentStake().Equal(dec("2")), "win resets to base")
}

func TestStreakCounters(t *testing.T) {
	m := NewManager(Config{})

	m.Settle(true)
	m.Settle(true)
	win, lose, maxWin, maxLose := m.Streaks()
	assert.Equal(t, []int{2, 0, 2, 0}, []int{win, lose, maxWin, maxLose})

	m.Settle(false)
	win, lose, maxWin, maxLose = m.Streaks()
	assert.Equal(t, []int{0, 1, 2, 1}, []int{win, lose, maxWin, maxLose})

	m.Settle(true)
	win, lose, maxWin, maxLose = m.Streaks()
	assert.Equal(t, []int{1, 0, 2, 1}, []int{win, lose, maxWin, maxLose})
}

func TestStakeForResetsWhenUnaffordable(t *testing.T) {
	m := NewManager(Config{BaseStake: dec("1"), Multiplier: dec("10")})
	m.Settle(false)
	m.Settle(false)
	require.True(t, m.CurrentStake().Equal(dec("100")))

	stake, err := m.StakeFor(dec("50"))
	require.NoError(t, err)
	assert.True(t, stake.Equal(dec("1")), "unaffordable martingale resets to base")

	stopped, _ := m.Stopped()
	assert.False(t, stopped)
}

func TestStakeForFatalWhenBaseUnaffordable(t *testing.T) {
	m := NewManager(Config{BaseStake: dec("5"), Multiplier: dec("2")})

	_, err := m.StakeFor(dec("3"))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	stopped, reason := m.Stopped()
	assert.True(t, stopped)
	assert.Equal(t, "base stake unaffordable", reason)
}

func TestObserveBalanceProfit(t *testing.T) {
	m := NewManager(Config{})
	m.ObserveBalance(dec("100"))
	m.ObserveBalance(dec("112.5"))

	assert.True(t, m.Profit().Equal(dec("12.5")))
	b, ok := m.Balance()
	require.True(t, ok)
	assert.True(t, b.Equal(dec("112.5")))
}

func TestEvaluateStopsProfitTarget(t *testing.T) {
	m := NewManager(Config{ProfitTarget: dec("120"), StopOnProfit: true})
	m.ObserveBalance(dec("100"))

	stopped, _ := m.EvaluateStops()
	assert.False(t, stopped)

	m.ObserveBalance(dec("120"))
	stopped, reason := m.EvaluateStops()
	assert.True(t, stopped)
	assert.Equal(t, "profit target reached", reason)

	// Already stopped: no second trigger.
	stopped, _ = m.EvaluateStops()
	assert.False(t, stopped)
}

func TestEvaluateStopsLossFloor(t *testing.T) {
	m := NewManager(Config{LossFloor: dec("80"), StopOnLoss: true})
	m.ObserveBalance(dec("79"))

	stopped, reason := m.EvaluateStops()
	assert.True(t, stopped)
	assert.Equal(t, "loss floor reached", reason)
}

func TestEvaluateStopsNeedsBalance(t *testing.T) {
	m := NewManager(Config{ProfitTarget: dec("1"), StopOnProfit: true})
	stopped, _ := m.EvaluateStops()
	assert.False(t, stopped, "no balance observed yet")
}

func TestEstimateDelta(t *testing.T) {
	m := NewManager(Config{PayoutMultiple: dec("7")})
	assert.True(t, m.EstimateDelta(true, dec("3")).Equal(dec("21")))
	assert.True(t, m.EstimateDelta(false, dec("3")).Equal(dec("-3")))
}
