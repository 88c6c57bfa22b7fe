// Package money implements stake sizing and bankroll control: the martingale
// progression, win/loss streak tracking, affordability checks and the
// profit-target / loss-floor stop conditions.
package money

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned when even the base stake exceeds the
// available balance. It is fatal for betting: the manager flags itself
// stopped and no further stakes are produced.
var ErrInsufficientFunds = errors.New("balance below base stake")

// Config controls stake sizing and stop conditions.
type Config struct {
	// BaseStake is the stake placed after a win (and at startup).
	BaseStake decimal.Decimal
	// Multiplier scales the stake after each loss.
	Multiplier decimal.Decimal
	// ProfitTarget stops the run once balance reaches it, when StopOnProfit.
	ProfitTarget decimal.Decimal
	StopOnProfit bool
	// LossFloor stops the run once balance drops to it, when StopOnLoss.
	LossFloor  decimal.Decimal
	StopOnLoss bool
	// PayoutMultiple estimates the win delta when no pre-settlement balance
	// snapshot exists. The server does not advertise its payout table, so
	// this stays configurable.
	PayoutMultiple decimal.Decimal
}

// DefaultPayoutMultiple matches the payout observed on the live game.
var DefaultPayoutMultiple = decimal.NewFromInt(7)

// Manager owns the mutable money state. Safe for concurrent use: settlement
// comes from the engine while balance observations come from the poller.
type Manager struct {
	mu  sync.Mutex
	cfg Config

	currentStake decimal.Decimal

	winStreak     int
	loseStreak    int
	maxWinStreak  int
	maxLoseStreak int

	startingBalance decimal.Decimal
	currentBalance  decimal.Decimal
	haveBalance     bool
	profit          decimal.Decimal

	stopped    bool
	stopReason string
}

// NewManager creates a manager with the stake schedule from cfg. Zero values
// get conservative defaults (stake 1, multiplier 2).
func NewManager(cfg Config) *Manager {
	if cfg.BaseStake.LessThanOrEqual(decimal.Zero) {
		cfg.BaseStake = decimal.NewFromInt(1)
	}
	if cfg.Multiplier.LessThanOrEqual(decimal.Zero) {
		cfg.Multiplier = decimal.NewFromInt(2)
	}
	if cfg.PayoutMultiple.LessThanOrEqual(decimal.Zero) {
		cfg.PayoutMultiple = DefaultPayoutMultiple
	}
	return &Manager{
		cfg:          cfg,
		currentStake: cfg.BaseStake,
	}
}

// CurrentStake returns the stake the next bet would use.
func (m *Manager) CurrentStake() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentStake
}

// Settle applies a bet outcome to the martingale schedule and streak
// counters: wins reset the stake to base, losses multiply it.
func (m *Manager) Settle(won bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if won {
		m.currentStake = m.cfg.BaseStake
		m.winStreak++
		m.loseStreak = 0
		if m.winStreak > m.maxWinStreak {
			m.maxWinStreak = m.winStreak
		}
		return
	}
	m.currentStake = m.currentStake.Mul(m.cfg.Multiplier)
	m.loseStreak++
	m.winStreak = 0
	if m.loseStreak > m.maxLoseStreak {
		m.maxLoseStreak = m.loseStreak
	}
}

// StakeFor returns the stake to submit given the available balance. An
// unaffordable martingale stake resets to base once; if base itself is
// unaffordable the manager stops and ErrInsufficientFunds is returned.
func (m *Manager) StakeFor(balance decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentStake.GreaterThan(balance) {
		m.currentStake = m.cfg.BaseStake
		if m.currentStake.GreaterThan(balance) {
			m.stopped = true
			m.stopReason = "base stake unaffordable"
			return decimal.Zero, ErrInsufficientFunds
		}
	}
	return m.currentStake, nil
}

// ObserveBalance records a fresh balance reading. The first reading becomes
// the starting balance; cumulative profit is current minus starting.
func (m *Manager) ObserveBalance(balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.haveBalance {
		m.startingBalance = balance
		m.haveBalance = true
	}
	m.currentBalance = balance
	m.profit = m.currentBalance.Sub(m.startingBalance)
}

// Balance returns the latest observed balance, false when none seen yet.
func (m *Manager) Balance() (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentBalance, m.haveBalance
}

// Profit returns cumulative profit since the starting balance.
func (m *Manager) Profit() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profit
}

// EstimateDelta approximates a settled bet's balance change when no
// pre-settlement snapshot is available.
func (m *Manager) EstimateDelta(won bool, amount decimal.Decimal) decimal.Decimal {
	if won {
		return amount.Mul(m.cfg.PayoutMultiple)
	}
	return amount.Neg()
}

// EvaluateStops checks the configured stop conditions against the latest
// balance. Returns true with a reason the first time a condition trips.
func (m *Manager) EvaluateStops() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || !m.haveBalance {
		return false, ""
	}
	if m.cfg.StopOnProfit && m.currentBalance.GreaterThanOrEqual(m.cfg.ProfitTarget) {
		m.stopped = true
		m.stopReason = "profit target reached"
		return true, m.stopReason
	}
	if m.cfg.StopOnLoss && m.currentBalance.LessThanOrEqual(m.cfg.LossFloor) {
		m.stopped = true
		m.stopReason = "loss floor reached"
		return true, m.stopReason
	}
	return false, ""
}

// Stopped reports whether a stop condition or fatal funding failure tripped.
func (m *Manager) Stopped() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped, m.stopReason
}

// Streaks returns current and record streak counters.
func (m *Manager) Streaks() (win, lose, maxWin, maxLose int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winStreak, m.loseStreak, m.maxWinStreak, m.maxLoseStreak
}
