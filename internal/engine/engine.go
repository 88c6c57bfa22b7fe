// Package engine owns the per-round betting state machine. It is the single
// writer for round progression: the stream receiver, the liveness monitor and
// the balance poller all funnel into command methods on Engine, which applies
// them under one mutex. Network side effects (stake submission, settlement
// reconciliation) run as supervised background tasks so the receive loop is
// never blocked on HTTP.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"

	"github.com/tntool/escapebot/internal/money"
	"github.com/tntool/escapebot/internal/protocol"
	"github.com/tntool/escapebot/internal/stats"
	"github.com/tntool/escapebot/internal/strategy"
	"github.com/tntool/escapebot/internal/wallet"
)

// State is the engine's position within the current round.
type State int

const (
	// StateWaiting means no round has been observed yet.
	StateWaiting State = iota
	// StateAnalyzing means a round is open and telemetry is accumulating.
	StateAnalyzing
	// StatePredicted means the decision for this round is locked.
	StatePredicted
	// StateSettled means the round's kill has been applied.
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateAnalyzing:
		return "analyzing"
	case StatePredicted:
		return "predicted"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Outcome is the settled result of a submitted bet.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeWon
	OutcomeLost
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	default:
		return "pending"
	}
}

// Bet is one submitted stake and, after settlement, its result. Delta is the
// observed balance change when reconciliation succeeded, otherwise the payout
// estimate.
type Bet struct {
	Issue      int64
	Room       stats.RoomID
	Amount     decimal.Decimal
	Strategy   string
	PlacedAt   time.Time
	Accepted   bool
	Outcome    Outcome
	Delta      decimal.Decimal
	Reconciled bool
	WinStreak  int
	LoseStreak int
}

// Executor performs the engine's network side effects. *wallet.Client
// satisfies it; tests substitute a recorder.
type Executor interface {
	PlaceBet(ctx context.Context, roomID int, amount decimal.Decimal) (wallet.BetResult, error)
	FetchBalances(ctx context.Context) (wallet.Balances, error)
}

// Config tunes round timing and the rest policies.
type Config struct {
	// Auto enables stake submission. With Auto off the engine still predicts
	// and settles, useful for observing a strategy without risking funds.
	Auto bool
	// AnalysisWindow forces a decision this long after round start even if no
	// qualifying countdown arrives.
	AnalysisWindow time.Duration
	// DecisionCountdown locks the decision once the server countdown drops to
	// this value or below.
	DecisionCountdown int
	// RestEveryN skips one round after every N submitted bets. 0 disables.
	RestEveryN int
	// RestAfterLoss pauses betting for this many rounds after a lost bet.
	// 0 disables.
	RestAfterLoss int
	// SettleDelay is how long reconciliation waits after a settlement before
	// reading the balance, giving the wallet time to post the payout.
	SettleDelay time.Duration
	// HistorySize bounds the retained bet history.
	HistorySize int
}

func (c *Config) applyDefaults() {
	if c.AnalysisWindow <= 0 {
		c.AnalysisWindow = 45 * time.Second
	}
	if c.DecisionCountdown <= 0 {
		c.DecisionCountdown = 10
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2500 * time.Millisecond
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 200
	}
}

// Engine drives rounds from decoded frames. All exported methods are safe for
// concurrent use.
type Engine struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	store  *stats.Store
	strat  strategy.Strategy
	money  *money.Manager
	exec   Executor
	tasks  *Tasks

	mu            sync.Mutex
	state         State
	issueID       int64
	roundIndex    int
	countdown     int
	analysisStart time.Time
	roundEnd      time.Time
	locked        bool
	predicted     stats.RoomID
	killed        stats.RoomID

	bets            []*Bet
	submitted       *idSet
	settled         *idSet
	roundsSinceRest int
	skipNext        bool
	restRemaining   int

	stopOnce   sync.Once
	stopFn     func(reason string)
	stopped    bool
	stopReason string
}

// New creates an engine. clock may be nil for the real clock.
func New(cfg Config, store *stats.Store, strat strategy.Strategy, mgr *money.Manager, exec Executor, tasks *Tasks, logger *log.Logger, clock quartz.Clock) *Engine {
	cfg.applyDefaults()
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Engine{
		cfg:       cfg,
		logger:    logger.WithPrefix("engine"),
		clock:     clock,
		store:     store,
		strat:     strat,
		money:     mgr,
		exec:      exec,
		tasks:     tasks,
		countdown: -1,
		submitted: newIDSet(cfg.HistorySize),
		settled:   newIDSet(cfg.HistorySize),
	}
}

// SetStopFunc registers the callback invoked once when a stop condition
// trips. The stream layer uses it to close the connection.
func (e *Engine) SetStopFunc(fn func(reason string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopFn = fn
}

// HandleFrame routes one decoded frame into the state machine.
func (e *Engine) HandleFrame(ctx context.Context, f *protocol.Frame) {
	switch f.Kind {
	case protocol.KindEnterGame:
		if f.LastKilledRoom > 0 {
			e.store.SetLastKilled(stats.RoomID(f.LastKilledRoom))
		}
		e.store.ApplyTelemetry(roomUpdates(f.Rooms))
		if f.IssueID != 0 {
			e.AdvanceRound(f.IssueID, f.StartTime, f.EndTime)
		}
	case protocol.KindTelemetry:
		if f.IssueID != 0 {
			e.AdvanceRound(f.IssueID, f.StartTime, f.EndTime)
		}
		e.store.ApplyTelemetry(roomUpdates(f.Rooms))
	case protocol.KindCountdown:
		if f.IssueID != 0 {
			e.AdvanceRound(f.IssueID, f.StartTime, f.EndTime)
		}
		e.mu.Lock()
		e.countdown = f.Countdown
		e.mu.Unlock()
		if f.Countdown >= 0 && f.Countdown <= e.cfg.DecisionCountdown {
			e.LockPrediction(ctx, "countdown")
		}
	case protocol.KindResult:
		if f.KilledRoom > 0 {
			e.ApplySettlement(stats.RoomID(f.KilledRoom))
		}
	}
}

// AdvanceRound opens a new round, resetting the decision lock and kill state.
// Calling it again with the current issue id is a no-op.
func (e *Engine) AdvanceRound(issueID int64, startUnix, endUnix float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if issueID == e.issueID {
		return
	}
	e.issueID = issueID
	e.roundIndex++
	e.state = StateAnalyzing
	e.locked = false
	e.predicted = stats.None
	e.killed = stats.None
	e.countdown = -1

	now := e.clock.Now()
	start := now
	if startUnix > 0 {
		start = time.Unix(int64(startUnix), 0)
	}
	e.analysisStart = now
	if endUnix > 0 {
		e.roundEnd = time.Unix(int64(endUnix), 0)
	} else {
		e.roundEnd = start.Add(60 * time.Second)
	}
	e.logger.Info("round opened", "issue", issueID, "round", e.roundIndex)
}

// LockPrediction makes this round's decision exactly once. The first caller
// wins the lock, picks a room, and (in auto mode, unless a rest policy
// applies) submits the stake in the background.
func (e *Engine) LockPrediction(ctx context.Context, trigger string) {
	e.mu.Lock()
	if e.locked || e.issueID == 0 || e.state == StateSettled || e.stopped {
		e.mu.Unlock()
		return
	}
	e.locked = true
	issue := e.issueID

	room := e.strat.Pick(e.store.Snapshot())
	e.predicted = room
	e.state = StatePredicted

	if e.restRemaining > 0 {
		e.restRemaining--
		remaining := e.restRemaining
		e.mu.Unlock()
		e.logger.Info("resting after loss", "issue", issue, "room", room, "remaining", remaining)
		return
	}
	if e.skipNext {
		e.skipNext = false
		e.mu.Unlock()
		e.logger.Info("rest round, skipping stake", "issue", issue, "room", room)
		return
	}
	auto := e.cfg.Auto
	e.mu.Unlock()

	e.logger.Info("prediction locked",
		"issue", issue, "room", room, "strategy", e.strat.ID(), "trigger", trigger)
	if !auto {
		return
	}

	balance, ok := e.money.Balance()
	if !ok {
		// No poller reading yet; try one synchronous refresh before giving
		// up the lock so a later trigger can retry this round.
		fctx, cancel := context.WithTimeout(ctx, 4*time.Second)
		b, err := e.exec.FetchBalances(fctx)
		cancel()
		if err == nil && b.HasBuild {
			e.money.ObserveBalance(b.Build)
			balance, ok = e.money.Balance()
		}
	}
	if !ok {
		e.mu.Lock()
		// A slow refresh can straddle a round transition; by then the new
		// round owns the lock and this round's failure must not reopen it.
		if e.issueID == issue && e.locked {
			e.locked = false
			e.state = StateAnalyzing
		}
		e.mu.Unlock()
		e.logger.Warn("balance unknown, releasing decision lock", "issue", issue)
		return
	}

	stake, err := e.money.StakeFor(balance)
	if err != nil {
		e.stop("base stake unaffordable")
		return
	}

	e.mu.Lock()
	if e.issueID != issue || !e.submitted.add(issue) {
		e.mu.Unlock()
		return
	}
	bet := &Bet{
		Issue:    issue,
		Room:     room,
		Amount:   stake,
		Strategy: e.strat.ID(),
		PlacedAt: e.clock.Now(),
	}
	e.pushBet(bet)
	e.roundsSinceRest++
	if e.cfg.RestEveryN > 0 && e.roundsSinceRest >= e.cfg.RestEveryN {
		e.skipNext = true
		e.roundsSinceRest = 0
	}
	e.mu.Unlock()

	e.tasks.Go("submit-stake", func(ctx context.Context) error {
		res, err := e.exec.PlaceBet(ctx, int(room), stake)
		if err != nil {
			return err
		}
		e.mu.Lock()
		if b := e.findBet(issue); b != nil {
			b.Accepted = res.Accepted
		}
		e.mu.Unlock()
		if !res.Accepted {
			e.logger.Warn("stake rejected",
				"issue", issue, "room", room, "code", res.Code, "message", res.Message)
		} else {
			e.logger.Info("stake accepted", "issue", issue, "room", room, "amount", stake)
		}
		return nil
	})
}

// ApplySettlement records the killed room for the current round: statistics
// and money state update synchronously, then a background task reconciles the
// bet's balance delta against the wallet. Replays for an already-settled
// issue are ignored.
func (e *Engine) ApplySettlement(killed stats.RoomID) {
	e.mu.Lock()
	issue := e.issueID
	if issue == 0 || !e.settled.add(issue) {
		e.mu.Unlock()
		return
	}
	e.killed = killed
	e.state = StateSettled
	round := e.roundIndex
	bet := e.findBet(issue)
	e.mu.Unlock()

	e.store.ApplySettlement(killed, round)

	if bet == nil {
		e.logger.Info("round settled without stake", "issue", issue, "killed", killed)
		return
	}

	won := bet.Room != killed
	e.money.Settle(won)
	win, lose, _, _ := e.money.Streaks()
	estimate := e.money.EstimateDelta(won, bet.Amount)
	before, haveBefore := e.money.Balance()

	e.mu.Lock()
	if won {
		bet.Outcome = OutcomeWon
	} else {
		bet.Outcome = OutcomeLost
		if e.cfg.RestAfterLoss > 0 {
			e.restRemaining = e.cfg.RestAfterLoss
		}
	}
	bet.WinStreak = win
	bet.LoseStreak = lose
	bet.Delta = estimate
	e.mu.Unlock()

	e.logger.Info("round settled",
		"issue", issue, "killed", killed, "room", bet.Room, "outcome", bet.Outcome)

	e.tasks.Go("reconcile-settlement", func(ctx context.Context) error {
		timer := e.clock.NewTimer(e.cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		b, err := e.exec.FetchBalances(ctx)
		if err == nil && b.HasBuild {
			e.money.ObserveBalance(b.Build)
			if haveBefore {
				e.setBetDelta(issue, b.Build.Sub(before), true)
			}
		}
		if stop, reason := e.money.EvaluateStops(); stop {
			e.stop(reason)
		}
		return err
	})

	if stop, reason := e.money.EvaluateStops(); stop {
		e.stop(reason)
	}
}

// MonitorTick is called periodically by the liveness monitor. It forces the
// decision when the analysis window elapses without a qualifying countdown.
func (e *Engine) MonitorTick(ctx context.Context) {
	e.mu.Lock()
	due := e.state == StateAnalyzing && !e.locked && !e.analysisStart.IsZero() &&
		e.clock.Now().Sub(e.analysisStart) >= e.cfg.AnalysisWindow
	e.mu.Unlock()
	if due {
		e.LockPrediction(ctx, "analysis window elapsed")
	}
}

// ObserveBalance feeds a poller reading into money management and evaluates
// stop conditions against it.
func (e *Engine) ObserveBalance(b wallet.Balances) {
	if !b.HasBuild {
		return
	}
	e.money.ObserveBalance(b.Build)
	if stop, reason := e.money.EvaluateStops(); stop {
		e.stop(reason)
	}
}

// Stopped reports whether the engine has shut down betting, and why.
func (e *Engine) Stopped() (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped, e.stopReason
}

func (e *Engine) stop(reason string) {
	e.mu.Lock()
	e.stopped = true
	e.stopReason = reason
	fn := e.stopFn
	e.mu.Unlock()
	e.stopOnce.Do(func() {
		e.logger.Warn("stopping", "reason", reason)
		if fn != nil {
			fn(reason)
		}
	})
}

// Status is a read-only snapshot for the dashboard.
type Status struct {
	State         State
	IssueID       int64
	Round         int
	Countdown     int
	RoundEnd      time.Time
	Predicted     stats.RoomID
	Killed        stats.RoomID
	Stopped       bool
	StopReason    string
	RestRemaining int
	SkipNext      bool
	Bets          []Bet
}

// Status copies the engine state under one lock acquisition. Bets are ordered
// oldest first.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{
		State:         e.state,
		IssueID:       e.issueID,
		Round:         e.roundIndex,
		Countdown:     e.countdown,
		RoundEnd:      e.roundEnd,
		Predicted:     e.predicted,
		Killed:        e.killed,
		Stopped:       e.stopped,
		StopReason:    e.stopReason,
		RestRemaining: e.restRemaining,
		SkipNext:      e.skipNext,
		Bets:          make([]Bet, len(e.bets)),
	}
	for i, b := range e.bets {
		st.Bets[i] = *b
	}
	return st
}

// pushBet appends to the bounded history. Caller holds e.mu.
func (e *Engine) pushBet(b *Bet) {
	e.bets = append(e.bets, b)
	if len(e.bets) > e.cfg.HistorySize {
		e.bets = e.bets[len(e.bets)-e.cfg.HistorySize:]
	}
}

// findBet returns the most recent bet for an issue. Caller holds e.mu.
func (e *Engine) findBet(issue int64) *Bet {
	for i := len(e.bets) - 1; i >= 0; i-- {
		if e.bets[i].Issue == issue {
			return e.bets[i]
		}
	}
	return nil
}

func (e *Engine) setBetDelta(issue int64, delta decimal.Decimal, reconciled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b := e.findBet(issue); b != nil {
		b.Delta = delta
		b.Reconciled = reconciled
	}
}

func roomUpdates(rooms []protocol.RoomTelemetry) []stats.RoomUpdate {
	out := make([]stats.RoomUpdate, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, stats.RoomUpdate{
			Room:        stats.RoomID(r.RoomID),
			Players:     r.Players,
			StakeVolume: r.Stake,
		})
	}
	return out
}

// idSet is a bounded first-in-first-out set of issue ids, used for
// at-most-once submission and settlement.
type idSet struct {
	max  int
	seen map[int64]struct{}
	fifo []int64
}

func newIDSet(max int) *idSet {
	return &idSet{max: max, seen: make(map[int64]struct{}, max)}
}

// add inserts id, returning false when it was already present.
func (s *idSet) add(id int64) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.fifo = append(s.fifo, id)
	if len(s.fifo) > s.max {
		delete(s.seen, s.fifo[0])
		s.fifo = s.fifo[1:]
	}
	return true
}
