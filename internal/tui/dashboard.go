// Package tui renders the live betting dashboard: balances and profit in the
// header, a room grid with the current prediction and kill highlighted, and
// the recent bet history. The model is read-only; it samples engine, stats
// and money state on a timer and never mutates them.
package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tntool/escapebot/internal/engine"
	"github.com/tntool/escapebot/internal/money"
	"github.com/tntool/escapebot/internal/stats"
	"github.com/tntool/escapebot/internal/wallet"
)

const refreshInterval = 500 * time.Millisecond

// BalanceCache retains the latest wallet reading for display. It satisfies
// the poller's sink interface so it can be teed alongside the engine.
type BalanceCache struct {
	mu   sync.Mutex
	last wallet.Balances
}

// ObserveBalance stores the reading.
func (c *BalanceCache) ObserveBalance(b wallet.Balances) {
	c.mu.Lock()
	c.last = b
	c.mu.Unlock()
}

// Last returns the most recent reading.
func (c *BalanceCache) Last() wallet.Balances {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	engine       *engine.Engine
	store        *stats.Store
	money        *money.Manager
	balances     *BalanceCache
	strategyName string
	betTable     table.Model

	width    int
	height   int
	quitting bool
}

// NewModel creates the dashboard model.
func NewModel(eng *engine.Engine, store *stats.Store, mgr *money.Manager, balances *BalanceCache, strategyName string) Model {
	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "Issue", Width: 12},
			{Title: "Room", Width: 5},
			{Title: "Amount", Width: 10},
			{Title: "Result", Width: 8},
			{Title: "Delta", Width: 14},
		}),
		table.WithHeight(betHistoryRows),
	)
	styles := table.DefaultStyles()
	styles.Selected = styles.Cell // read-only table, no selection highlight
	tbl.SetStyles(styles)

	return Model{
		engine:       eng,
		store:        store,
		money:        mgr,
		balances:     balances,
		strategyName: strategyName,
		betTable:     tbl,
	}
}

type refreshMsg time.Time

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Init starts the refresh timer.
func (m Model) Init() tea.Cmd {
	return refreshTick()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		}
	case refreshMsg:
		m.betTable.SetRows(m.betRows())
		return m, refreshTick()
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderRooms(),
		m.renderStatus(),
		m.renderBets(),
		InfoStyle.Render("q to quit"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	b := m.balances.Last()
	profit := m.money.Profit()
	win, lose, maxWin, maxLose := m.money.Streaks()

	profitStr := ProfitStyle.Render("+" + profit.StringFixed(2))
	if profit.IsNegative() {
		profitStr = LossStyle.Render(profit.StringFixed(2))
	}

	parts := []string{
		HeaderStyle.Render("escapebot"),
		fmt.Sprintf("BUILD %s", b.Build.StringFixed(2)),
		fmt.Sprintf("WORLD %s", b.World.StringFixed(2)),
		fmt.Sprintf("USDT %s", b.USDT.StringFixed(2)),
		fmt.Sprintf("P&L %s", profitStr),
		fmt.Sprintf("streak W%d/L%d (best W%d, worst L%d)", win, lose, maxWin, maxLose),
		fmt.Sprintf("stake %s", m.money.CurrentStake().StringFixed(2)),
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderRooms() string {
	st := m.engine.Status()
	snap := m.store.Snapshot()

	var cells []string
	for _, room := range snap.Order {
		live := snap.Live[room]
		hist := snap.History[room]

		total := hist.Kills + hist.Survivals
		rate := "-"
		if total > 0 {
			rate = fmt.Sprintf("%.0f%%", 100*float64(hist.Survivals)/float64(total))
		}

		label := fmt.Sprintf("Room %d", room)
		switch room {
		case st.Predicted:
			label += " ◎"
		case st.Killed:
			label += " ✗"
		}
		if room == snap.LastKilled && st.Killed == stats.None {
			label += " †"
		}

		body := fmt.Sprintf("%s\n%d players\n%.0f staked\nsurvives %s",
			label, live.Players, live.StakeVolume, rate)

		style := RoomStyle
		switch room {
		case st.Predicted:
			style = PredictedRoomStyle
		case st.Killed:
			style = KilledRoomStyle
		}
		cells = append(cells, style.Render(body))
	}

	perRow := 4
	var rows []string
	for i := 0; i < len(cells); i += perRow {
		end := i + perRow
		if end > len(cells) {
			end = len(cells)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderStatus() string {
	st := m.engine.Status()

	var parts []string
	parts = append(parts, StatusStyle.Render(st.State.String()))
	if st.IssueID != 0 {
		parts = append(parts, fmt.Sprintf("round #%d (issue %d)", st.Round, st.IssueID))
	}
	if st.Countdown >= 0 {
		parts = append(parts, fmt.Sprintf("countdown %ds", st.Countdown))
	}
	parts = append(parts, fmt.Sprintf("strategy %s", m.strategyName))
	if st.RestRemaining > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("resting %d more rounds", st.RestRemaining)))
	}
	if st.SkipNext {
		parts = append(parts, WarningStyle.Render("resting next round"))
	}
	if st.Stopped {
		parts = append(parts, LossStyle.Render("STOPPED: "+st.StopReason))
	}
	return strings.Join(parts, "  ")
}

const betHistoryRows = 8

func (m Model) renderBets() string {
	bets := m.engine.Status().Bets
	if len(bets) == 0 {
		return InfoStyle.Render("no bets yet")
	}
	return m.betTable.View()
}

// betRows formats the bet history newest first.
func (m Model) betRows() []table.Row {
	bets := m.engine.Status().Bets
	rows := make([]table.Row, 0, len(bets))
	for i := len(bets) - 1; i >= 0; i-- {
		b := bets[i]
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", b.Issue),
			fmt.Sprintf("%d", b.Room),
			b.Amount.StringFixed(2),
			b.Outcome.String(),
			formatDelta(b),
		})
	}
	return rows
}

func formatDelta(b engine.Bet) string {
	if b.Outcome == engine.OutcomePending {
		return "-"
	}
	s := b.Delta.StringFixed(2)
	if !b.Delta.IsNegative() {
		s = "+" + s
	}
	if !b.Reconciled {
		s += " (est)"
	}
	return s
}
