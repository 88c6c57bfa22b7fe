package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tntool/escapebot/cmd/escapebot/shared"
	"github.com/tntool/escapebot/internal/accounts"
	"github.com/tntool/escapebot/internal/config"
	"github.com/tntool/escapebot/internal/engine"
	"github.com/tntool/escapebot/internal/money"
	"github.com/tntool/escapebot/internal/randutil"
	"github.com/tntool/escapebot/internal/stats"
	"github.com/tntool/escapebot/internal/strategy"
	"github.com/tntool/escapebot/internal/stream"
	"github.com/tntool/escapebot/internal/tui"
	"github.com/tntool/escapebot/internal/wallet"
)

// RunCmd connects to the game and runs the betting loop, with the dashboard
// unless --headless.
type RunCmd struct {
	Config       string `short:"c" default:"escapebot.hcl" help:"Path to HCL configuration file"`
	Profile      string `short:"p" default:"profile.json" help:"Path to betting profile"`
	AccountsFile string `default:"accounts.json" help:"Path to saved accounts"`
	Account      int64  `short:"a" help:"User id of the saved account to use (default: first saved)"`
	DryRun       bool   `help:"Predict and track rounds without submitting stakes"`
	Headless     bool   `help:"Run without the dashboard, logging to stderr"`
	Seed         *int64 `help:"Deterministic RNG seed (optional)"`
	LogLevel     string `short:"l" help:"Log level (overrides config)"`
}

func (c *RunCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		cfg.UI.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	profile, err := config.LoadProfile(c.Profile)
	if err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	account, err := c.selectAccount()
	if err != nil {
		return err
	}

	// While the dashboard owns the terminal, logs go to the configured file.
	logWriter := os.Stderr
	if !c.Headless {
		f, err := shared.OpenLogFile(cfg.UI.LogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logWriter = f
	}
	logger := shared.SetupLogger(logWriter, cfg.UI.LogLevel)

	seed := int64(0)
	if c.Seed != nil {
		seed = *c.Seed
	}
	rng := randutil.New(seed)

	strat, err := strategy.New(profile.Algo, rng)
	if err != nil {
		return err
	}

	mgr := money.NewManager(money.Config{
		BaseStake:      decimal.NewFromFloat(profile.BaseStake),
		Multiplier:     decimal.NewFromFloat(profile.Multiplier),
		ProfitTarget:   decimal.NewFromFloat(profile.ProfitTarget),
		StopOnProfit:   profile.StopWhenProfitReached,
		LossFloor:      decimal.NewFromFloat(profile.StopLossTarget),
		StopOnLoss:     profile.StopWhenLossReached,
		PayoutMultiple: decimal.NewFromFloat(profile.PayoutMultiple),
	})

	wcli := wallet.NewClient(wallet.Config{
		BetURL:    cfg.Endpoints.BetURL,
		WalletURL: cfg.Endpoints.WalletURL,
		AssetType: cfg.Endpoints.AssetType,
		UserID:    account.UserID,
		SecretKey: account.SecretKey,
	}, logger, nil)

	ctx, cancel := context.WithCancel(shared.SetupSignalHandler(logger))
	defer cancel()

	store := stats.NewStore(nil)
	tasks := engine.NewTasks(ctx, logger, 8)
	eng := engine.New(engine.Config{
		Auto:              !c.DryRun,
		AnalysisWindow:    time.Duration(cfg.Timing.AnalysisWindowSeconds) * time.Second,
		DecisionCountdown: cfg.Timing.DecisionCountdown,
		RestEveryN:        profile.BetRoundsBeforeSkip,
		RestAfterLoss:     profile.PauseAfterLosses,
		SettleDelay:       time.Duration(cfg.Timing.SettleDelayMillis) * time.Millisecond,
	}, store, strat, mgr, wcli, tasks, logger, nil)

	sc := stream.New(stream.Config{
		URL:       cfg.Endpoints.StreamURL,
		AssetType: cfg.Endpoints.AssetType,
		UserID:    account.UserID,
		SecretKey: account.SecretKey,
	}, eng, logger, nil, rng)
	eng.SetStopFunc(func(string) { sc.Close() })

	balances := &tui.BalanceCache{}

	logger.Info("starting",
		"account", account.UserID,
		"strategy", strat.Name(),
		"base_stake", profile.BaseStake,
		"auto", !c.DryRun)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return sc.Run(gctx)
	})
	g.Go(func() error {
		interval := time.Duration(cfg.Timing.BalancePollSeconds) * time.Second
		return stream.PollBalances(gctx, nil, interval, wcli,
			teeBalances{eng, balances}, logger)
	})

	if !c.Headless {
		model := tui.NewModel(eng, store, mgr, balances, strat.Name())
		program := tea.NewProgram(model, tea.WithAltScreen())
		g.Go(func() error {
			_, err := program.Run()
			cancel()
			sc.Close()
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			program.Quit()
			return nil
		})
	}

	err = g.Wait()
	tasks.Wait()

	if stopped, reason := eng.Stopped(); stopped {
		logger.Info("run finished", "reason", reason)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *RunCmd) selectAccount() (accounts.Account, error) {
	store, err := accounts.Load(c.AccountsFile)
	if err != nil {
		return accounts.Account{}, err
	}
	if len(store.Accounts) == 0 {
		return accounts.Account{}, fmt.Errorf("no saved accounts; add one with 'escapebot accounts add <game link>'")
	}
	if c.Account != 0 {
		return store.Find(c.Account)
	}
	return store.Accounts[0], nil
}

// teeBalances fans one poller reading out to the engine and the dashboard
// cache.
type teeBalances struct {
	engine *engine.Engine
	cache  *tui.BalanceCache
}

func (t teeBalances) ObserveBalance(b wallet.Balances) {
	t.engine.ObserveBalance(b)
	t.cache.ObserveBalance(b)
}
