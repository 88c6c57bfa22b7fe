package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tntool/escapebot/cmd/escapebot/shared"
	"github.com/tntool/escapebot/internal/accounts"
	"github.com/tntool/escapebot/internal/config"
	"github.com/tntool/escapebot/internal/wallet"
)

// AccountsCmd manages the saved account list.
type AccountsCmd struct {
	Add    AddAccountCmd    `cmd:"" help:"Save an account from a pasted game link"`
	Remove RemoveAccountCmd `cmd:"" help:"Remove a saved account"`
	List   ListAccountsCmd  `cmd:"" help:"List saved accounts"`
}

type AddAccountCmd struct {
	AccountsFile string `default:"accounts.json" help:"Path to saved accounts"`
	Label        string `help:"Optional label for the account"`
	Link         string `arg:"" help:"Game link containing userId and secretKey"`
}

func (c *AddAccountCmd) Run() error {
	store, err := accounts.Load(c.AccountsFile)
	if err != nil {
		return err
	}
	account, err := accounts.ParseGameLink(c.Link)
	if err != nil {
		return err
	}
	account.Label = c.Label
	if err := store.Add(account); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}
	fmt.Printf("Saved account %d\n", account.UserID)
	return nil
}

type RemoveAccountCmd struct {
	AccountsFile string `default:"accounts.json" help:"Path to saved accounts"`
	UserID       int64  `arg:"" help:"User id of the account to remove"`
}

func (c *RemoveAccountCmd) Run() error {
	store, err := accounts.Load(c.AccountsFile)
	if err != nil {
		return err
	}
	if err := store.Remove(c.UserID); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}
	fmt.Printf("Removed account %d\n", c.UserID)
	return nil
}

type ListAccountsCmd struct {
	AccountsFile string `default:"accounts.json" help:"Path to saved accounts"`
	Config       string `short:"c" default:"escapebot.hcl" help:"Path to HCL configuration file"`
	Balances     bool   `help:"Fetch the live balance for each account"`
}

func (c *ListAccountsCmd) Run() error {
	store, err := accounts.Load(c.AccountsFile)
	if err != nil {
		return err
	}
	if len(store.Accounts) == 0 {
		fmt.Println("No saved accounts")
		return nil
	}

	var cfg *config.Config
	if c.Balances {
		if cfg, err = config.Load(c.Config); err != nil {
			return err
		}
	}

	logger := shared.SetupLogger(os.Stderr, "warn")
	for _, a := range store.Accounts {
		masked := a.SecretKey
		if len(masked) > 4 {
			masked = masked[:4] + "…"
		}
		line := fmt.Sprintf("%d  %s", a.UserID, masked)
		if a.Label != "" {
			line += fmt.Sprintf("  (%s)", a.Label)
		}
		if c.Balances {
			line += "  " + fetchBalanceSummary(cfg, a, logger)
		}
		fmt.Println(line)
	}
	return nil
}

func fetchBalanceSummary(cfg *config.Config, a accounts.Account, logger *log.Logger) string {
	cli := wallet.NewClient(wallet.Config{
		WalletURL: cfg.Endpoints.WalletURL,
		AssetType: cfg.Endpoints.AssetType,
		UserID:    a.UserID,
		SecretKey: a.SecretKey,
	}, logger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b, err := cli.FetchBalances(ctx)
	if err != nil {
		return "balance unavailable"
	}
	return fmt.Sprintf("BUILD %s  WORLD %s  USDT %s",
		b.Build.StringFixed(2), b.World.StringFixed(2), b.USDT.StringFixed(2))
}
