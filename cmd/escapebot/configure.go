package main

import (
	"fmt"
	"strings"

	"github.com/tntool/escapebot/internal/config"
	"github.com/tntool/escapebot/internal/strategy"
)

// ConfigureCmd edits the betting profile from the command line and persists
// it. Flags left unset keep their current values.
type ConfigureCmd struct {
	Profile string `short:"p" default:"profile.json" help:"Path to betting profile"`
	Show    bool   `help:"Print the current profile without changing it"`

	BaseStake        *float64 `help:"Stake placed after a win"`
	Multiplier       *float64 `help:"Stake multiplier after a loss"`
	Algo             *string  `help:"Prediction strategy (${strategies})"`
	RestEvery        *int     `name:"rest-every" help:"Skip one round after every N bets (0 disables)"`
	PauseAfterLosses *int     `help:"Rounds to pause after a lost bet (0 disables)"`
	ProfitTarget     *float64 `help:"Balance at which to stop with profit"`
	StopOnProfit     *bool    `help:"Enable the profit target stop"`
	StopLoss         *float64 `help:"Balance at which to stop the bleeding"`
	StopOnLoss       *bool    `help:"Enable the stop loss"`
	PayoutMultiple   *float64 `help:"Win payout multiple used for delta estimates"`
}

func (c *ConfigureCmd) Run() error {
	p, err := config.LoadProfile(c.Profile)
	if err != nil {
		return err
	}

	if c.Show {
		printProfile(p)
		return nil
	}

	if c.BaseStake != nil {
		p.BaseStake = *c.BaseStake
	}
	if c.Multiplier != nil {
		p.Multiplier = *c.Multiplier
	}
	if c.Algo != nil {
		p.Algo = strings.ToUpper(*c.Algo)
	}
	if c.RestEvery != nil {
		p.BetRoundsBeforeSkip = *c.RestEvery
	}
	if c.PauseAfterLosses != nil {
		p.PauseAfterLosses = *c.PauseAfterLosses
	}
	if c.ProfitTarget != nil {
		p.ProfitTarget = *c.ProfitTarget
	}
	if c.StopOnProfit != nil {
		p.StopWhenProfitReached = *c.StopOnProfit
	}
	if c.StopLoss != nil {
		p.StopLossTarget = *c.StopLoss
	}
	if c.StopOnLoss != nil {
		p.StopWhenLossReached = *c.StopOnLoss
	}

	if err := p.Validate(); err != nil {
		return err
	}
	if err := config.SaveProfile(c.Profile, p); err != nil {
		return err
	}

	fmt.Printf("Saved %s\n\n", c.Profile)
	printProfile(p)
	return nil
}

func printProfile(p config.Profile) {
	fmt.Printf("strategy:            %s\n", p.Algo)
	fmt.Printf("base stake:          %g\n", p.BaseStake)
	fmt.Printf("loss multiplier:     %g\n", p.Multiplier)
	fmt.Printf("rest every N bets:   %d\n", p.BetRoundsBeforeSkip)
	fmt.Printf("pause after losses:  %d\n", p.PauseAfterLosses)
	fmt.Printf("payout multiple:     %g\n", p.PayoutMultiple)
	if p.StopWhenProfitReached {
		fmt.Printf("profit target:       %g\n", p.ProfitTarget)
	} else {
		fmt.Printf("profit target:       disabled\n")
	}
	if p.StopWhenLossReached {
		fmt.Printf("stop loss:           %g\n", p.StopLossTarget)
	} else {
		fmt.Printf("stop loss:           disabled\n")
	}
}

// strategiesHelp is interpolated into the --algo help text.
func strategiesHelp() string {
	return strings.Join(strategy.IDs(), ", ")
}
