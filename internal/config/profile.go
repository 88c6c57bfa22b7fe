package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/tntool/escapebot/internal/fileutil"
	"github.com/tntool/escapebot/internal/strategy"
)

// Profile is the persisted betting profile: stake schedule, strategy choice,
// rest policy and stop conditions. Stored as JSON next to the config so it
// survives restarts and can be edited from the configure screen.
type Profile struct {
	BaseStake             float64 `json:"base_stake"`
	Multiplier            float64 `json:"multiplier"`
	Algo                  string  `json:"algo"`
	BetRoundsBeforeSkip   int     `json:"bet_rounds_before_skip"`
	PauseAfterLosses      int     `json:"pause_after_losses"`
	ProfitTarget          float64 `json:"profit_target"`
	StopWhenProfitReached bool    `json:"stop_when_profit_reached"`
	StopLossTarget        float64 `json:"stop_loss_target"`
	StopWhenLossReached   bool    `json:"stop_when_loss_reached"`
	PayoutMultiple        float64 `json:"payout_multiple"`
}

// DefaultProfile returns a conservative profile.
func DefaultProfile() Profile {
	return Profile{
		BaseStake:      1,
		Multiplier:     2,
		Algo:           strategy.Random,
		PayoutMultiple: 7,
	}
}

// LoadProfile reads a profile file. A missing file yields the defaults.
func LoadProfile(filename string) (Profile, error) {
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	p := DefaultProfile()
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// SaveProfile writes the profile atomically so a crash mid-write never
// corrupts the previous version.
func SaveProfile(filename string, p Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return fileutil.WriteFileAtomic(filename, append(data, '\n'), 0o644)
}

// Validate checks the profile for values that would break a run.
func (p Profile) Validate() error {
	if p.BaseStake <= 0 {
		return fmt.Errorf("base stake must be positive")
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1")
	}
	if !slices.Contains(strategy.IDs(), p.Algo) {
		return fmt.Errorf("unknown strategy: %s", p.Algo)
	}
	if p.BetRoundsBeforeSkip < 0 {
		return fmt.Errorf("bet rounds before skip cannot be negative")
	}
	if p.PauseAfterLosses < 0 {
		return fmt.Errorf("pause after losses cannot be negative")
	}
	if p.PayoutMultiple <= 0 {
		return fmt.Errorf("payout multiple must be positive")
	}
	return nil
}
