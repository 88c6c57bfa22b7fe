package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tntool/escapebot/internal/strategy"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "escapebot.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestDefaultEndpoints(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "wss://api.escapemaster.net/escape_master/ws", cfg.Endpoints.StreamURL)
	assert.Equal(t, "https://api.escapemaster.net/escape_game/bet", cfg.Endpoints.BetURL)
	assert.Equal(t, "https://wallet.3games.io/api/wallet/user_asset", cfg.Endpoints.WalletURL)
	assert.Equal(t, "BUILD", cfg.Endpoints.AssetType)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escapebot.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
endpoints {
  stream_url = "wss://staging.example.net/ws"
}

timing {
  decision_countdown = 5
}

ui {
  log_level = "debug"
}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://staging.example.net/ws", cfg.Endpoints.StreamURL)
	assert.Equal(t, 5, cfg.Timing.DecisionCountdown)
	assert.Equal(t, "debug", cfg.UI.LogLevel)

	// Unset fields fall back to defaults.
	assert.Equal(t, Default().Endpoints.BetURL, cfg.Endpoints.BetURL)
	assert.Equal(t, Default().Timing.AnalysisWindowSeconds, cfg.Timing.AnalysisWindowSeconds)
	assert.Equal(t, Default().UI.LogFile, cfg.UI.LogFile)
}

func TestLoadRejectsMalformedHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escapebot.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`endpoints {`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.UI.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	p := DefaultProfile()
	p.BaseStake = 2.5
	p.Algo = strategy.Elimination
	p.BetRoundsBeforeSkip = 3
	p.StopWhenProfitReached = true
	p.ProfitTarget = 500
	require.NoError(t, p.Validate())
	require.NoError(t, SaveProfile(path, p))

	got, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestLoadProfileMissingFileReturnsDefaults(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "profile.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile(), p)
}

func TestProfileValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"zero stake", func(p *Profile) { p.BaseStake = 0 }},
		{"shrinking multiplier", func(p *Profile) { p.Multiplier = 0.5 }},
		{"unknown strategy", func(p *Profile) { p.Algo = "MARTINGALE_PRIME" }},
		{"negative skip cadence", func(p *Profile) { p.BetRoundsBeforeSkip = -1 }},
		{"zero payout multiple", func(p *Profile) { p.PayoutMultiple = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultProfile()
			tc.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}
