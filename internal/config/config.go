// Package config loads the tool configuration (HCL) and the per-run strategy
// profile (JSON). The HCL file holds operational settings that rarely change;
// the profile holds the knobs the configure screen edits and persists.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete tool configuration.
type Config struct {
	Endpoints EndpointSettings `hcl:"endpoints,block"`
	Timing    TimingSettings   `hcl:"timing,block"`
	UI        UISettings       `hcl:"ui,block"`
}

// EndpointSettings locates the game services.
type EndpointSettings struct {
	StreamURL string `hcl:"stream_url,optional"`
	BetURL    string `hcl:"bet_url,optional"`
	WalletURL string `hcl:"wallet_url,optional"`
	AssetType string `hcl:"asset_type,optional"`
}

// TimingSettings tunes round timing and polling cadence.
type TimingSettings struct {
	AnalysisWindowSeconds int `hcl:"analysis_window,optional"`
	DecisionCountdown     int `hcl:"decision_countdown,optional"`
	BalancePollSeconds    int `hcl:"balance_poll,optional"`
	SettleDelayMillis     int `hcl:"settle_delay_ms,optional"`
}

// UISettings contains logging and dashboard settings.
type UISettings struct {
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoints: EndpointSettings{
			StreamURL: "wss://api.escapemaster.net/escape_master/ws",
			BetURL:    "https://api.escapemaster.net/escape_game/bet",
			WalletURL: "https://wallet.3games.io/api/wallet/user_asset",
			AssetType: "BUILD",
		},
		Timing: TimingSettings{
			AnalysisWindowSeconds: 45,
			DecisionCountdown:     10,
			BalancePollSeconds:    4,
			SettleDelayMillis:     2500,
		},
		UI: UISettings{
			LogLevel: "info",
			LogFile:  "escapebot.log",
		},
	}
}

// Load reads an HCL configuration file. A missing file yields the defaults;
// present files are merged over them field by field.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := Default()
	if config.Endpoints.StreamURL == "" {
		config.Endpoints.StreamURL = defaults.Endpoints.StreamURL
	}
	if config.Endpoints.BetURL == "" {
		config.Endpoints.BetURL = defaults.Endpoints.BetURL
	}
	if config.Endpoints.WalletURL == "" {
		config.Endpoints.WalletURL = defaults.Endpoints.WalletURL
	}
	if config.Endpoints.AssetType == "" {
		config.Endpoints.AssetType = defaults.Endpoints.AssetType
	}
	if config.Timing.AnalysisWindowSeconds == 0 {
		config.Timing.AnalysisWindowSeconds = defaults.Timing.AnalysisWindowSeconds
	}
	if config.Timing.DecisionCountdown == 0 {
		config.Timing.DecisionCountdown = defaults.Timing.DecisionCountdown
	}
	if config.Timing.BalancePollSeconds == 0 {
		config.Timing.BalancePollSeconds = defaults.Timing.BalancePollSeconds
	}
	if config.Timing.SettleDelayMillis == 0 {
		config.Timing.SettleDelayMillis = defaults.Timing.SettleDelayMillis
	}
	if config.UI.LogLevel == "" {
		config.UI.LogLevel = defaults.UI.LogLevel
	}
	if config.UI.LogFile == "" {
		config.UI.LogFile = defaults.UI.LogFile
	}

	return &config, nil
}

// Validate checks the configuration for values that would break the run.
func (c *Config) Validate() error {
	if c.Endpoints.StreamURL == "" {
		return fmt.Errorf("stream URL is required")
	}
	if c.Endpoints.BetURL == "" {
		return fmt.Errorf("bet URL is required")
	}
	if c.Endpoints.WalletURL == "" {
		return fmt.Errorf("wallet URL is required")
	}
	if c.Timing.AnalysisWindowSeconds <= 0 {
		return fmt.Errorf("analysis window must be positive")
	}
	if c.Timing.DecisionCountdown < 0 {
		return fmt.Errorf("decision countdown cannot be negative")
	}
	if c.Timing.BalancePollSeconds <= 0 {
		return fmt.Errorf("balance poll interval must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.UI.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.UI.LogLevel)
	}
	return nil
}
