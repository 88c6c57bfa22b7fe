// Package wallet talks to the game's request/response endpoints: balance
// reads against the wallet API and stake submission against the bet API.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBetURL is the live stake submission endpoint.
	DefaultBetURL = "https://api.escapemaster.net/escape_game/bet"
	// DefaultWalletURL is the live balance endpoint.
	DefaultWalletURL = "https://wallet.3games.io/api/wallet/user_asset"
	// DefaultAssetType is the currency staked on rooms.
	DefaultAssetType = "BUILD"
)

// Config holds endpoint and account settings for the client.
type Config struct {
	BetURL    string
	WalletURL string
	AssetType string
	UserID    int64
	SecretKey string

	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Retries is the number of additional attempts for balance fetches.
	Retries int
	// BackoffBase scales the inter-attempt backoff (attempt*base, capped at
	// 4*base). Tests set it to zero.
	BackoffBase time.Duration
}

func (c *Config) applyDefaults() {
	if c.BetURL == "" {
		c.BetURL = DefaultBetURL
	}
	if c.WalletURL == "" {
		c.WalletURL = DefaultWalletURL
	}
	if c.AssetType == "" {
		c.AssetType = DefaultAssetType
	}
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
}

// Balances is one reading from the wallet endpoint. The primary currency is
// Build; World and USDT are reported for display only.
type Balances struct {
	Build, World, USDT          decimal.Decimal
	HasBuild, HasWorld, HasUSDT bool
}

// BetResult is the interpreted response to a stake submission.
type BetResult struct {
	Accepted bool
	Code     int
	Message  string
}

// Client is a thin HTTP client over the wallet and bet endpoints.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *log.Logger
	clock  quartz.Clock
}

// NewClient creates a wallet client. A nil clock uses the real one.
func NewClient(cfg Config, logger *log.Logger, clock quartz.Clock) *Client {
	cfg.applyDefaults()
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.WithPrefix("wallet"),
		clock:  clock,
	}
}

// FetchBalances reads the wallet, retrying transient failures with an
// increasing backoff. The returned Balances may be partially populated.
func (c *Client) FetchBalances(ctx context.Context) (Balances, error) {
	payload := map[string]any{"user_id": c.cfg.UserID, "source": "home"}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return Balances{}, err
			}
		}
		obj, err := c.post(ctx, c.cfg.WalletURL, payload)
		if err != nil {
			lastErr = err
			c.logger.Debug("balance fetch failed", "attempt", attempt+1, "error", err)
			continue
		}
		return ParseBalances(obj), nil
	}
	return Balances{}, fmt.Errorf("fetch balances: %w", lastErr)
}

// PlaceBet submits a stake for a round. The response is interpreted as
// accepted only when the server reports an explicit success marker. Network
// errors are returned as-is; submissions are never retried, since the round
// is committed once the request may have reached the server.
func (c *Client) PlaceBet(ctx context.Context, roomID int, amount decimal.Decimal) (BetResult, error) {
	payload := map[string]any{
		"asset_type": c.cfg.AssetType,
		"user_id":    c.cfg.UserID,
		"room_id":    roomID,
		// The endpoint expects a JSON number, not decimal's quoted form.
		"bet_amount": amount.InexactFloat64(),
	}
	obj, err := c.post(ctx, c.cfg.BetURL, payload)
	if err != nil {
		return BetResult{}, fmt.Errorf("place bet: %w", err)
	}
	return interpretBetResponse(obj), nil
}

func (c *Client) post(ctx context.Context, url string, payload any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Origin", "https://xworld.info")
	req.Header.Set("Referer", "https://xworld.info/")
	req.Header.Set("User-Id", fmt.Sprintf("%d", c.cfg.UserID))
	req.Header.Set("User-Secret-Key", c.cfg.SecretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var obj map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return obj, nil
}

// interpretBetResponse accepts the response shapes the server is known to
// use: msg=="ok", code==0, or status in ("ok", 1).
func interpretBetResponse(obj map[string]any) BetResult {
	res := BetResult{}
	if msg, ok := obj["msg"].(string); ok {
		res.Message = msg
		if msg == "ok" {
			res.Accepted = true
		}
	}
	if code, ok := obj["code"].(float64); ok {
		res.Code = int(code)
		if code == 0 {
			res.Accepted = true
		}
	}
	switch status := obj["status"].(type) {
	case string:
		if status == "ok" {
			res.Accepted = true
		}
	case float64:
		if status == 1 {
			res.Accepted = true
		}
	}
	return res
}

func (c *Client) backoff(attempt int) time.Duration {
	base := c.cfg.BackoffBase
	if base <= 0 {
		return 0
	}
	d := time.Duration(attempt) * base
	if max := 4 * base; d > max {
		d = max
	}
	return d
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
