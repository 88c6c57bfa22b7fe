package stream

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/tntool/escapebot/internal/wallet"
)

// Fetcher reads wallet balances. *wallet.Client satisfies it.
type Fetcher interface {
	FetchBalances(ctx context.Context) (wallet.Balances, error)
}

// BalanceSink consumes poller readings. *engine.Engine satisfies it.
type BalanceSink interface {
	ObserveBalance(b wallet.Balances)
}

// DefaultPollInterval is how often the wallet is polled for balances.
const DefaultPollInterval = 4 * time.Second

// PollBalances fetches balances immediately and then on every interval tick,
// feeding each successful reading to the sink. Fetch errors are logged and
// the next tick retries; the loop only exits with the context.
func PollBalances(ctx context.Context, clock quartz.Clock, interval time.Duration, fetcher Fetcher, sink BalanceSink, logger *log.Logger) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger = logger.WithPrefix("poller")

	poll := func() {
		b, err := fetcher.FetchBalances(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Debug("balance fetch failed", "error", err)
			}
			return
		}
		sink.ObserveBalance(b)
	}

	poll()
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}
