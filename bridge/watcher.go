package bridge

import (
	"context"
	"time"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/metrics"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

// Watcher periodically reports requests that can be cancelled and the
// relay tip. It never cancels anything itself: cancelling a redeem slashes
// a vault and is left to the requester.
type Watcher struct {
	bridge   *Bridge
	relay    agreement.Relay
	metrics  *metrics.Metrics
	clock    clockwork.Clock
	interval time.Duration
}

func NewWatcher(br *Bridge, relay agreement.Relay, m *metrics.Metrics, clock clockwork.Clock, interval time.Duration) *Watcher {
	return &Watcher{
		bridge:   br,
		relay:    relay,
		metrics:  m,
		clock:    clock,
		interval: interval,
	}
}

func (w *Watcher) Loop(ctx context.Context) error {
	logger.Debug("starting expiry watcher")
	defer logger.Debug("stopping expiry watcher")

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if err := w.Check(ctx); err != nil {
				logger.Errorf("failed to check expired requests: err=%v", err)
			}
		}
	}
}

// Check is a single round of the loop.
func (w *Watcher) Check(ctx context.Context) error {
	issues, redeems, err := w.bridge.Expired(ctx)
	if err != nil {
		return err
	}

	for _, r := range redeems {
		logger.WithFields(logger.Fields{
			"id":        r.ID.String(),
			"vault":     r.VaultID.String(),
			"requester": r.Requester.String(),
			"amount":    r.Amount,
			"deadline":  r.Deadline().Format(time.RFC3339),
		}).Warn("vault missed redeem deadline")
	}
	if len(issues) > 0 {
		logger.WithField("count", len(issues)).Info("expired issue requests")
	}

	best, err := w.relay.BestHeight(ctx)
	if err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.ExpiredRedeems.Set(float64(len(redeems)))
		w.metrics.ExpiredIssues.Set(float64(len(issues)))
		w.metrics.RelayHeight.Set(float64(best))
	}
	return nil
}
