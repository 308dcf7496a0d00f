package relay

/*
Syncer follows the main chain of a bitcoin node and copies the headers into
the HeaderDB. When the node reports a different block at a height the relay
already has, everything from that height up is replaced.
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/wire"
	logger "github.com/sirupsen/logrus"
)

// HeaderSource is implemented by btcman/rpc.RpcClient.
type HeaderSource interface {
	GetLatestBlockHeight() (int64, error)
	GetBlockHeaderAt(height int64) (*wire.BlockHeader, error)
}

type SyncerConfig struct {
	// Loop's main interval
	Interval time.Duration

	// First height to copy when the relay is empty.
	StartHeight uint32

	// Max headers copied per round.
	BatchSize int
}

type Syncer struct {
	cfg    *SyncerConfig
	source HeaderSource
	db     *HeaderDB
}

func NewSyncer(cfg *SyncerConfig, source HeaderSource, db *HeaderDB) *Syncer {
	return &Syncer{cfg: cfg, source: source, db: db}
}

func (s *Syncer) Loop(ctx context.Context) error {
	logger.Debug("starting btc header syncer")
	defer logger.Debug("stopping btc header syncer")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				logger.Errorf("failed to sync btc headers: err=%v", err)
			}
		}
	}
}

// Scan represents a single round of syncing.
func (s *Syncer) Scan(ctx context.Context) error {
	latest, err := s.source.GetLatestBlockHeight()
	if err != nil {
		return fmt.Errorf("failed to get latest block height: %v", err)
	}

	next, err := s.resume(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(logger.Fields{
		"latestBlockHeight": latest,
		"nextHeight":        next,
	}).Debug("Scanning btc headers")

	for fetched := 0; int64(next) <= latest && fetched < s.cfg.BatchSize; fetched++ {
		header, err := s.source.GetBlockHeaderAt(int64(next))
		if err != nil {
			return fmt.Errorf("failed to get header at %d: %v", next, err)
		}

		if next > s.cfg.StartHeight {
			prev, ok, err := s.db.HeaderAt(ctx, next-1)
			if err != nil {
				return err
			}
			if ok && prev.BlockHash() != header.PrevBlock {
				if err := s.rewind(ctx, next-1); err != nil {
					return err
				}
				next--
				continue
			}
		}

		if err := s.db.PutHeader(ctx, next, header); err != nil {
			return err
		}
		next++
	}
	return nil
}

// resume returns the next height to fetch.
func (s *Syncer) resume(ctx context.Context) (uint32, error) {
	_, ok, err := s.db.HeaderAt(ctx, s.cfg.StartHeight)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.cfg.StartHeight, nil
	}
	best, err := s.db.BestHeight(ctx)
	if err != nil {
		return 0, err
	}
	return best + 1, nil
}

// rewind drops the stale header at height and everything above it.
func (s *Syncer) rewind(ctx context.Context, height uint32) error {
	logger.WithField("height", height).Warn("btc reorg detected, rewinding relay")
	if height == 0 {
		return s.db.DropAbove(ctx, 0)
	}
	return s.db.DropAbove(ctx, height-1)
}
