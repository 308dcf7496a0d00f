// Package bridge puts the vault registry, the issue and redeem managers and
// the ledger behind one entry point. Every operation runs serialized in its
// own sqlite transaction; observations are logged with the transaction and
// published after it commits.
package bridge

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/btcproof"
	"github.com/TEENet-io/onebtc-go/eventlog"
	"github.com/TEENet-io/onebtc-go/issue"
	"github.com/TEENet-io/onebtc-go/ledger"
	"github.com/TEENet-io/onebtc-go/redeem"
	"github.com/TEENet-io/onebtc-go/state"
	"github.com/TEENet-io/onebtc-go/vault"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

type Bridge struct {
	mu    sync.Mutex
	cfg   *Config
	clock clockwork.Clock

	st        *state.StateDB
	ledger    *ledger.Ledger
	vaults    *vault.Registry
	issueDB   *issue.IssueDB
	issues    *issue.Manager
	redeemDB  *redeem.RedeemDB
	redeems   *redeem.Manager
	events    *eventlog.Store
	publisher *eventlog.Publisher

	// terminal requests only, they never change again
	issueCache  *lru.Cache[ethcommon.Hash, *issue.Request]
	redeemCache *lru.Cache[ethcommon.Hash, *redeem.Request]
}

// New creates the bridge tables in db if needed. relay must not share db:
// proofs are verified while a bridge transaction is open.
func New(db *sql.DB, relay agreement.Relay, clock clockwork.Clock, cfg *Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := state.NewStateDB(db)
	if err != nil {
		return nil, err
	}
	l, err := ledger.NewLedger(db)
	if err != nil {
		return nil, err
	}
	vaults, err := vault.NewRegistry(db, l, &vault.Config{
		MinimumCollateral:      cfg.MinimumCollateral,
		CollateralRatioPercent: cfg.CollateralRatioPercent,
	})
	if err != nil {
		return nil, err
	}
	issueDB, err := issue.NewIssueDB(db)
	if err != nil {
		return nil, err
	}
	redeemDB, err := redeem.NewRedeemDB(db)
	if err != nil {
		return nil, err
	}
	events, err := eventlog.NewStore(db)
	if err != nil {
		return nil, err
	}
	st.BeforeCommit = events.Append

	verifier := btcproof.NewVerifier(relay, &btcproof.Config{
		Params:        cfg.Params,
		Confirmations: cfg.Confirmations,
	})

	return &Bridge{
		cfg:       cfg,
		clock:     clock,
		st:        st,
		ledger:    l,
		vaults:    vaults,
		issueDB:   issueDB,
		issues: issue.NewManager(issueDB, st, vaults, l, verifier, &issue.Config{
			Params: cfg.Params,
			FeeBps: cfg.IssueFeeBps,
			Period: cfg.IssuePeriod,
		}),
		redeemDB: redeemDB,
		redeems: redeem.NewManager(redeemDB, st, vaults, l, verifier, &redeem.Config{
			Params:        cfg.Params,
			FeeBps:        cfg.RedeemFeeBps,
			PunishmentBps: cfg.RedeemPunishmentBps,
			Period:        cfg.RedeemPeriod,
		}),
		events:      events,
		publisher:   eventlog.NewPublisher(),
		issueCache:  lru.NewCache[ethcommon.Hash, *issue.Request](cfg.CacheSize),
		redeemCache: lru.NewCache[ethcommon.Hash, *redeem.Request](cfg.CacheSize),
	}, nil
}

func (br *Bridge) Close() {
	br.events.Close()
	br.redeemDB.Close()
	br.issueDB.Close()
	br.vaults.Close()
	br.ledger.Close()
	br.st.Close()
}

func (br *Bridge) Config() *Config {
	return br.cfg
}

// Publisher fans out the events of every committed operation.
func (br *Bridge) Publisher() *eventlog.Publisher {
	return br.publisher
}

// update runs op atomically. Nothing op did survives a failure.
func (br *Bridge) update(ctx context.Context, op string, fn func(b *state.Batch) error) error {
	br.mu.Lock()
	defer br.mu.Unlock()

	events, err := br.st.Update(ctx, br.clock.Now(), fn)
	if err != nil {
		entry := logger.WithFields(logger.Fields{"op": op, "reason": agreement.Reason(err)})
		if agreement.IsRejection(err) || errors.Is(err, context.Canceled) {
			entry.Debugf("operation rejected: %v", err)
		} else {
			entry.Errorf("operation failed: %v", err)
		}
		return err
	}

	br.publisher.Notify(events...)
	return nil
}

// view reads committed state.
func (br *Bridge) view(ctx context.Context, fn func(b *state.Batch) error) error {
	br.mu.Lock()
	defer br.mu.Unlock()

	return br.st.View(ctx, br.clock.Now(), fn)
}
