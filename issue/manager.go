// Package issue runs the lifecycle of minting pegged tokens against BTC
// paid to a per-request deposit address.
package issue

import (
	"context"
	"fmt"
	"time"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/btcaddr"
	"github.com/TEENet-io/onebtc-go/btcproof"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/TEENet-io/onebtc-go/ledger"
	"github.com/TEENet-io/onebtc-go/state"
	"github.com/TEENet-io/onebtc-go/vault"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

type Config struct {
	Params *chaincfg.Params

	// Fee in basis points of the requested BTC, paid to the vault.
	FeeBps uint64

	// Time after which anyone may cancel a pending request.
	Period time.Duration
}

// PaymentVerifier is satisfied by *btcproof.Verifier.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, sub *btcproof.Submission, expected btcutil.Address, id ethcommon.Hash) (*btcproof.Payment, error)
}

type Manager struct {
	db       *IssueDB
	st       *state.StateDB
	vaults   *vault.Registry
	ledger   *ledger.Ledger
	verifier PaymentVerifier
	cfg      *Config
}

func NewManager(
	idb *IssueDB,
	st *state.StateDB,
	vaults *vault.Registry,
	l *ledger.Ledger,
	verifier PaymentVerifier,
	cfg *Config,
) *Manager {
	return &Manager{
		db:       idb,
		st:       st,
		vaults:   vaults,
		ledger:   l,
		verifier: verifier,
		cfg:      cfg,
	}
}

// RequestIssue reserves requested BTC of capacity on vaultID and returns a
// pending request with its one-time deposit address. The requester pays
// Requested and receives Amount, the vault receives Fee.
func (m *Manager) RequestIssue(b *state.Batch, requester ethcommon.Address, requested uint64, vaultID ethcommon.Address) (*Request, error) {
	fee := common.Bps(requested, m.cfg.FeeBps)
	if requested == 0 || fee >= requested {
		return nil, fmt.Errorf("%w: issue of %d", agreement.ErrInvalidAmount, requested)
	}

	v, err := m.vaults.GetVault(b, vaultID)
	if err != nil {
		return nil, err
	}
	if err := m.vaults.ReserveIssueCapacity(b, vaultID, requested); err != nil {
		return nil, err
	}

	nonce, err := m.st.NextNonce(b)
	if err != nil {
		return nil, err
	}
	id := agreement.NewRequestID(requester, vaultID, nonce, b.Now(), common.RandBytes32())

	vaultKey, err := btcaddr.ParseVaultKey(v.PublicKey)
	if err != nil {
		return nil, err
	}
	addr, err := btcaddr.DeriveDepositAddress(vaultKey, id, m.cfg.Params)
	if err != nil {
		return nil, err
	}

	r := &Request{
		ID:             id,
		Requester:      requester,
		VaultID:        vaultID,
		Requested:      requested,
		Amount:         requested - fee,
		Fee:            fee,
		DepositAddress: addr.EncodeAddress(),
		CreatedAt:      common.CeilSecond(b.Now()),
		Status:         StatusPending,
	}
	if err := m.db.Insert(b, r); err != nil {
		return nil, err
	}

	b.Emit(&agreement.IssueRequestEvent{
		IssueID:    r.ID,
		Requester:  r.Requester,
		VaultID:    r.VaultID,
		Amount:     r.Amount,
		Fee:        r.Fee,
		BtcAddress: r.DepositAddress,
	})
	logger.WithFields(logger.Fields{
		"id":        r.ID.String(),
		"vault":     r.VaultID.String(),
		"requested": r.Requested,
		"deposit":   r.DepositAddress,
	}).Info("issue requested")
	return r, nil
}

func (m *Manager) GetIssue(b *state.Batch, id ethcommon.Hash) (*Request, error) {
	r, ok, err := m.db.Get(b, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: issue %s", agreement.ErrRequestNotFound, id)
	}
	return r, nil
}

func (m *Manager) ListIssues(b *state.Batch, requester ethcommon.Address, limit int) ([]*Request, error) {
	return m.db.ByRequester(b, requester, limit)
}

// ListExpired returns pending requests their vault may cancel at b.Now().
func (m *Manager) ListExpired(b *state.Batch) ([]*Request, error) {
	return m.db.PendingCreatedUntil(b, b.Now().Add(-m.cfg.Period).Unix())
}

func (m *Manager) pending(b *state.Batch, id ethcommon.Hash) (*Request, error) {
	r, err := m.GetIssue(b, id)
	if err != nil {
		return nil, err
	}
	if r.IsTerminal() {
		return nil, fmt.Errorf("%w: issue %s is %s", agreement.ErrAlreadyCompleted, id, r.Status)
	}
	return r, nil
}

// ExecuteIssue settles a pending request against the submitted BTC payment.
// Only the requester may execute. Any verified outcome completes the request.
func (m *Manager) ExecuteIssue(ctx context.Context, b *state.Batch, caller ethcommon.Address, id ethcommon.Hash, sub *btcproof.Submission) (*Request, error) {
	r, err := m.GetIssue(b, id)
	if err != nil {
		return nil, err
	}
	if caller != r.Requester {
		return nil, fmt.Errorf("%w: %s is not the requester of %s", agreement.ErrInvalidExecutor, caller, id)
	}
	if r.IsTerminal() {
		return nil, fmt.Errorf("%w: issue %s is %s", agreement.ErrAlreadyCompleted, id, r.Status)
	}

	addr, err := common.DecodeP2PKH(r.DepositAddress, m.cfg.Params)
	if err != nil {
		return nil, err
	}
	payment, err := m.verifier.VerifyPayment(ctx, sub, addr, r.ID)
	if err != nil {
		return nil, err
	}
	if err := m.st.ClaimBtcTx(b, payment.TxID, r.ID); err != nil {
		return nil, err
	}

	outcome := Classify(payment.Paid, r.Requested)
	minted, fee, err := m.settle(b, r, outcome)
	if err != nil {
		return nil, err
	}

	r.Status = StatusCompleted
	r.Paid = payment.Paid
	r.BtcTxID = payment.TxID
	if err := m.db.Finalize(b, r); err != nil {
		return nil, err
	}

	b.Emit(&agreement.IssueCompleteEvent{
		IssueID:   r.ID,
		Requester: r.Requester,
		VaultID:   r.VaultID,
		Outcome:   outcome.Name(),
		Paid:      payment.Paid,
		Minted:    minted,
		Fee:       fee,
	})
	logger.WithFields(logger.Fields{
		"id":      r.ID.String(),
		"outcome": outcome.Name(),
		"paid":    payment.Paid,
		"minted":  minted,
		"btcTx":   payment.TxID.String(),
	}).Info("issue executed")
	return r, nil
}

// settle applies the capacity, mint and slash effects of outcome and
// returns what was minted to the requester and to the vault.
func (m *Manager) settle(b *state.Batch, r *Request, outcome PaymentOutcome) (minted, fee uint64, err error) {
	var committed, shortfall uint64

	switch o := outcome.(type) {
	case Full:
		committed, minted, fee = r.Requested, r.Amount, r.Fee
	case Partial:
		var ok1, ok2 bool
		minted, ok1 = common.MulDiv(r.Amount, o.Paid, o.Requested)
		fee, ok2 = common.MulDiv(r.Fee, o.Paid, o.Requested)
		if !ok1 || !ok2 {
			return 0, 0, fmt.Errorf("%w: partial payout of %s", agreement.ErrInvalidAmount, r.ID)
		}
		committed, shortfall = o.Paid, o.Requested-o.Paid
	case None:
		shortfall = r.Requested
	default:
		return 0, 0, fmt.Errorf("unknown payment outcome %T", outcome)
	}

	if shortfall > 0 {
		if err := m.vaults.ReleaseIssueReservation(b, r.VaultID, shortfall); err != nil {
			return 0, 0, err
		}
	}
	if committed > 0 {
		if err := m.vaults.CommitIssue(b, r.VaultID, committed); err != nil {
			return 0, 0, err
		}
	}
	if minted > 0 {
		if err := m.ledger.Mint(b, r.Requester, minted); err != nil {
			return 0, 0, err
		}
	}
	if fee > 0 {
		if err := m.ledger.Mint(b, r.VaultID, fee); err != nil {
			return 0, 0, err
		}
	}
	if shortfall > 0 {
		if _, err := m.vaults.SlashCapped(b, r.VaultID, shortfall, r.Requester); err != nil {
			return 0, 0, err
		}
	}
	return minted, fee, nil
}

// CancelIssue drops a pending request and its reservation. The requester
// may cancel at any time and the vault once the period has passed. Nobody
// else may cancel, so a paid but unexecuted request cannot be dropped by a
// third party. Collateral is never touched since no payment was proven.
func (m *Manager) CancelIssue(b *state.Batch, caller ethcommon.Address, id ethcommon.Hash) (*Request, error) {
	r, err := m.pending(b, id)
	if err != nil {
		return nil, err
	}
	switch caller {
	case r.Requester:
	case r.VaultID:
		if expiry := r.CreatedAt.Add(m.cfg.Period); b.Now().Before(expiry) {
			return nil, fmt.Errorf("%w: issue %s expires at %s",
				agreement.ErrTimeNotExpired, id, expiry.Format(time.RFC3339))
		}
	default:
		return nil, fmt.Errorf("%w: %s may not cancel %s", agreement.ErrInvalidExecutor, caller, id)
	}

	if err := m.vaults.ReleaseIssueReservation(b, r.VaultID, r.Requested); err != nil {
		return nil, err
	}
	r.Status = StatusCancelled
	if err := m.db.Finalize(b, r); err != nil {
		return nil, err
	}

	b.Emit(&agreement.IssueCancelEvent{IssueID: r.ID})
	logger.WithFields(logger.Fields{
		"id":     r.ID.String(),
		"caller": caller.String(),
	}).Info("issue cancelled")
	return r, nil
}
