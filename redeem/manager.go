// Package redeem runs the lifecycle of burning pegged tokens against BTC
// paid out by a vault.
package redeem

import (
	"context"
	"fmt"
	"time"

	"github.com/TEENet-io/onebtc-go/agreement"
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

	// Fee in basis points of the redeemed tokens, paid to the vault.
	FeeBps uint64

	// Collateral slashed to the requester on cancel, in basis points of
	// the redeemed tokens.
	PunishmentBps uint64

	// Time the vault has to pay before the request can be cancelled.
	Period time.Duration
}

type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, sub *btcproof.Submission, expected btcutil.Address, id ethcommon.Hash) (*btcproof.Payment, error)
}

type Manager struct {
	db       *RedeemDB
	st       *state.StateDB
	vaults   *vault.Registry
	ledger   *ledger.Ledger
	verifier PaymentVerifier
	cfg      *Config
}

func NewManager(
	rdb *RedeemDB,
	st *state.StateDB,
	vaults *vault.Registry,
	l *ledger.Ledger,
	verifier PaymentVerifier,
	cfg *Config,
) *Manager {
	return &Manager{
		db:       rdb,
		st:       st,
		vaults:   vaults,
		ledger:   l,
		verifier: verifier,
		cfg:      cfg,
	}
}

// RequestRedeem escrows requested pegged tokens of requester and reserves
// the net amount on the vault's issued capacity. The vault then owes
// Amount BTC to btcAddress.
func (m *Manager) RequestRedeem(b *state.Batch, requester ethcommon.Address, requested uint64, btcAddress string, vaultID ethcommon.Address) (*Request, error) {
	fee := common.Bps(requested, m.cfg.FeeBps)
	if requested == 0 || fee >= requested {
		return nil, fmt.Errorf("%w: redeem of %d", agreement.ErrInvalidAmount, requested)
	}
	if _, err := common.DecodeP2PKH(btcAddress, m.cfg.Params); err != nil {
		return nil, fmt.Errorf("%w: %v", agreement.ErrInvalidBtcAddress, err)
	}
	if _, err := m.vaults.GetVault(b, vaultID); err != nil {
		return nil, err
	}

	nonce, err := m.st.NextNonce(b)
	if err != nil {
		return nil, err
	}
	id := agreement.NewRequestID(requester, vaultID, nonce, b.Now(), common.RandBytes32())

	if err := m.ledger.Escrow(b, id, requester, requested); err != nil {
		return nil, err
	}
	amount := requested - fee
	if err := m.vaults.ReserveRedeemCapacity(b, vaultID, amount); err != nil {
		return nil, err
	}

	r := &Request{
		ID:         id,
		Requester:  requester,
		VaultID:    vaultID,
		Requested:  requested,
		Amount:     amount,
		Fee:        fee,
		BtcAddress: btcAddress,
		CreatedAt:  common.CeilSecond(b.Now()),
		Period:     m.cfg.Period,
		Status:     StatusPending,
	}
	if err := m.db.Insert(b, r); err != nil {
		return nil, err
	}

	b.Emit(&agreement.RedeemRequestEvent{
		RedeemID:   r.ID,
		Requester:  r.Requester,
		VaultID:    r.VaultID,
		Amount:     r.Amount,
		Fee:        r.Fee,
		BtcAddress: r.BtcAddress,
	})
	logger.WithFields(logger.Fields{
		"id":       r.ID.String(),
		"vault":    r.VaultID.String(),
		"amount":   r.Amount,
		"payout":   r.BtcAddress,
		"deadline": r.Deadline().Format(time.RFC3339),
	}).Info("redeem requested")
	return r, nil
}

func (m *Manager) GetRedeem(b *state.Batch, id ethcommon.Hash) (*Request, error) {
	r, ok, err := m.db.Get(b, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: redeem %s", agreement.ErrRequestNotFound, id)
	}
	return r, nil
}

func (m *Manager) ListRedeems(b *state.Batch, requester ethcommon.Address, limit int) ([]*Request, error) {
	return m.db.ByRequester(b, requester, limit)
}

// ListExpired returns pending requests that can be cancelled at b.Now().
func (m *Manager) ListExpired(b *state.Batch) ([]*Request, error) {
	return m.db.Expired(b, b.Now().Unix())
}

func (m *Manager) pending(b *state.Batch, id ethcommon.Hash) (*Request, error) {
	r, err := m.GetRedeem(b, id)
	if err != nil {
		return nil, err
	}
	if r.IsTerminal() {
		return nil, fmt.Errorf("%w: redeem %s is %s", agreement.ErrAlreadyCompleted, id, r.Status)
	}
	return r, nil
}

// ExecuteRedeem completes a pending request once the vault's payment to
// the payout address is proven. Anyone may relay the proof.
func (m *Manager) ExecuteRedeem(ctx context.Context, b *state.Batch, caller ethcommon.Address, id ethcommon.Hash, sub *btcproof.Submission) (*Request, error) {
	r, err := m.pending(b, id)
	if err != nil {
		return nil, err
	}

	addr, err := common.DecodeP2PKH(r.BtcAddress, m.cfg.Params)
	if err != nil {
		return nil, err
	}
	payment, err := m.verifier.VerifyPayment(ctx, sub, addr, r.ID)
	if err != nil {
		return nil, err
	}
	if err := btcproof.RequireRecipient(payment); err != nil {
		return nil, err
	}
	if payment.Paid < r.Amount {
		return nil, fmt.Errorf("%w: redeem %s paid %d of %d", agreement.ErrUnderpaid, id, payment.Paid, r.Amount)
	}
	if err := m.st.ClaimBtcTx(b, payment.TxID, r.ID); err != nil {
		return nil, err
	}

	if err := m.vaults.CommitRedeem(b, r.VaultID, r.Amount); err != nil {
		return nil, err
	}
	if _, err := m.ledger.BurnEscrow(b, r.ID); err != nil {
		return nil, err
	}
	if err := m.ledger.Credit(b, agreement.AssetPegged, r.VaultID, r.Fee); err != nil {
		return nil, err
	}

	r.Status = StatusCompleted
	r.Paid = payment.Paid
	r.BtcTxID = payment.TxID
	if err := m.db.Finalize(b, r); err != nil {
		return nil, err
	}

	b.Emit(&agreement.RedeemCompleteEvent{RedeemID: r.ID, Requester: r.Requester, Fee: r.Fee})
	logger.WithFields(logger.Fields{
		"id":     r.ID.String(),
		"caller": caller.String(),
		"paid":   payment.Paid,
		"btcTx":  payment.TxID.String(),
	}).Info("redeem executed")
	return r, nil
}

// CancelRedeem gives the escrow back to the requester and slashes the vault
// once the payment period has passed without a proven payment.
func (m *Manager) CancelRedeem(b *state.Batch, caller ethcommon.Address, id ethcommon.Hash) (*Request, error) {
	r, err := m.pending(b, id)
	if err != nil {
		return nil, err
	}
	if b.Now().Before(r.Deadline()) {
		return nil, fmt.Errorf("%w: redeem %s expires at %s",
			agreement.ErrTimeNotExpired, id, r.Deadline().Format(time.RFC3339))
	}

	if err := m.vaults.ReleaseRedeemReservation(b, r.VaultID, r.Amount); err != nil {
		return nil, err
	}
	if _, err := m.ledger.ReleaseEscrow(b, r.ID); err != nil {
		return nil, err
	}
	slashed, err := m.vaults.SlashCapped(b, r.VaultID, common.Bps(r.Requested, m.cfg.PunishmentBps), r.Requester)
	if err != nil {
		return nil, err
	}

	r.Status = StatusCancelled
	if err := m.db.Finalize(b, r); err != nil {
		return nil, err
	}

	b.Emit(&agreement.RedeemCancelEvent{RedeemID: r.ID})
	logger.WithFields(logger.Fields{
		"id":      r.ID.String(),
		"caller":  caller.String(),
		"slashed": slashed,
	}).Info("redeem cancelled")
	return r, nil
}
