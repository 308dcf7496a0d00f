package issue

import (
	"context"
	"testing"
	"time"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/btcproof"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/TEENet-io/onebtc-go/ledger"
	"github.com/TEENet-io/onebtc-go/relay"
	"github.com/TEENet-io/onebtc-go/state"
	"github.com/TEENet-io/onebtc-go/vault"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	collateral = 10e8
	requested  = 1e8
	feeBps     = 50
	period     = 24 * time.Hour
)

type env struct {
	now    time.Time
	st     *state.StateDB
	l      *ledger.Ledger
	vaults *vault.Registry
	relay  *relay.MemoryRelay
	mgr    *Manager

	vaultID   ethcommon.Address
	requester ethcommon.Address
	height    uint32
}

func newEnv(t *testing.T) (*env, func()) {
	sqlDB := getMemoryDB()
	st, err := state.NewStateDB(sqlDB)
	require.NoError(t, err)
	l, err := ledger.NewLedger(sqlDB)
	require.NoError(t, err)
	reg, err := vault.NewRegistry(sqlDB, l, &vault.Config{MinimumCollateral: 1e8, CollateralRatioPercent: 150})
	require.NoError(t, err)
	idb, err := NewIssueDB(sqlDB)
	require.NoError(t, err)

	params := &chaincfg.RegressionNetParams
	mr := relay.NewMemoryRelay()
	verifier := btcproof.NewVerifier(mr, &btcproof.Config{Params: params, Confirmations: 1})
	mgr := NewManager(idb, st, reg, l, verifier, &Config{Params: params, FeeBps: feeBps, Period: period})

	e := &env{
		now:       time.Unix(1_700_000_000, 0),
		st:        st,
		l:         l,
		vaults:    reg,
		relay:     mr,
		mgr:       mgr,
		vaultID:   common.RandEthAddress(),
		requester: common.RandEthAddress(),
		height:    100,
	}

	_, pub := vault.RandVaultKey()
	_, err = e.update(func(b *state.Batch) error {
		_, err := reg.RegisterVault(b, e.vaultID, pub, collateral)
		return err
	})
	require.NoError(t, err)

	return e, func() {
		idb.Close()
		reg.Close()
		l.Close()
		st.Close()
		sqlDB.Close()
	}
}

func (e *env) update(fn func(b *state.Batch) error) ([]agreement.Event, error) {
	return e.st.Update(context.Background(), e.now, fn)
}

func (e *env) view(t *testing.T, fn func(b *state.Batch) error) {
	require.NoError(t, e.st.View(context.Background(), e.now, fn))
}

func (e *env) request(t *testing.T) *Request {
	var r *Request
	_, err := e.update(func(b *state.Batch) error {
		var err error
		r, err = e.mgr.RequestIssue(b, e.requester, requested, e.vaultID)
		return err
	})
	require.NoError(t, err)
	return r
}

// pay mines a payment of amount to r's deposit address into the relay.
func (e *env) pay(t *testing.T, r *Request, amount int64) *btcproof.Submission {
	addr, err := common.DecodeP2PKH(r.DepositAddress, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	e.height++
	header, sub, err := btcproof.SimulatePayment(addr, amount, r.ID, e.height)
	require.NoError(t, err)
	e.relay.AddHeader(e.height, header)
	return sub
}

func (e *env) execute(caller ethcommon.Address, id ethcommon.Hash, sub *btcproof.Submission) ([]agreement.Event, error) {
	return e.update(func(b *state.Batch) error {
		_, err := e.mgr.ExecuteIssue(context.Background(), b, caller, id, sub)
		return err
	})
}

func (e *env) balance(t *testing.T, asset string, account ethcommon.Address) uint64 {
	var v uint64
	e.view(t, func(b *state.Batch) error {
		var err error
		v, err = e.l.BalanceOf(b, asset, account)
		return err
	})
	return v
}

func (e *env) vault(t *testing.T) *vault.Vault {
	var v *vault.Vault
	e.view(t, func(b *state.Batch) error {
		var err error
		v, err = e.vaults.GetVault(b, e.vaultID)
		return err
	})
	return v
}

func (e *env) issue(t *testing.T, id ethcommon.Hash) *Request {
	var r *Request
	e.view(t, func(b *state.Batch) error {
		var err error
		r, err = e.mgr.GetIssue(b, id)
		return err
	})
	return r
}

func TestClassify(t *testing.T) {
	assert.Equal(t, None{}, Classify(0, 100))
	assert.Equal(t, Partial{Paid: 25, Requested: 100}, Classify(25, 100))
	assert.Equal(t, Full{}, Classify(100, 100))
	assert.Equal(t, Full{}, Classify(101, 100))
}

func TestRequestIssue(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	var r *Request
	events, err := e.update(func(b *state.Batch) error {
		var err error
		r, err = e.mgr.RequestIssue(b, e.requester, requested, e.vaultID)
		return err
	})
	require.NoError(t, err)

	fee := uint64(requested * feeBps / 10000)
	assert.Equal(t, uint64(requested), r.Requested)
	assert.Equal(t, fee, r.Fee)
	assert.Equal(t, requested-fee, r.Amount)
	assert.True(t, common.IsValidBtcAddress(r.DepositAddress, &chaincfg.RegressionNetParams))
	assert.Equal(t, []agreement.Event{&agreement.IssueRequestEvent{
		IssueID:    r.ID,
		Requester:  e.requester,
		VaultID:    e.vaultID,
		Amount:     r.Amount,
		Fee:        fee,
		BtcAddress: r.DepositAddress,
	}}, events)

	assert.Equal(t, uint64(requested), e.vault(t).ToBeIssued)

	stored := e.issue(t, r.ID)
	assert.Equal(t, r, stored)

	// a second request gets a different id and deposit address
	r2 := e.request(t)
	assert.NotEqual(t, r.ID, r2.ID)
	assert.NotEqual(t, r.DepositAddress, r2.DepositAddress)
}

func TestRequestIssueRejected(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	_, err := e.update(func(b *state.Batch) error {
		_, err := e.mgr.RequestIssue(b, e.requester, 0, e.vaultID)
		return err
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidAmount)

	_, err = e.update(func(b *state.Batch) error {
		_, err := e.mgr.RequestIssue(b, e.requester, requested, common.RandEthAddress())
		return err
	})
	assert.ErrorIs(t, err, agreement.ErrVaultNotFound)

	_, err = e.update(func(b *state.Batch) error {
		_, err := e.mgr.RequestIssue(b, e.requester, collateral, e.vaultID)
		return err
	})
	assert.ErrorIs(t, err, agreement.ErrInsufficientCollateral)
	assert.Zero(t, e.vault(t).ToBeIssued)
}

func TestExecuteIssueFullPayment(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)
	sub := e.pay(t, r, requested)

	events, err := e.execute(e.requester, r.ID, sub)
	require.NoError(t, err)

	assert.Equal(t, r.Amount, e.balance(t, agreement.AssetPegged, e.requester))
	assert.Equal(t, r.Fee, e.balance(t, agreement.AssetPegged, e.vaultID))

	v := e.vault(t)
	assert.Equal(t, uint64(requested), v.Issued)
	assert.Zero(t, v.ToBeIssued)
	assert.Equal(t, uint64(collateral), v.Collateral)

	for _, ev := range events {
		assert.NotEqual(t, agreement.EventSlashCollateral, ev.EventName())
	}
	last := events[len(events)-1].(*agreement.IssueCompleteEvent)
	assert.Equal(t, Full{}.Name(), last.Outcome)

	stored := e.issue(t, r.ID)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, uint64(requested), stored.Paid)
}

func TestExecuteIssueOverpayment(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)
	_, err := e.execute(e.requester, r.ID, e.pay(t, r, 2*requested))
	require.NoError(t, err)

	assert.Equal(t, r.Amount, e.balance(t, agreement.AssetPegged, e.requester))
	assert.Equal(t, uint64(requested), e.vault(t).Issued)
}

func TestExecuteIssueQuarterPayment(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)
	events, err := e.execute(e.requester, r.ID, e.pay(t, r, requested/4))
	require.NoError(t, err)

	assert.Equal(t, r.Amount/4, e.balance(t, agreement.AssetPegged, e.requester))
	assert.Equal(t, r.Fee/4, e.balance(t, agreement.AssetPegged, e.vaultID))

	slashed := uint64(requested - requested/4)
	assert.Contains(t, events, &agreement.SlashCollateralEvent{
		VaultID:     e.vaultID,
		Beneficiary: e.requester,
		Amount:      slashed,
	})
	assert.Equal(t, slashed, e.balance(t, agreement.AssetCollateral, e.requester))

	v := e.vault(t)
	assert.Equal(t, uint64(collateral)-slashed, v.Collateral)
	assert.Equal(t, uint64(requested/4), v.Issued)
	assert.Zero(t, v.ToBeIssued)
}

func TestExecuteIssueNoPayment(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)

	// the tx carries the tag but pays some other address
	other := e.request(t)
	sub := e.pay(t, other, requested)
	_, err := e.execute(e.requester, r.ID, sub)
	assert.ErrorIs(t, err, agreement.ErrMissingTag)

	// tagged for r but paying other's deposit address
	addr, err := common.DecodeP2PKH(other.DepositAddress, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	e.height++
	header, sub, err := btcproof.SimulatePayment(addr, requested, r.ID, e.height)
	require.NoError(t, err)
	e.relay.AddHeader(e.height, header)

	_, err = e.execute(e.requester, r.ID, sub)
	require.NoError(t, err)

	assert.Zero(t, e.balance(t, agreement.AssetPegged, e.requester))
	assert.Equal(t, uint64(requested), e.balance(t, agreement.AssetCollateral, e.requester))
	v := e.vault(t)
	assert.Equal(t, uint64(collateral-requested), v.Collateral)
	assert.Zero(t, v.Issued)
	// other is still reserved
	assert.Equal(t, uint64(requested), v.ToBeIssued)
}

func TestExecuteIssueInvalidExecutor(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)
	sub := e.pay(t, r, requested)
	before := e.vault(t)

	_, err := e.execute(common.RandEthAddress(), r.ID, sub)
	assert.ErrorIs(t, err, agreement.ErrInvalidExecutor)

	assert.Equal(t, before, e.vault(t))
	assert.Zero(t, e.balance(t, agreement.AssetPegged, e.requester))
	assert.Equal(t, StatusPending, e.issue(t, r.ID).Status)

	// the requester can still execute with the same proof
	_, err = e.execute(e.requester, r.ID, sub)
	assert.NoError(t, err)
}

func TestExecuteIssueTwice(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)
	sub := e.pay(t, r, requested)
	_, err := e.execute(e.requester, r.ID, sub)
	require.NoError(t, err)

	_, err = e.execute(e.requester, r.ID, sub)
	assert.ErrorIs(t, err, agreement.ErrAlreadyCompleted)
	assert.Equal(t, r.Amount, e.balance(t, agreement.AssetPegged, e.requester))
	assert.Equal(t, uint64(requested), e.vault(t).Issued)
}

func TestExecuteIssueProofFailures(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)

	// unknown block
	addr, err := common.DecodeP2PKH(r.DepositAddress, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	_, sub, err := btcproof.SimulatePayment(addr, requested, r.ID, 500)
	require.NoError(t, err)
	_, err = e.execute(e.requester, r.ID, sub)
	assert.ErrorIs(t, err, agreement.ErrUnknownBlock)

	// broken merkle path
	sub = e.pay(t, r, requested)
	sub.Proof[0] ^= 0xff
	_, err = e.execute(e.requester, r.ID, sub)
	assert.ErrorIs(t, err, agreement.ErrInvalidProof)

	_, err = e.execute(e.requester, common.RandBytes32(), sub)
	assert.ErrorIs(t, err, agreement.ErrRequestNotFound)

	assert.Equal(t, StatusPending, e.issue(t, r.ID).Status)
	assert.Equal(t, uint64(requested), e.vault(t).ToBeIssued)
}

func TestExecuteIssuePaymentReused(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)
	sub := e.pay(t, r, requested)
	txid, err := sub.TxHash()
	require.NoError(t, err)
	_, err = e.update(func(b *state.Batch) error {
		return e.st.ClaimBtcTx(b, txid, common.RandBytes32())
	})
	require.NoError(t, err)

	_, err = e.execute(e.requester, r.ID, sub)
	assert.ErrorIs(t, err, agreement.ErrPaymentReused)
}

func TestCancelIssue(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	// requester cancels right away
	r := e.request(t)
	events, err := e.update(func(b *state.Batch) error {
		_, err := e.mgr.CancelIssue(b, e.requester, r.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []agreement.Event{&agreement.IssueCancelEvent{IssueID: r.ID}}, events)
	assert.Zero(t, e.vault(t).ToBeIssued)
	assert.Equal(t, StatusCancelled, e.issue(t, r.ID).Status)

	_, err = e.update(func(b *state.Batch) error {
		_, err := e.mgr.CancelIssue(b, e.requester, r.ID)
		return err
	})
	assert.ErrorIs(t, err, agreement.ErrAlreadyCompleted)

	// the vault has to wait for the period, a third party may never cancel
	r = e.request(t)
	stranger := common.RandEthAddress()
	_, err = e.update(func(b *state.Batch) error {
		_, err := e.mgr.CancelIssue(b, e.vaultID, r.ID)
		return err
	})
	assert.ErrorIs(t, err, agreement.ErrTimeNotExpired)

	e.now = e.now.Add(period)
	var expired []*Request
	e.view(t, func(b *state.Batch) error {
		var err error
		expired, err = e.mgr.ListExpired(b)
		return err
	})
	require.Len(t, expired, 1)
	assert.Equal(t, r.ID, expired[0].ID)

	_, err = e.update(func(b *state.Batch) error {
		_, err := e.mgr.CancelIssue(b, stranger, r.ID)
		return err
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidExecutor)
	assert.Equal(t, StatusPending, e.issue(t, r.ID).Status)

	_, err = e.update(func(b *state.Batch) error {
		_, err := e.mgr.CancelIssue(b, e.vaultID, r.ID)
		return err
	})
	require.NoError(t, err)

	v := e.vault(t)
	assert.Zero(t, v.ToBeIssued)
	assert.Equal(t, uint64(collateral), v.Collateral)

	// a cancelled request cannot be executed
	_, err = e.execute(e.requester, r.ID, e.pay(t, r, requested))
	assert.ErrorIs(t, err, agreement.ErrAlreadyCompleted)
}

func TestCancelIssuePaidAfterPeriod(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	r := e.request(t)
	sub := e.pay(t, r, requested)
	e.now = e.now.Add(2 * period)

	_, err := e.update(func(b *state.Batch) error {
		_, err := e.mgr.CancelIssue(b, common.RandEthAddress(), r.ID)
		return err
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidExecutor)

	// the requester can still claim what was paid
	_, err = e.execute(e.requester, r.ID, sub)
	require.NoError(t, err)
	assert.Equal(t, r.Amount, e.balance(t, agreement.AssetPegged, e.requester))
}

func TestCancelIssueRequestedMidSecond(t *testing.T) {
	e, cleanup := newEnv(t)
	defer cleanup()

	e.now = e.now.Add(900 * time.Millisecond)
	r := e.request(t)
	assert.False(t, r.CreatedAt.Before(e.now))

	cancel := func() error {
		_, err := e.update(func(b *state.Batch) error {
			_, err := e.mgr.CancelIssue(b, e.vaultID, r.ID)
			return err
		})
		return err
	}
	expired := func() []*Request {
		var rs []*Request
		e.view(t, func(b *state.Batch) error {
			var err error
			rs, err = e.mgr.ListExpired(b)
			return err
		})
		return rs
	}

	e.now = e.now.Add(period - 400*time.Millisecond)
	assert.ErrorIs(t, cancel(), agreement.ErrTimeNotExpired)
	assert.Empty(t, expired())

	e.now = e.now.Add(time.Second)
	assert.Len(t, expired(), 1)
	require.NoError(t, cancel())
	assert.Equal(t, StatusCancelled, e.issue(t, r.ID).Status)
}
