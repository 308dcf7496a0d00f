package bridge

import (
	"context"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/btcproof"
	"github.com/TEENet-io/onebtc-go/eventlog"
	"github.com/TEENet-io/onebtc-go/issue"
	"github.com/TEENet-io/onebtc-go/redeem"
	"github.com/TEENet-io/onebtc-go/state"
	"github.com/TEENet-io/onebtc-go/vault"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Vaults

// RegisterVault registers caller as a vault. collateral is attached to the
// call and does not come from a ledger balance.
func (br *Bridge) RegisterVault(ctx context.Context, caller ethcommon.Address, publicKey []byte, collateral uint64) (*vault.Vault, error) {
	var v *vault.Vault
	err := br.update(ctx, "RegisterVault", func(b *state.Batch) error {
		var err error
		v, err = br.vaults.RegisterVault(b, caller, publicKey, collateral)
		return err
	})
	return v, err
}

func (br *Bridge) LockCollateral(ctx context.Context, caller ethcommon.Address, amount uint64) (*vault.Vault, error) {
	var v *vault.Vault
	err := br.update(ctx, "LockCollateral", func(b *state.Batch) error {
		var err error
		v, err = br.vaults.LockAdditionalCollateral(b, caller, amount)
		return err
	})
	return v, err
}

func (br *Bridge) WithdrawCollateral(ctx context.Context, caller ethcommon.Address, amount uint64) (*vault.Vault, error) {
	var v *vault.Vault
	err := br.update(ctx, "WithdrawCollateral", func(b *state.Batch) error {
		var err error
		v, err = br.vaults.WithdrawCollateral(b, caller, amount)
		return err
	})
	return v, err
}

func (br *Bridge) GetVault(ctx context.Context, id ethcommon.Address) (*vault.Vault, error) {
	var v *vault.Vault
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		v, err = br.vaults.GetVault(b, id)
		return err
	})
	return v, err
}

func (br *Bridge) ListVaults(ctx context.Context) ([]*vault.Vault, error) {
	var vs []*vault.Vault
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		vs, err = br.vaults.ListVaults(b)
		return err
	})
	return vs, err
}

// Issue

func (br *Bridge) RequestIssue(ctx context.Context, caller ethcommon.Address, amount uint64, vaultID ethcommon.Address) (*issue.Request, error) {
	var r *issue.Request
	err := br.update(ctx, "RequestIssue", func(b *state.Batch) error {
		var err error
		r, err = br.issues.RequestIssue(b, caller, amount, vaultID)
		return err
	})
	return r, err
}

func (br *Bridge) ExecuteIssue(ctx context.Context, caller ethcommon.Address, id ethcommon.Hash, sub *btcproof.Submission) (*issue.Request, error) {
	var r *issue.Request
	err := br.update(ctx, "ExecuteIssue", func(b *state.Batch) error {
		var err error
		r, err = br.issues.ExecuteIssue(ctx, b, caller, id, sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	br.issueCache.Add(r.ID, r)
	return r, nil
}

func (br *Bridge) CancelIssue(ctx context.Context, caller ethcommon.Address, id ethcommon.Hash) (*issue.Request, error) {
	var r *issue.Request
	err := br.update(ctx, "CancelIssue", func(b *state.Batch) error {
		var err error
		r, err = br.issues.CancelIssue(b, caller, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	br.issueCache.Add(r.ID, r)
	return r, nil
}

func (br *Bridge) GetIssue(ctx context.Context, id ethcommon.Hash) (*issue.Request, error) {
	if r, ok := br.issueCache.Get(id); ok {
		return r, nil
	}

	var r *issue.Request
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		r, err = br.issues.GetIssue(b, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if r.IsTerminal() {
		br.issueCache.Add(r.ID, r)
	}
	return r, nil
}

func (br *Bridge) ListIssues(ctx context.Context, requester ethcommon.Address, limit int) ([]*issue.Request, error) {
	var rs []*issue.Request
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		rs, err = br.issues.ListIssues(b, requester, limit)
		return err
	})
	return rs, err
}

// Redeem

func (br *Bridge) RequestRedeem(ctx context.Context, caller ethcommon.Address, amount uint64, btcAddress string, vaultID ethcommon.Address) (*redeem.Request, error) {
	var r *redeem.Request
	err := br.update(ctx, "RequestRedeem", func(b *state.Batch) error {
		var err error
		r, err = br.redeems.RequestRedeem(b, caller, amount, btcAddress, vaultID)
		return err
	})
	return r, err
}

func (br *Bridge) ExecuteRedeem(ctx context.Context, caller ethcommon.Address, id ethcommon.Hash, sub *btcproof.Submission) (*redeem.Request, error) {
	var r *redeem.Request
	err := br.update(ctx, "ExecuteRedeem", func(b *state.Batch) error {
		var err error
		r, err = br.redeems.ExecuteRedeem(ctx, b, caller, id, sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	br.redeemCache.Add(r.ID, r)
	return r, nil
}

func (br *Bridge) CancelRedeem(ctx context.Context, caller ethcommon.Address, id ethcommon.Hash) (*redeem.Request, error) {
	var r *redeem.Request
	err := br.update(ctx, "CancelRedeem", func(b *state.Batch) error {
		var err error
		r, err = br.redeems.CancelRedeem(b, caller, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	br.redeemCache.Add(r.ID, r)
	return r, nil
}

func (br *Bridge) GetRedeem(ctx context.Context, id ethcommon.Hash) (*redeem.Request, error) {
	if r, ok := br.redeemCache.Get(id); ok {
		return r, nil
	}

	var r *redeem.Request
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		r, err = br.redeems.GetRedeem(b, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if r.IsTerminal() {
		br.redeemCache.Add(r.ID, r)
	}
	return r, nil
}

func (br *Bridge) ListRedeems(ctx context.Context, requester ethcommon.Address, limit int) ([]*redeem.Request, error) {
	var rs []*redeem.Request
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		rs, err = br.redeems.ListRedeems(b, requester, limit)
		return err
	})
	return rs, err
}

// Expired returns the pending requests whose period has passed.
func (br *Bridge) Expired(ctx context.Context) ([]*issue.Request, []*redeem.Request, error) {
	var (
		issues  []*issue.Request
		redeems []*redeem.Request
	)
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		if issues, err = br.issues.ListExpired(b); err != nil {
			return err
		}
		redeems, err = br.redeems.ListExpired(b)
		return err
	})
	return issues, redeems, err
}

// Ledger

func (br *Bridge) Transfer(ctx context.Context, from, to ethcommon.Address, amount uint64) error {
	return br.update(ctx, "Transfer", func(b *state.Batch) error {
		return br.ledger.Transfer(b, agreement.AssetPegged, from, to, amount)
	})
}

// Balance is what an account holds of each asset.
type Balance struct {
	Pegged     uint64 `json:"onebtc"`
	Collateral uint64 `json:"collateral"`
}

func (br *Bridge) BalanceOf(ctx context.Context, account ethcommon.Address) (*Balance, error) {
	var bal Balance
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		if bal.Pegged, err = br.ledger.BalanceOf(b, agreement.AssetPegged, account); err != nil {
			return err
		}
		bal.Collateral, err = br.ledger.BalanceOf(b, agreement.AssetCollateral, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

func (br *Bridge) TotalSupply(ctx context.Context) (uint64, error) {
	var supply uint64
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		supply, err = br.ledger.TotalSupply(b, agreement.AssetPegged)
		return err
	})
	return supply, err
}

// Events pages through the observation log.
func (br *Bridge) Events(ctx context.Context, afterSeq int64, limit int) ([]*eventlog.Record, error) {
	var records []*eventlog.Record
	err := br.view(ctx, func(b *state.Batch) error {
		var err error
		records, err = br.events.List(b, afterSeq, limit)
		return err
	})
	return records, err
}
