// Package vault owns vault identity, collateral and capacity accounting.
// Registry is the only writer of vault rows; issue and redeem reach the
// counters through its narrow contract.
package vault

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/btcaddr"
	"github.com/TEENet-io/onebtc-go/ledger"
	"github.com/TEENet-io/onebtc-go/state"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

type Config struct {
	// Least collateral a vault registers with.
	MinimumCollateral uint64

	// Collateral needed per 100 units of capacity. Must be at least 100.
	CollateralRatioPercent uint64
}

type Registry struct {
	db     *VaultDB
	ledger *ledger.Ledger
	cfg    *Config
}

func NewRegistry(db *sql.DB, l *ledger.Ledger, cfg *Config) (*Registry, error) {
	if cfg.CollateralRatioPercent < 100 {
		return nil, fmt.Errorf("collateral ratio must be at least 100%%, got %d%%", cfg.CollateralRatioPercent)
	}
	vdb, err := NewVaultDB(db)
	if err != nil {
		return nil, err
	}
	return &Registry{db: vdb, ledger: l, cfg: cfg}, nil
}

func (r *Registry) Close() {
	r.db.Close()
}

func (r *Registry) Config() *Config {
	return r.cfg
}

// RegisterVault creates the vault of caller. The collateral comes with the
// call, it is not taken from a ledger balance.
func (r *Registry) RegisterVault(b *state.Batch, caller ethcommon.Address, publicKey []byte, collateral uint64) (*Vault, error) {
	pub, err := btcaddr.ParseVaultKey(publicKey)
	if err != nil {
		return nil, err
	}
	if collateral < r.cfg.MinimumCollateral {
		return nil, fmt.Errorf("%w: collateral %d below minimum %d",
			agreement.ErrInsufficientCollateral, collateral, r.cfg.MinimumCollateral)
	}
	if collateral > math.MaxInt64 {
		return nil, fmt.Errorf("%w: collateral too large", agreement.ErrInvalidAmount)
	}

	_, ok, err := r.db.Get(b, caller)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("%w: %s", agreement.ErrDuplicateVault, caller)
	}

	v := &Vault{
		ID:         caller,
		PublicKey:  pub.SerializeUncompressed(),
		Collateral: collateral,
		CreatedAt:  b.Now(),
	}
	if err := r.db.Insert(b, v); err != nil {
		return nil, err
	}

	b.Emit(&agreement.VaultRegisteredEvent{VaultID: caller, Collateral: collateral})
	logger.WithFields(logger.Fields{
		"vault":      caller.String(),
		"collateral": collateral,
	}).Info("vault registered")
	return v, nil
}

func (r *Registry) GetVault(b *state.Batch, id ethcommon.Address) (*Vault, error) {
	v, ok, err := r.db.Get(b, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", agreement.ErrVaultNotFound, id)
	}
	return v, nil
}

func (r *Registry) ListVaults(b *state.Batch) ([]*Vault, error) {
	return r.db.List(b)
}

// update loads the vault, applies fn and stores the result.
func (r *Registry) update(b *state.Batch, id ethcommon.Address, fn func(v *Vault) error) (*Vault, error) {
	v, err := r.GetVault(b, id)
	if err != nil {
		return nil, err
	}
	if err := fn(v); err != nil {
		return nil, err
	}
	if v.Used() > v.Limit(r.cfg.CollateralRatioPercent) {
		return nil, fmt.Errorf("%w: vault %s would back %d with a limit of %d",
			agreement.ErrInsufficientCollateral, id, v.Used(), v.Limit(r.cfg.CollateralRatioPercent))
	}
	return v, r.db.Update(b, v)
}

func (r *Registry) LockAdditionalCollateral(b *state.Batch, caller ethcommon.Address, amount uint64) (*Vault, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: zero collateral", agreement.ErrInvalidAmount)
	}
	v, err := r.update(b, caller, func(v *Vault) error {
		if amount > math.MaxInt64-v.Collateral {
			return fmt.Errorf("%w: collateral overflow", agreement.ErrInvalidAmount)
		}
		v.Collateral += amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.Emit(&agreement.CollateralLockedEvent{VaultID: caller, Amount: amount})
	return v, nil
}

// WithdrawCollateral moves free collateral to the vault's ledger balance.
func (r *Registry) WithdrawCollateral(b *state.Batch, caller ethcommon.Address, amount uint64) (*Vault, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: zero collateral", agreement.ErrInvalidAmount)
	}
	v, err := r.update(b, caller, func(v *Vault) error {
		if free := v.FreeCollateral(r.cfg.CollateralRatioPercent); amount > free {
			return fmt.Errorf("%w: withdraw %d, free %d", agreement.ErrInsufficientCollateral, amount, free)
		}
		v.Collateral -= amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := r.ledger.Credit(b, agreement.AssetCollateral, caller, amount); err != nil {
		return nil, err
	}
	b.Emit(&agreement.CollateralWithdrawnEvent{VaultID: caller, Amount: amount})
	return v, nil
}

func (r *Registry) ReserveIssueCapacity(b *state.Batch, id ethcommon.Address, amount uint64) error {
	_, err := r.update(b, id, func(v *Vault) error {
		if issuable := v.Issuable(r.cfg.CollateralRatioPercent); amount > issuable {
			return fmt.Errorf("%w: vault %s can issue %d, requested %d",
				agreement.ErrInsufficientCollateral, id, issuable, amount)
		}
		v.ToBeIssued += amount
		return nil
	})
	return err
}

func (r *Registry) CommitIssue(b *state.Batch, id ethcommon.Address, amount uint64) error {
	_, err := r.update(b, id, func(v *Vault) error {
		if v.ToBeIssued < amount {
			return fmt.Errorf("%w: commit issue %d of %d reserved", agreement.ErrCapacityUnderflow, amount, v.ToBeIssued)
		}
		v.ToBeIssued -= amount
		v.Issued += amount
		return nil
	})
	return err
}

func (r *Registry) ReleaseIssueReservation(b *state.Batch, id ethcommon.Address, amount uint64) error {
	_, err := r.update(b, id, func(v *Vault) error {
		if v.ToBeIssued < amount {
			return fmt.Errorf("%w: release issue %d of %d reserved", agreement.ErrCapacityUnderflow, amount, v.ToBeIssued)
		}
		v.ToBeIssued -= amount
		return nil
	})
	return err
}

func (r *Registry) ReserveRedeemCapacity(b *state.Batch, id ethcommon.Address, amount uint64) error {
	_, err := r.update(b, id, func(v *Vault) error {
		if v.Issued < amount {
			return fmt.Errorf("%w: vault %s has issued %d, redeem %d",
				agreement.ErrInsufficientIssued, id, v.Issued, amount)
		}
		v.Issued -= amount
		v.ToBeRedeemed += amount
		return nil
	})
	return err
}

func (r *Registry) CommitRedeem(b *state.Batch, id ethcommon.Address, amount uint64) error {
	_, err := r.update(b, id, func(v *Vault) error {
		if v.ToBeRedeemed < amount {
			return fmt.Errorf("%w: commit redeem %d of %d", agreement.ErrCapacityUnderflow, amount, v.ToBeRedeemed)
		}
		v.ToBeRedeemed -= amount
		return nil
	})
	return err
}

func (r *Registry) ReleaseRedeemReservation(b *state.Batch, id ethcommon.Address, amount uint64) error {
	_, err := r.update(b, id, func(v *Vault) error {
		if v.ToBeRedeemed < amount {
			return fmt.Errorf("%w: release redeem %d of %d", agreement.ErrCapacityUnderflow, amount, v.ToBeRedeemed)
		}
		v.ToBeRedeemed -= amount
		v.Issued += amount
		return nil
	})
	return err
}

// Slash moves amount of collateral to beneficiary. Only free collateral
// can be slashed so the backing of the used capacity stays intact.
func (r *Registry) Slash(b *state.Batch, id ethcommon.Address, amount uint64, beneficiary ethcommon.Address) error {
	if amount == 0 {
		return nil
	}
	_, err := r.update(b, id, func(v *Vault) error {
		if free := v.FreeCollateral(r.cfg.CollateralRatioPercent); amount > free {
			return fmt.Errorf("%w: slash %d, free %d", agreement.ErrInsufficientCollateral, amount, free)
		}
		v.Collateral -= amount
		return nil
	})
	if err != nil {
		return err
	}
	if err := r.ledger.Credit(b, agreement.AssetCollateral, beneficiary, amount); err != nil {
		return err
	}

	b.Emit(&agreement.SlashCollateralEvent{VaultID: id, Beneficiary: beneficiary, Amount: amount})
	logger.WithFields(logger.Fields{
		"vault":       id.String(),
		"beneficiary": beneficiary.String(),
		"amount":      amount,
	}).Info("collateral slashed")
	return nil
}

// SlashCapped slashes at most the free collateral and returns what was
// actually slashed.
func (r *Registry) SlashCapped(b *state.Batch, id ethcommon.Address, amount uint64, beneficiary ethcommon.Address) (uint64, error) {
	v, err := r.GetVault(b, id)
	if err != nil {
		return 0, err
	}
	slashed := amount
	if free := v.FreeCollateral(r.cfg.CollateralRatioPercent); slashed > free {
		logger.WithFields(logger.Fields{
			"vault":     id.String(),
			"requested": amount,
			"free":      free,
		}).Warn("vault under-collateralized, slash capped")
		slashed = free
	}
	return slashed, r.Slash(b, id, slashed, beneficiary)
}
