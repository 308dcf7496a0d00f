// Package ledger keeps fungible token balances: the BTC-pegged token and the
// collateral token. It knows nothing about vaults or requests beyond escrow
// ids.
package ledger

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/database"
	"github.com/TEENet-io/onebtc-go/state"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	queryBalance     = `SELECT amount FROM balance WHERE asset = ? AND account = ?`
	querySetBalance  = `INSERT OR REPLACE INTO balance (asset, account, amount) VALUES (?, ?, ?)`
	querySupply      = `SELECT COALESCE(SUM(amount), 0) FROM balance WHERE asset = ?`
	queryEscrowTotal = `SELECT COALESCE(SUM(amount), 0) FROM escrow WHERE asset = ?`
	queryGetEscrow   = `SELECT asset, owner, amount FROM escrow WHERE id = ?`
	queryPutEscrow   = `INSERT INTO escrow (id, asset, owner, amount) VALUES (?, ?, ?, ?)`
	queryDelEscrow   = `DELETE FROM escrow WHERE id = ?`
)

// amounts are stored as sqlite INTEGER
const maxAmount = math.MaxInt64

type Ledger struct {
	stmtCache *database.StmtCache
}

func NewLedger(db *sql.DB) (*Ledger, error) {
	if _, err := db.Exec(balanceTable + escrowTable); err != nil {
		return nil, err
	}

	sc := database.NewStmtCache(db)
	if err := sc.Warm(queryBalance, querySetBalance, querySupply, queryEscrowTotal,
		queryGetEscrow, queryPutEscrow, queryDelEscrow); err != nil {
		return nil, err
	}
	return &Ledger{stmtCache: sc}, nil
}

func (l *Ledger) Close() {
	l.stmtCache.Clear()
}

func hexOf(account ethcommon.Address) string {
	return ethcommon.Bytes2Hex(account[:])
}

func (l *Ledger) BalanceOf(b *state.Batch, asset string, account ethcommon.Address) (uint64, error) {
	stmt, err := l.stmtCache.Tx(b.Tx(), queryBalance)
	if err != nil {
		return 0, err
	}

	var amount int64
	if err := stmt.QueryRow(asset, hexOf(account)).Scan(&amount); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return uint64(amount), nil
}

func (l *Ledger) setBalance(b *state.Batch, asset string, account ethcommon.Address, amount uint64) error {
	stmt, err := l.stmtCache.Tx(b.Tx(), querySetBalance)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(asset, hexOf(account), int64(amount))
	return err
}

// Credit adds amount to the balance of account.
func (l *Ledger) Credit(b *state.Batch, asset string, account ethcommon.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	bal, err := l.BalanceOf(b, asset, account)
	if err != nil {
		return err
	}
	if amount > maxAmount-bal {
		return fmt.Errorf("%w: balance overflow", agreement.ErrInvalidAmount)
	}
	return l.setBalance(b, asset, account, bal+amount)
}

// Debit removes amount from the balance of account.
func (l *Ledger) Debit(b *state.Batch, asset string, account ethcommon.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	bal, err := l.BalanceOf(b, asset, account)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d", agreement.ErrInsufficientBalance, account, bal, asset, amount)
	}
	return l.setBalance(b, asset, account, bal-amount)
}

// Mint creates pegged tokens.
func (l *Ledger) Mint(b *state.Batch, account ethcommon.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := l.Credit(b, agreement.AssetPegged, account, amount); err != nil {
		return err
	}
	b.Emit(&agreement.MintEvent{Account: account, Amount: amount})
	return nil
}

func (l *Ledger) Transfer(b *state.Batch, asset string, from, to ethcommon.Address, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: zero transfer", agreement.ErrInvalidAmount)
	}
	if err := l.Debit(b, asset, from, amount); err != nil {
		return err
	}
	return l.Credit(b, asset, to, amount)
}

// TotalSupply is the sum of all balances plus everything in escrow.
func (l *Ledger) TotalSupply(b *state.Batch, asset string) (uint64, error) {
	var total uint64
	for _, q := range []string{querySupply, queryEscrowTotal} {
		stmt, err := l.stmtCache.Tx(b.Tx(), q)
		if err != nil {
			return 0, err
		}
		var sum int64
		if err := stmt.QueryRow(asset).Scan(&sum); err != nil {
			return 0, err
		}
		total += uint64(sum)
	}
	return total, nil
}
