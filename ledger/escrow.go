package ledger

import (
	"database/sql"
	"fmt"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/state"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type escrowEntry struct {
	asset  string
	owner  ethcommon.Address
	amount uint64
}

// Escrow moves pegged tokens of owner into an escrow keyed by id.
func (l *Ledger) Escrow(b *state.Batch, id ethcommon.Hash, owner ethcommon.Address, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: zero escrow", agreement.ErrInvalidAmount)
	}
	if err := l.Debit(b, agreement.AssetPegged, owner, amount); err != nil {
		return err
	}

	stmt, err := l.stmtCache.Tx(b.Tx(), queryPutEscrow)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(id.Hex()[2:], agreement.AssetPegged, hexOf(owner), int64(amount))
	return err
}

// EscrowOf returns the owner and amount held under id.
func (l *Ledger) EscrowOf(b *state.Batch, id ethcommon.Hash) (ethcommon.Address, uint64, bool, error) {
	e, ok, err := l.getEscrow(b, id)
	if err != nil || !ok {
		return ethcommon.Address{}, 0, ok, err
	}
	return e.owner, e.amount, true, nil
}

func (l *Ledger) getEscrow(b *state.Batch, id ethcommon.Hash) (*escrowEntry, bool, error) {
	stmt, err := l.stmtCache.Tx(b.Tx(), queryGetEscrow)
	if err != nil {
		return nil, false, err
	}

	var (
		e      escrowEntry
		owner  string
		amount int64
	)
	if err := stmt.QueryRow(id.Hex()[2:]).Scan(&e.asset, &owner, &amount); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	e.owner = ethcommon.HexToAddress(owner)
	e.amount = uint64(amount)
	return &e, true, nil
}

func (l *Ledger) takeEscrow(b *state.Batch, id ethcommon.Hash) (*escrowEntry, error) {
	e, ok, err := l.getEscrow(b, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no escrow for %s", id)
	}

	stmt, err := l.stmtCache.Tx(b.Tx(), queryDelEscrow)
	if err != nil {
		return nil, err
	}
	if _, err := stmt.Exec(id.Hex()[2:]); err != nil {
		return nil, err
	}
	return e, nil
}

// ReleaseEscrow gives the escrowed tokens back to their owner.
func (l *Ledger) ReleaseEscrow(b *state.Batch, id ethcommon.Hash) (uint64, error) {
	e, err := l.takeEscrow(b, id)
	if err != nil {
		return 0, err
	}
	return e.amount, l.Credit(b, e.asset, e.owner, e.amount)
}

// BurnEscrow destroys the escrowed tokens.
func (l *Ledger) BurnEscrow(b *state.Batch, id ethcommon.Hash) (uint64, error) {
	e, err := l.takeEscrow(b, id)
	if err != nil {
		return 0, err
	}
	return e.amount, nil
}
