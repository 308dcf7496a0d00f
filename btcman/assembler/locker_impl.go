package assembler

/*
Locking scripts need no knowledge of private keys, so payments to the bridge
can be assembled here without any wallet.

A bridge payment has one or more outputs paying the target address and one
OP_RETURN output carrying the 32-byte request id.
*/

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

func AddP2PKH(tx *wire.MsgTx, dst_chain_cfg *chaincfg.Params, dst_addr string, amount int64) (*wire.MsgTx, error) {
	btcDstAddress, err := btcutil.DecodeAddress(dst_addr, dst_chain_cfg)
	if err != nil {
		return nil, err
	}
	// Check if dst_addr is really a P2PKH address
	realAddress, ok := btcDstAddress.(*btcutil.AddressPubKeyHash)
	if !ok {
		return nil, fmt.Errorf("%s is not a P2PKH (legacy) address", dst_addr)
	}
	return AddPayTo(tx, realAddress, amount)
}

// AddPayTo adds an output paying amount satoshi to an already decoded address.
func AddPayTo(tx *wire.MsgTx, addr btcutil.Address, amount int64) (*wire.MsgTx, error) {
	txOutScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}
	tx.AddTxOut(wire.NewTxOut(amount, txOutScript))
	return tx, nil
}

// AddRequestTag adds a zero-value OP_RETURN output carrying the request id.
func AddRequestTag(tx *wire.MsgTx, id ethcommon.Hash) (*wire.MsgTx, error) {
	script, err := txscript.NullDataScript(id[:])
	if err != nil {
		return nil, err
	}
	tx.AddTxOut(wire.NewTxOut(0, script))
	return tx, nil
}

// AddInput spends prev:idx. The input is left unsigned.
func AddInput(tx *wire.MsgTx, prev chainhash.Hash, idx uint32) *wire.MsgTx {
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev, idx), nil, nil))
	return tx
}

// NewPayment assembles an unsigned payment of amount to addr tagged with id.
func NewPayment(prev chainhash.Hash, idx uint32, addr btcutil.Address, amount int64, id ethcommon.Hash) (*wire.MsgTx, error) {
	tx := AddInput(wire.NewMsgTx(wire.TxVersion), prev, idx)
	if _, err := AddPayTo(tx, addr, amount); err != nil {
		return nil, err
	}
	return AddRequestTag(tx, id)
}
