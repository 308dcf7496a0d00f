package btcproof

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Submission is the evidence a caller hands in for a BTC payment.
type Submission struct {
	RawTx []byte
	// Proof is the merkle path of the tx, 32-byte siblings leaf to root.
	Proof []byte
	// Locator is height<<32 | txIndex, see MakeLocator.
	Locator uint64
	// Header is the 80-byte header of the including block.
	Header []byte
}

// TxHash parses RawTx and returns its txid.
func (s *Submission) TxHash() (chainhash.Hash, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(s.RawTx)); err != nil {
		return chainhash.Hash{}, err
	}
	return tx.TxHash(), nil
}

// Payment is the result of a successful verification.
type Payment struct {
	TxID    chainhash.Hash
	Height  uint32
	TxIndex uint32
	// Paid is the total value of all outputs paying the expected address.
	Paid uint64
}
