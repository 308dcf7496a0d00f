// Package btcproof checks that a BTC transaction is included in a block
// known to the relay and that it pays a given address for a given request.
package btcproof

import (
	"bytes"
	"context"
	"fmt"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

type Config struct {
	Params *chaincfg.Params

	// Confirmations is the number of blocks, the including block counted,
	// the relay must know on top of the including block's parent.
	// Zero and one both accept the tip.
	Confirmations uint32
}

type Verifier struct {
	relay agreement.Relay
	cfg   *Config
}

func NewVerifier(relay agreement.Relay, cfg *Config) *Verifier {
	return &Verifier{relay: relay, cfg: cfg}
}

// VerifyInclusion parses the tx and checks it against the relay.
func (v *Verifier) VerifyInclusion(ctx context.Context, sub *Submission) (*wire.MsgTx, *Payment, error) {
	height, txIndex := SplitLocator(sub.Locator)

	// a 64-byte tx is indistinguishable from an inner merkle node
	if len(sub.RawTx) == 64 {
		return nil, nil, fmt.Errorf("%w: 64-byte transaction", agreement.ErrInvalidProof)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	r := bytes.NewReader(sub.RawTx)
	if err := tx.Deserialize(r); err != nil {
		return nil, nil, fmt.Errorf("%w: cannot parse tx: %v", agreement.ErrInvalidProof, err)
	}
	if r.Len() != 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes after tx", agreement.ErrInvalidProof, r.Len())
	}

	var header wire.BlockHeader
	if len(sub.Header) != wire.MaxBlockHeaderPayload {
		return nil, nil, fmt.Errorf("%w: header must be %d bytes", agreement.ErrInvalidProof, wire.MaxBlockHeaderPayload)
	}
	if err := header.Deserialize(bytes.NewReader(sub.Header)); err != nil {
		return nil, nil, fmt.Errorf("%w: cannot parse header: %v", agreement.ErrInvalidProof, err)
	}

	known, ok, err := v.relay.HeaderAt(ctx, height)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: height %d", agreement.ErrUnknownBlock, height)
	}
	if err := v.checkConfirmations(ctx, height); err != nil {
		return nil, nil, err
	}
	if known.BlockHash() != header.BlockHash() {
		return nil, nil, fmt.Errorf("%w: header does not match relay at height %d", agreement.ErrInvalidProof, height)
	}

	txid := tx.TxHash()
	if !VerifyMerkleProof(txid, header.MerkleRoot, sub.Proof, txIndex) {
		return nil, nil, fmt.Errorf("%w: merkle path of %s", agreement.ErrInvalidProof, txid)
	}

	logger.WithFields(logger.Fields{
		"txid":   txid.String(),
		"height": height,
		"index":  txIndex,
	}).Debug("tx inclusion verified")

	return tx, &Payment{TxID: txid, Height: height, TxIndex: txIndex}, nil
}

func (v *Verifier) checkConfirmations(ctx context.Context, height uint32) error {
	if v.cfg.Confirmations <= 1 {
		return nil
	}
	best, err := v.relay.BestHeight(ctx)
	if err != nil {
		return err
	}
	if best < height || best-height+1 < v.cfg.Confirmations {
		return fmt.Errorf("%w: height %d has %d of %d confirmations",
			agreement.ErrUnknownBlock, height, int64(best)-int64(height)+1, v.cfg.Confirmations)
	}
	return nil
}

// VerifyPayment checks inclusion, requires an OP_RETURN output carrying id
// and sums the outputs paying expected. A tx that does not pay expected at
// all yields Paid == 0 and no error.
func (v *Verifier) VerifyPayment(ctx context.Context, sub *Submission, expected btcutil.Address, id ethcommon.Hash) (*Payment, error) {
	tx, payment, err := v.VerifyInclusion(ctx, sub)
	if err != nil {
		return nil, err
	}

	if !HasRequestTag(tx, id) {
		return nil, fmt.Errorf("%w: %s", agreement.ErrMissingTag, id)
	}

	target := expected.EncodeAddress()
	for _, out := range tx.TxOut {
		_, addrs, _, err := txscript.ExtractPkScriptAddrs(out.PkScript, v.cfg.Params)
		if err != nil || len(addrs) != 1 {
			continue
		}
		if addrs[0].EncodeAddress() != target || out.Value <= 0 {
			continue
		}
		payment.Paid += uint64(out.Value)
	}
	return payment, nil
}

// RequireRecipient rejects payments that never reached the expected address.
func RequireRecipient(p *Payment) error {
	if p.Paid == 0 {
		return agreement.ErrAddressMismatch
	}
	return nil
}

// HasRequestTag reports whether an OP_RETURN output of tx pushes exactly id.
func HasRequestTag(tx *wire.MsgTx, id ethcommon.Hash) bool {
	for _, out := range tx.TxOut {
		if !txscript.IsNullData(out.PkScript) {
			continue
		}
		tokenizer := txscript.MakeScriptTokenizer(0, out.PkScript)
		// skip OP_RETURN
		if !tokenizer.Next() {
			continue
		}
		for tokenizer.Next() {
			if bytes.Equal(tokenizer.Data(), id[:]) {
				return true
			}
		}
	}
	return false
}
