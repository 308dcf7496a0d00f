package btcproof

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MerkleBranch extracts the proof of txs[index] from a block's tx list in
// the format accepted by VerifyMerkleProof.
func MerkleBranch(txs []*wire.MsgTx, index int) ([]byte, chainhash.Hash) {
	utxs := make([]*btcutil.Tx, len(txs))
	for i, tx := range txs {
		utxs[i] = btcutil.NewTx(tx)
	}
	store := blockchain.BuildMerkleTreeStore(utxs, false)
	root := *store[len(store)-1]

	width := 1
	for width < len(txs) {
		width <<= 1
	}

	var proof []byte
	offset := 0
	for width > 1 {
		sibling := store[offset+(index^1)]
		if sibling == nil {
			// odd node count: the node is paired with itself
			sibling = store[offset+index]
		}
		proof = append(proof, sibling[:]...)
		offset += width
		width >>= 1
		index >>= 1
	}
	return proof, root
}

// NewSubmission builds the evidence for the tx at index of block, mined at
// height.
func NewSubmission(block *wire.MsgBlock, height, index uint32) (*Submission, error) {
	if int(index) >= len(block.Transactions) {
		return nil, fmt.Errorf("block has %d txs, no index %d", len(block.Transactions), index)
	}

	var rawTx, header bytes.Buffer
	if err := block.Transactions[index].SerializeNoWitness(&rawTx); err != nil {
		return nil, err
	}
	if err := block.Header.Serialize(&header); err != nil {
		return nil, err
	}
	proof, _ := MerkleBranch(block.Transactions, int(index))

	return &Submission{
		RawTx:   rawTx.Bytes(),
		Proof:   proof,
		Locator: MakeLocator(height, index),
		Header:  header.Bytes(),
	}, nil
}
