package btcproof

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MakeLocator packs a block height and the position of a tx in that block.
func MakeLocator(height, txIndex uint32) uint64 {
	return uint64(height)<<32 | uint64(txIndex)
}

// SplitLocator is the inverse of MakeLocator.
func SplitLocator(locator uint64) (height, txIndex uint32) {
	return uint32(locator >> 32), uint32(locator)
}

// VerifyMerkleProof checks that txid sits at position index of the tree
// with the given root. proof is the concatenation of the 32-byte sibling
// hashes from the leaf level up. Hashes are in internal byte order.
func VerifyMerkleProof(txid, root chainhash.Hash, proof []byte, index uint32) bool {
	if len(proof)%chainhash.HashSize != 0 {
		return false
	}
	// a block cannot hold more than 2^32 txs
	if len(proof)/chainhash.HashSize > 32 {
		return false
	}

	cur := txid
	var buf [2 * chainhash.HashSize]byte
	for off := 0; off < len(proof); off += chainhash.HashSize {
		sibling := proof[off : off+chainhash.HashSize]
		if index&1 == 0 {
			copy(buf[:chainhash.HashSize], cur[:])
			copy(buf[chainhash.HashSize:], sibling)
		} else {
			copy(buf[:chainhash.HashSize], sibling)
			copy(buf[chainhash.HashSize:], cur[:])
		}
		cur = chainhash.DoubleHashH(buf[:])
		index >>= 1
	}

	// leftover bits mean the index points outside the tree
	return index == 0 && cur == root
}
