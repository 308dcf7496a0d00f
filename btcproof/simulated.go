package btcproof

import (
	"bytes"
	"time"

	"github.com/TEENet-io/onebtc-go/btcman/assembler"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

func randomTx() *wire.MsgTx {
	tx := assembler.AddInput(wire.NewMsgTx(wire.TxVersion), common.RandBytes32(), 0)
	tx.AddTxOut(wire.NewTxOut(1000, common.RandBytes(25)))
	return tx
}

// SimulateBlock builds a block that holds tx at position index among
// random filler txs. It returns the block header and the submission that
// proves the inclusion at the given height.
func SimulateBlock(tx *wire.MsgTx, height uint32, index, size int) (*wire.BlockHeader, *Submission) {
	txs := make([]*wire.MsgTx, size)
	for i := range txs {
		if i == index {
			txs[i] = tx
		} else {
			txs[i] = randomTx()
		}
	}
	proof, root := MerkleBranch(txs, index)

	header := wire.NewBlockHeader(1, &chainhash.Hash{}, &root, 0x207fffff, uint32(height))
	header.Timestamp = time.Unix(1700000000+int64(height)*600, 0)

	var hb, tb bytes.Buffer
	_ = header.Serialize(&hb)
	_ = tx.Serialize(&tb)

	return header, &Submission{
		RawTx:   tb.Bytes(),
		Proof:   proof,
		Locator: MakeLocator(height, uint32(index)),
		Header:  hb.Bytes(),
	}
}

// SimulatePayment assembles a payment of amount to addr tagged with id and
// mines it with SimulateBlock.
func SimulatePayment(addr btcutil.Address, amount int64, id ethcommon.Hash, height uint32) (*wire.BlockHeader, *Submission, error) {
	tx, err := assembler.NewPayment(common.RandBytes32(), 0, addr, amount, id)
	if err != nil {
		return nil, nil, err
	}
	header, sub := SimulateBlock(tx, height, 2, 5)
	return header, sub, nil
}
