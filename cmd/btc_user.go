// BtcUser presents an entity that
// 1) Holds user credentials (priv key)
// 2) Pays bridge requests on btc (issue deposits, or redeem payouts when acting as a vault)
// 3) Builds the inclusion proofs the bridge asks for

package cmd

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/onebtc-go/btcaddr"
	"github.com/TEENet-io/onebtc-go/btcman/assembler"
	btcrpc "github.com/TEENet-io/onebtc-go/btcman/rpc"
	"github.com/TEENet-io/onebtc-go/btcproof"
	"github.com/TEENet-io/onebtc-go/reporter"
)

const (
	REGTEST_GENERATE_BLOCKS = 101 // Generate 101 blocks in regest so coinbase matures.
	DUST_LIMIT_SATOSHI      = 546
)

type BtcUserConfig struct {
	BtcRpcServer   string // btc rpc server info
	BtcRpcPort     string // btc rpc server info
	BtcRpcUsername string // btc rpc server info
	BtcRpcPwd      string // btc rpc server info

	BtcChainConfig *chaincfg.Params // regtest, testnet, mainnet?

	BtcCoreAccountPriv string // user's btc private key, WIF.
}

type BtcUser struct {
	BtcRpcClient *btcrpc.RpcClient
	Priv         *btcec.PrivateKey
	Address      *btcutil.AddressPubKeyHash
	MyUserConfig *BtcUserConfig
}

func NewBtcUser(buc *BtcUserConfig) (*BtcUser, error) {
	wif, err := assembler.DecodeWIF(buc.BtcCoreAccountPriv, buc.BtcChainConfig)
	if err != nil {
		return nil, fmt.Errorf("cannot decode user private key: %w", err)
	}
	addr, err := btcaddr.PubKeyHashAddress(wif.PrivKey.PubKey(), buc.BtcChainConfig)
	if err != nil {
		return nil, err
	}

	myBtcRpcClient, err := SetupBtcRpc(buc.BtcRpcServer, buc.BtcRpcPort, buc.BtcRpcUsername, buc.BtcRpcPwd)
	if err != nil {
		return nil, err
	}

	return &BtcUser{
		BtcRpcClient: myBtcRpcClient,
		Priv:         wif.PrivKey,
		Address:      addr,
		MyUserConfig: buc,
	}, nil
}

func (bu *BtcUser) Close() {
	bu.BtcRpcClient.Close() // release rpc connection.
}

// Pay spends the user's output prev:vout, paying amount to address tagged
// with the request id. What is left after the fee goes back to the user.
// Returns the btc tx id.
func (bu *BtcUser) Pay(prev chainhash.Hash, vout uint32, address string, amount, fee int64, id ethcommon.Hash) (string, error) {
	prevTx, err := bu.BtcRpcClient.GetTx(prev.String())
	if err != nil {
		return "", err
	}
	if int(vout) >= len(prevTx.MsgTx().TxOut) {
		return "", fmt.Errorf("tx %s has no output %d", prev, vout)
	}
	prevOut := prevTx.MsgTx().TxOut[vout]

	dst, err := assembler.DecodeAddress(address, bu.MyUserConfig.BtcChainConfig)
	if err != nil {
		return "", err
	}
	tx, err := assembler.NewPayment(prev, vout, dst, amount, id)
	if err != nil {
		return "", err
	}

	change := prevOut.Value - amount - fee
	if change < 0 {
		return "", fmt.Errorf("not enough in %s:%d: have %d, need %d", prev, vout, prevOut.Value, amount+fee)
	}
	if change > DUST_LIMIT_SATOSHI {
		if _, err := assembler.AddPayTo(tx, bu.Address, change); err != nil {
			return "", err
		}
	}

	if err := bu.sign(tx, prevOut.PkScript); err != nil {
		return "", err
	}

	h, err := bu.BtcRpcClient.SendRawTx(tx)
	if err != nil {
		logger.WithField("error", err).Error("send raw Tx error")
		return "", err
	}
	logger.WithFields(logger.Fields{
		"btcTxId": h.String(),
		"to":      address,
		"amount":  amount,
	}).Info("payment sent")
	return h.String(), nil
}

// sign fills the script of the single p2pkh input. Bridge addresses hash
// the uncompressed key.
func (bu *BtcUser) sign(tx *wire.MsgTx, prevPkScript []byte) error {
	sigScript, err := txscript.SignatureScript(tx, 0, prevPkScript, txscript.SigHashAll, bu.Priv, false)
	if err != nil {
		return err
	}
	tx.TxIn[0].SignatureScript = sigScript
	return nil
}

// Prove builds the submission for a confirmed btc tx.
func (bu *BtcUser) Prove(btcTxID string) (*reporter.SubmissionBody, error) {
	inc, err := bu.BtcRpcClient.GetInclusion(btcTxID)
	if err != nil {
		return nil, err
	}
	sub, err := btcproof.NewSubmission(inc.Block, inc.Height, inc.TxIndex)
	if err != nil {
		return nil, err
	}
	return reporter.NewSubmissionBody(sub), nil
}

// MineEnoughBlocks asks a regtest node to mine to the user's address.
func (bu *BtcUser) MineEnoughBlocks() ([]*chainhash.Hash, error) {
	return bu.BtcRpcClient.GenerateBlocks(REGTEST_GENERATE_BLOCKS, bu.Address)
}

// DepositKeyWIF returns the key that spends the deposit address of issue
// request id, given the vault's key in WIF.
func DepositKeyWIF(vaultWIF string, id ethcommon.Hash, params *chaincfg.Params) (string, error) {
	wif, err := assembler.DecodeWIF(vaultWIF, params)
	if err != nil {
		return "", err
	}
	priv, err := btcaddr.DeriveDepositPrivKey(wif.PrivKey, id)
	if err != nil {
		return "", err
	}
	out, err := btcutil.NewWIF(priv, params, false)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
