package rpc

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

type RpcClientConfig struct {
	ServerAddr string // ip address of server
	Port       string // port of server
	Username   string
	Pwd        string
}

// Wrapper of btc rpc client.
type RpcClient struct {
	ServerAddr string // ip address of server
	Port       string // port of server
	client     *rpcclient.Client
}

// Create a new RPC client which
// contains several useful functions
// to interact with bitcoin node.
func NewRpcClient(rcc *RpcClientConfig) (*RpcClient, error) {
	// Connect to local Bitcoin node using HTTP
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         rcc.ServerAddr + ":" + rcc.Port,
		User:         rcc.Username,
		Pass:         rcc.Pwd,
		HTTPPostMode: true, // original bitcoin only supports HTTP POST mode
		DisableTLS:   true, // original bitcoin does not support TLS
	}, nil)

	if err != nil {
		return nil, err
	}

	return &RpcClient{rcc.ServerAddr, rcc.Port, client}, nil
}

// Close the rpc client
func (r *RpcClient) Close() {
	r.client.Shutdown()
}

// Fetch a raw tx with a given TxID.
// Enable -txindex on your bitcoin node before using this function.
func (r *RpcClient) GetTx(TxID string) (*btcutil.Tx, error) {
	txHash, err := chainhash.NewHashFromStr(TxID)
	if err != nil {
		return nil, err
	}
	return r.client.GetRawTransaction(txHash)
}

// Get the latest block height.
func (r *RpcClient) GetLatestBlockHeight() (int64, error) {
	return r.client.GetBlockCount()
}

// GetBlockHeaderAt fetches the header of the main chain block at height.
func (r *RpcClient) GetBlockHeaderAt(height int64) (*wire.BlockHeader, error) {
	hash, err := r.client.GetBlockHash(height)
	if err != nil {
		return nil, err
	}
	return r.client.GetBlockHeader(hash)
}

// Inclusion is everything a requester submits to prove a payment.
type Inclusion struct {
	Tx      *wire.MsgTx
	Block   *wire.MsgBlock
	Height  uint32
	TxIndex uint32
}

// GetInclusion finds the block that includes TxID and the position of the
// tx in it. The tx must be confirmed.
// Enable -txindex on your bitcoin node before using this function.
func (r *RpcClient) GetInclusion(TxID string) (*Inclusion, error) {
	txHash, err := chainhash.NewHashFromStr(TxID)
	if err != nil {
		return nil, err
	}
	verbose, err := r.client.GetRawTransactionVerbose(txHash)
	if err != nil {
		return nil, err
	}
	if verbose.BlockHash == "" {
		return nil, fmt.Errorf("tx %s is not confirmed", TxID)
	}

	blockHash, err := chainhash.NewHashFromStr(verbose.BlockHash)
	if err != nil {
		return nil, err
	}
	block, err := r.client.GetBlock(blockHash)
	if err != nil {
		return nil, err
	}
	header, err := r.client.GetBlockHeaderVerbose(blockHash)
	if err != nil {
		return nil, err
	}

	for i, tx := range block.Transactions {
		if tx.TxHash() == *txHash {
			return &Inclusion{
				Tx:      tx,
				Block:   block,
				Height:  uint32(header.Height),
				TxIndex: uint32(i),
			}, nil
		}
	}
	return nil, fmt.Errorf("tx %s not found in block %s", TxID, verbose.BlockHash)
}

// Send raw transaction to bitcoin network.
func (r *RpcClient) SendRawTx(tx *wire.MsgTx) (*chainhash.Hash, error) {
	// allowHighFees=true: the node would otherwise reject a tx whose fee
	// looks like a program mistake.
	return r.client.SendRawTransaction(tx, true)
}

// Generate a given number of blocks.
// This function is useful for testing purposes.
func (r *RpcClient) GenerateBlocks(numBlocks int64, coinbase btcutil.Address) ([]*chainhash.Hash, error) {
	return r.client.GenerateToAddress(numBlocks, coinbase, nil)
}
