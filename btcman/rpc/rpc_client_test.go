package rpc

import (
	"os"
	"testing"

	"github.com/TEENet-io/onebtc-go/btcman/assembler"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
)

const (
	// This wallet is the coinbase receiver of the regtest node.
	p1_legacy_addr_str = "mkVXZnqaaKt4puQNr4ovPHYg48mjguFCnT"
)

var (
	server   string
	port     string
	username string
	password string
)

// Initial setup for bitcoin rpc server
func setup() bool {
	server = os.Getenv("SERVER")
	port = os.Getenv("PORT")
	username = os.Getenv("USER")
	password = os.Getenv("PASS")
	return server != "" && port != "" && username != "" && password != ""
}

func setupClient(t *testing.T) *RpcClient {
	if !setup() {
		t.Skip("SERVER, PORT, USER, PASS not set, skipping regtest node tests")
	}
	client, err := NewRpcClient(&RpcClientConfig{
		ServerAddr: server,
		Port:       port,
		Username:   username,
		Pwd:        password,
	})
	if err != nil {
		t.Fatalf("cannot create rpc client: %v", err)
	}
	return client
}

func TestHeaderAt(t *testing.T) {
	r := setupClient(t)
	defer r.Close()

	coinbase, err := assembler.DecodeAddress(p1_legacy_addr_str, &chaincfg.RegressionNetParams)
	assert.NoError(t, err)
	hashes, err := r.GenerateBlocks(1, coinbase)
	assert.NoError(t, err)

	height, err := r.GetLatestBlockHeight()
	assert.NoError(t, err)

	header, err := r.GetBlockHeaderAt(height)
	assert.NoError(t, err)
	assert.Equal(t, *hashes[0], header.BlockHash())
}

func TestInclusionOfCoinbase(t *testing.T) {
	r := setupClient(t)
	defer r.Close()

	height, err := r.GetLatestBlockHeight()
	assert.NoError(t, err)
	header, err := r.GetBlockHeaderAt(height)
	assert.NoError(t, err)

	hash := header.BlockHash()
	block, err := r.client.GetBlock(&hash)
	assert.NoError(t, err)

	inc, err := r.GetInclusion(block.Transactions[0].TxHash().String())
	assert.NoError(t, err)
	assert.Equal(t, uint32(height), inc.Height)
	assert.Equal(t, uint32(0), inc.TxIndex)
}
