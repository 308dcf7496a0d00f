package cmd

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/TEENet-io/onebtc-go/bridge"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerConfig(t *testing.T) *BridgeServerConfig {
	dir := t.TempDir()
	return &BridgeServerConfig{
		DbFilePath:      filepath.Join(dir, "bridge.db"),
		RelayDbFilePath: filepath.Join(dir, "relay.db"),
		BtcRpcServer:    "127.0.0.1",
		BtcRpcPort:      "18443",
		BtcStartBlk:     0,
		Bridge:          bridge.RegtestConfig(),
		HttpIp:          "127.0.0.1",
		HttpPort:        "0",
	}
}

func TestServerRejectsSharedDB(t *testing.T) {
	bsc := testServerConfig(t)
	bsc.RelayDbFilePath = bsc.DbFilePath

	var wg sync.WaitGroup
	_, err := NewBridgeServer(bsc, context.Background(), &wg)
	assert.Error(t, err)
}

func TestServerStartsAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	server, err := NewBridgeServer(testServerConfig(t), ctx, &wg)
	require.NoError(t, err)

	v, err := server.Bridge.ListVaults(ctx)
	require.NoError(t, err)
	assert.Empty(t, v)
	bal, err := server.Bridge.BalanceOf(ctx, common.RandEthAddress())
	require.NoError(t, err)
	assert.Zero(t, bal.Pegged)

	cancel()
	wg.Wait()
	server.Close()
}
