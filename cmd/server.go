// Server = bridge state + btc header relay + watcher + metrics + http reporter.
// All components are configured via environment variables or a config file.

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/bridge"
	btcrpc "github.com/TEENet-io/onebtc-go/btcman/rpc"
	"github.com/TEENet-io/onebtc-go/database"
	"github.com/TEENet-io/onebtc-go/metrics"
	"github.com/TEENet-io/onebtc-go/relay"
	"github.com/TEENet-io/onebtc-go/reporter"
)

// Default params for server.
// More often we don't recommend users to tweak those.
// So we list them here.
const (
	frequencyToSyncBtcHeaders = 10 * time.Second
	frequencyToCheckExpired   = 30 * time.Second
	btcHeaderBatchSize        = 500

	// event subscriber buffer
	CHANNEL_BUFFER_SIZE = 64
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type BridgeServerConfig struct {
	// state side
	DbFilePath      string // bridge state db file path
	RelayDbFilePath string // btc header relay db file path, must differ from DbFilePath

	// btc side
	BtcRpcServer   string // btc rpc server info
	BtcRpcPort     string // btc rpc server info
	BtcRpcUsername string // btc rpc server info
	BtcRpcPwd      string // btc rpc server info
	BtcStartBlk    int64  // first header the relay copies when empty (-1=latest)

	// bridge rules, chain params included
	Bridge *bridge.Config

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// BridgeServer holds the objects that consists of the bridge server.
type BridgeServer struct {
	StateDB *sql.DB
	RelayDB *sql.DB

	BtcRpcClient *btcrpc.RpcClient
	HeaderDB     *relay.HeaderDB
	Syncer       *relay.Syncer

	Bridge   *bridge.Bridge
	Watcher  *bridge.Watcher
	Metrics  *metrics.Metrics
	Reporter *reporter.HttpReporter
}

// NewBridgeServer creates a new bridge server and starts its loops.
// ctx is used for parental context to cancel the operation of bridge server.
// wg is used to wait for all the goroutines inside the server (syncer, watcher, metrics) to finish.
func NewBridgeServer(bsc *BridgeServerConfig, ctx context.Context, wg *sync.WaitGroup) (*BridgeServer, error) {
	if bsc.DbFilePath == bsc.RelayDbFilePath {
		return nil, fmt.Errorf("relay db must not be the state db: %s", bsc.DbFilePath)
	}

	// 0) connect to btc network
	myBtcRpcClient, err := SetupBtcRpc(bsc.BtcRpcServer, bsc.BtcRpcPort, bsc.BtcRpcUsername, bsc.BtcRpcPwd)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to btc rpc server %s:%s: %w", bsc.BtcRpcServer, bsc.BtcRpcPort, err)
	}

	// 1) btc header relay, on its own db
	relayDB, err := database.OpenSQLite(bsc.RelayDbFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open relay db file: %w", err)
	}
	headerDB, err := relay.NewHeaderDB(relayDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create header db: %w", err)
	}

	startBlk := bsc.BtcStartBlk
	if startBlk == -1 {
		if startBlk, err = myBtcRpcClient.GetLatestBlockHeight(); err != nil {
			return nil, fmt.Errorf("failed to get latest btc height: %w", err)
		}
	}
	syncer := relay.NewSyncer(&relay.SyncerConfig{
		Interval:    frequencyToSyncBtcHeaders,
		StartHeight: uint32(startBlk),
		BatchSize:   btcHeaderBatchSize,
	}, myBtcRpcClient, headerDB)

	// 2) bridge state
	stateDB, err := database.OpenSQLite(bsc.DbFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db file: %w", err)
	}
	clock := clockwork.NewRealClock()
	br, err := bridge.New(stateDB, headerDB, clock, bsc.Bridge)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}

	// 3) metrics follow the committed events
	m := metrics.NewMetrics()
	eventCh := make(chan agreement.Event, CHANNEL_BUFFER_SIZE)
	br.Publisher().Register(eventCh)

	watcher := bridge.NewWatcher(br, headerDB, m, clock, frequencyToCheckExpired)

	// Important: Turn on the loops!
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := syncer.Loop(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("btc header syncer stopped: %v", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := watcher.Loop(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("watcher stopped: %v", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Loop(ctx, eventCh)
	}()
	// Don't forget to call wg.Wait() in the main routine.

	// *** Setup a http server ***
	httpServer := reporter.NewHttpReporter(bsc.HttpIp, bsc.HttpPort, br, m)
	go func() {
		if err := httpServer.Run(); err != nil {
			logger.Fatalf("http server stopped: %v", err)
		}
	}()
	logger.WithFields(logger.Fields{
		"http":    bsc.HttpIp + ":" + bsc.HttpPort,
		"network": bsc.Bridge.Params.Name,
	}).Info("bridge server started")

	return &BridgeServer{
		StateDB:      stateDB,
		RelayDB:      relayDB,
		BtcRpcClient: myBtcRpcClient,
		HeaderDB:     headerDB,
		Syncer:       syncer,
		Bridge:       br,
		Watcher:      watcher,
		Metrics:      m,
		Reporter:     httpServer,
	}, nil
}

// Close releases what NewBridgeServer opened. Call it after the loops stopped.
func (s *BridgeServer) Close() {
	s.Bridge.Close()
	s.HeaderDB.Close()
	s.StateDB.Close()
	s.RelayDB.Close()
	s.BtcRpcClient.Close()
}

// Create, then start the bridge server and wait.
// Press Ctrl-C to kill the server.
func StartBridgeServerAndWait(bsc *BridgeServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Infof("received signal: %v, cancelling context...", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	server, err := NewBridgeServer(bsc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create bridge server: %v", err)
		return
	}

	// wait for all loops to finish
	wg.Wait()
	server.Close()
}
