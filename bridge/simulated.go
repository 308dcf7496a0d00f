package bridge

import (
	"database/sql"

	"github.com/TEENet-io/onebtc-go/btcproof"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/TEENet-io/onebtc-go/database"
	"github.com/TEENet-io/onebtc-go/relay"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

// RegtestConfig is DefaultConfig on regtest with a single confirmation.
func RegtestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Params = &chaincfg.RegressionNetParams
	cfg.Confirmations = 1
	return cfg
}

func getMemoryDB() *sql.DB {
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	return db
}

// MinePayment simulates a btc payment of amount to address tagged with id,
// adds its block to mr at height and returns the submission proving it.
func MinePayment(mr *relay.MemoryRelay, params *chaincfg.Params, address string, amount uint64, id ethcommon.Hash, height uint32) (*btcproof.Submission, error) {
	addr, err := common.DecodeP2PKH(address, params)
	if err != nil {
		return nil, err
	}
	header, sub, err := btcproof.SimulatePayment(addr, int64(amount), id, height)
	if err != nil {
		return nil, err
	}
	mr.AddHeader(height, header)
	return sub, nil
}
