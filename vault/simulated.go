package vault

import (
	"database/sql"

	"github.com/TEENet-io/onebtc-go/database"
	"github.com/btcsuite/btcd/btcec/v2"
	logger "github.com/sirupsen/logrus"
)

// RandVaultKey returns a fresh vault key pair and the uncompressed public
// key registration expects.
func RandVaultKey() (*btcec.PrivateKey, []byte) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		logger.Fatal(err)
	}
	return priv, priv.PubKey().SerializeUncompressed()
}

func getMemoryDB() *sql.DB {
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	return db
}
