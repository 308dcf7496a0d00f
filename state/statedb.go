package state

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/TEENet-io/onebtc-go/database"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

var keyRequestNonce = ethcommon.BytesToHash([]byte("request_nonce"))

const (
	queryGetKV = `SELECT value FROM kv WHERE key = ?`
	querySetKV = `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`
)

type StateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache

	// BeforeCommit runs inside the transaction after the operation
	// succeeded. A failure rolls the whole operation back.
	BeforeCommit func(b *Batch) error
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	// 1. Create the tables.
	if _, err := db.Exec(kvTable); err != nil {
		return nil, err
	}

	// 2. A stmt cache + db.
	sc := database.NewStmtCache(db)
	if err := sc.Warm(queryGetKV, querySetKV); err != nil {
		return nil, err
	}
	return &StateDB{
		db:        db,
		stmtCache: sc,
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

// Update runs fn in a new transaction and commits if fn succeeds. It
// returns the observations emitted by fn, which are only valid after commit.
func (st *StateDB) Update(ctx context.Context, now time.Time, fn func(b *Batch) error) ([]agreement.Event, error) {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	b := NewBatch(tx, now)
	if err := fn(b); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.WithField("err", rbErr).Error("failed to roll back")
		}
		return nil, err
	}

	if st.BeforeCommit != nil {
		if err := st.BeforeCommit(b); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b.Events(), nil
}

// View runs fn in a transaction that is always rolled back.
func (st *StateDB) View(ctx context.Context, now time.Time, fn func(b *Batch) error) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	return fn(NewBatch(tx, now))
}

func (st *StateDB) GetKeyedValue(b *Batch, key ethcommon.Hash) (ethcommon.Hash, bool, error) {
	stmt, err := st.stmtCache.Tx(b.Tx(), queryGetKV)
	if err != nil {
		return ethcommon.Hash{}, false, err
	}

	var value string
	keyHex := key.String()[2:]
	if err := stmt.QueryRow(keyHex).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return ethcommon.Hash{}, false, nil
		}
		return ethcommon.Hash{}, false, err
	}

	return common.HexStrToBytes32(value), true, nil
}

func (st *StateDB) SetKeyedValue(b *Batch, key, value ethcommon.Hash) error {
	stmt, err := st.stmtCache.Tx(b.Tx(), querySetKV)
	if err != nil {
		return err
	}

	keyHex := key.String()[2:]
	valueHex := value.String()[2:]
	if _, err := stmt.Exec(keyHex, valueHex); err != nil {
		return err
	}

	return nil
}

// NextNonce increments and returns the request counter.
func (st *StateDB) NextNonce(b *Batch) (uint64, error) {
	v, _, err := st.GetKeyedValue(b, keyRequestNonce)
	if err != nil {
		return 0, err
	}

	nonce := binary.BigEndian.Uint64(v[24:]) + 1
	var next ethcommon.Hash
	binary.BigEndian.PutUint64(next[24:], nonce)
	if err := st.SetKeyedValue(b, keyRequestNonce, next); err != nil {
		return 0, err
	}
	return nonce, nil
}

// ClaimBtcTx records that txid settled request id. A BTC tx can settle at
// most one request.
func (st *StateDB) ClaimBtcTx(b *Batch, txid chainhash.Hash, id ethcommon.Hash) error {
	key := ethcommon.Hash(txid)
	owner, ok, err := st.GetKeyedValue(b, key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s settled %s", agreement.ErrPaymentReused, txid, owner)
	}
	return st.SetKeyedValue(b, key, id)
}
