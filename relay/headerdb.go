package relay

import (
	"bytes"
	"context"
	"database/sql"

	"github.com/TEENet-io/onebtc-go/database"
	"github.com/btcsuite/btcd/wire"
)

const (
	queryHeaderAt   = `SELECT header FROM btc_header WHERE height = ?`
	queryBestHeight = `SELECT MAX(height) FROM btc_header`
	queryPutHeader  = `INSERT OR REPLACE INTO btc_header (height, hash, header) VALUES (?, ?, ?)`
	queryDropAbove  = `DELETE FROM btc_header WHERE height > ?`
)

// HeaderDB is the persistent relay. It must not share its *sql.DB with the
// bridge state: proofs are verified while a state transaction is open.
type HeaderDB struct {
	stmtCache *database.StmtCache
}

func NewHeaderDB(db *sql.DB) (*HeaderDB, error) {
	if _, err := db.Exec(headerTable); err != nil {
		return nil, err
	}

	sc := database.NewStmtCache(db)
	if err := sc.Warm(queryHeaderAt, queryBestHeight, queryPutHeader, queryDropAbove); err != nil {
		return nil, err
	}
	return &HeaderDB{stmtCache: sc}, nil
}

func (hdb *HeaderDB) Close() {
	hdb.stmtCache.Clear()
}

func (hdb *HeaderDB) HeaderAt(ctx context.Context, height uint32) (*wire.BlockHeader, bool, error) {
	stmt, err := hdb.stmtCache.Prepare(queryHeaderAt)
	if err != nil {
		return nil, false, err
	}

	var raw []byte
	if err := stmt.QueryRowContext(ctx, height).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	var header wire.BlockHeader
	if err := header.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, false, err
	}
	return &header, true, nil
}

// BestHeight returns 0 for an empty relay.
func (hdb *HeaderDB) BestHeight(ctx context.Context) (uint32, error) {
	stmt, err := hdb.stmtCache.Prepare(queryBestHeight)
	if err != nil {
		return 0, err
	}

	var best sql.NullInt64
	if err := stmt.QueryRowContext(ctx).Scan(&best); err != nil {
		return 0, err
	}
	return uint32(best.Int64), nil
}

// PutHeader stores header at height, replacing whatever was there.
func (hdb *HeaderDB) PutHeader(ctx context.Context, height uint32, header *wire.BlockHeader) error {
	stmt, err := hdb.stmtCache.Prepare(queryPutHeader)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, height, header.BlockHash().String(), buf.Bytes())
	return err
}

// DropAbove forgets every header above height.
func (hdb *HeaderDB) DropAbove(ctx context.Context, height uint32) error {
	stmt, err := hdb.stmtCache.Prepare(queryDropAbove)
	if err != nil {
		return err
	}
	_, err = stmt.ExecContext(ctx, height)
	return err
}
