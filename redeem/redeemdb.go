package redeem

import (
	"database/sql"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/database"
	"github.com/TEENet-io/onebtc-go/state"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	queryGet          = `SELECT` + redeemParamList + `FROM redeem_request WHERE id = ?`
	queryInsert       = `INSERT INTO redeem_request (` + redeemParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	queryUpdateStatus = `UPDATE redeem_request SET status = ?, paid = ?, btcTxId = ? WHERE id = ? AND status = 'pending'`
	queryExpired      = `SELECT` + redeemParamList + `FROM redeem_request WHERE status = 'pending' AND createdAt + period <= ? ORDER BY createdAt + period`
	queryByRequester  = `SELECT` + redeemParamList + `FROM redeem_request WHERE requester = ? ORDER BY createdAt DESC LIMIT ?`
)

type RedeemDB struct {
	stmtCache *database.StmtCache
}

func NewRedeemDB(db *sql.DB) (*RedeemDB, error) {
	if _, err := db.Exec(redeemTable); err != nil {
		return nil, err
	}

	sc := database.NewStmtCache(db)
	if err := sc.Warm(queryGet, queryInsert, queryUpdateStatus, queryExpired, queryByRequester); err != nil {
		return nil, err
	}
	return &RedeemDB{stmtCache: sc}, nil
}

func (rdb *RedeemDB) Close() {
	rdb.stmtCache.Clear()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*Request, error) {
	var s sqlRequest
	if err := row.Scan(&s.ID, &s.Requester, &s.VaultID, &s.Requested, &s.Amount, &s.Fee,
		&s.BtcAddress, &s.CreatedAt, &s.Period, &s.Status, &s.Paid, &s.BtcTxID); err != nil {
		return nil, err
	}
	return s.decode()
}

func (rdb *RedeemDB) Get(b *state.Batch, id ethcommon.Hash) (*Request, bool, error) {
	stmt, err := rdb.stmtCache.Tx(b.Tx(), queryGet)
	if err != nil {
		return nil, false, err
	}

	r, err := scanRequest(stmt.QueryRow(id.Hex()[2:]))
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (rdb *RedeemDB) Insert(b *state.Batch, r *Request) error {
	stmt, err := rdb.stmtCache.Tx(b.Tx(), queryInsert)
	if err != nil {
		return err
	}

	s := (&sqlRequest{}).encode(r)
	_, err = stmt.Exec(s.ID, s.Requester, s.VaultID, s.Requested, s.Amount, s.Fee,
		s.BtcAddress, s.CreatedAt, s.Period, s.Status, s.Paid, s.BtcTxID)
	return err
}

// Finalize moves a pending request to its terminal status.
func (rdb *RedeemDB) Finalize(b *state.Batch, r *Request) error {
	stmt, err := rdb.stmtCache.Tx(b.Tx(), queryUpdateStatus)
	if err != nil {
		return err
	}

	s := (&sqlRequest{}).encode(r)
	res, err := stmt.Exec(s.Status, s.Paid, s.BtcTxID, s.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n != 1 {
		return agreement.ErrAlreadyCompleted
	}
	return nil
}

func (rdb *RedeemDB) query(b *state.Batch, query string, args ...any) ([]*Request, error) {
	stmt, err := rdb.stmtCache.Tx(b.Tx(), query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// Expired lists pending requests whose deadline is at or before unix.
func (rdb *RedeemDB) Expired(b *state.Batch, unix int64) ([]*Request, error) {
	return rdb.query(b, queryExpired, unix)
}

func (rdb *RedeemDB) ByRequester(b *state.Batch, requester ethcommon.Address, limit int) ([]*Request, error) {
	return rdb.query(b, queryByRequester, ethcommon.Bytes2Hex(requester[:]), limit)
}
