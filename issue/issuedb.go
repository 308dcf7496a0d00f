package issue

import (
	"database/sql"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/database"
	"github.com/TEENet-io/onebtc-go/state"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	queryGet          = `SELECT` + issueParamList + `FROM issue_request WHERE id = ?`
	queryInsert       = `INSERT INTO issue_request (` + issueParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	queryUpdateStatus = `UPDATE issue_request SET status = ?, paid = ?, btcTxId = ? WHERE id = ? AND status = 'pending'`
	queryPendingUntil = `SELECT` + issueParamList + `FROM issue_request WHERE status = 'pending' AND createdAt <= ? ORDER BY createdAt`
	queryByRequester  = `SELECT` + issueParamList + `FROM issue_request WHERE requester = ? ORDER BY createdAt DESC LIMIT ?`
)

// IssueDB is the keyed store of issue requests. Only Manager writes to it.
type IssueDB struct {
	stmtCache *database.StmtCache
}

func NewIssueDB(db *sql.DB) (*IssueDB, error) {
	if _, err := db.Exec(issueTable); err != nil {
		return nil, err
	}

	sc := database.NewStmtCache(db)
	if err := sc.Warm(queryGet, queryInsert, queryUpdateStatus, queryPendingUntil, queryByRequester); err != nil {
		return nil, err
	}
	return &IssueDB{stmtCache: sc}, nil
}

func (idb *IssueDB) Close() {
	idb.stmtCache.Clear()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*Request, error) {
	var s sqlRequest
	if err := row.Scan(&s.ID, &s.Requester, &s.VaultID, &s.Requested, &s.Amount, &s.Fee,
		&s.DepositAddress, &s.CreatedAt, &s.Status, &s.Paid, &s.BtcTxID); err != nil {
		return nil, err
	}
	return s.decode()
}

func (idb *IssueDB) Get(b *state.Batch, id ethcommon.Hash) (*Request, bool, error) {
	stmt, err := idb.stmtCache.Tx(b.Tx(), queryGet)
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

func (idb *IssueDB) Insert(b *state.Batch, r *Request) error {
	stmt, err := idb.stmtCache.Tx(b.Tx(), queryInsert)
	if err != nil {
		return err
	}

	s := (&sqlRequest{}).encode(r)
	_, err = stmt.Exec(s.ID, s.Requester, s.VaultID, s.Requested, s.Amount, s.Fee,
		s.DepositAddress, s.CreatedAt, s.Status, s.Paid, s.BtcTxID)
	return err
}

// Finalize moves a pending request to its terminal status. It fails if the
// request is not pending anymore.
func (idb *IssueDB) Finalize(b *state.Batch, r *Request) error {
	stmt, err := idb.stmtCache.Tx(b.Tx(), queryUpdateStatus)
	if err != nil {
		return err
	}

	s := (&sqlRequest{}).encode(r)
	res, err := stmt.Exec(s.Status, s.Paid, s.BtcTxID, s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return agreement.ErrAlreadyCompleted
	}
	return nil
}

func (idb *IssueDB) query(b *state.Batch, query string, args ...any) ([]*Request, error) {
	stmt, err := idb.stmtCache.Tx(b.Tx(), query)
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

// PendingCreatedUntil lists pending requests created at or before t.
func (idb *IssueDB) PendingCreatedUntil(b *state.Batch, unix int64) ([]*Request, error) {
	return idb.query(b, queryPendingUntil, unix)
}

func (idb *IssueDB) ByRequester(b *state.Batch, requester ethcommon.Address, limit int) ([]*Request, error) {
	return idb.query(b, queryByRequester, ethcommon.Bytes2Hex(requester[:]), limit)
}
