package issue

import (
	"database/sql"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Request struct {
	ID        ethcommon.Hash
	Requester ethcommon.Address
	VaultID   ethcommon.Address

	// Requested is the BTC the requester pays, Amount + Fee.
	Requested uint64
	// Amount is minted to the requester on full payment.
	Amount uint64
	// Fee is minted to the vault on full payment.
	Fee uint64

	DepositAddress string
	CreatedAt      time.Time
	Status         Status

	// set on completion
	Paid    uint64
	BtcTxID chainhash.Hash
}

func (r *Request) IsTerminal() bool {
	return r.Status != StatusPending
}

type sqlRequest struct {
	ID             string
	Requester      string
	VaultID        string
	Requested      int64
	Amount         int64
	Fee            int64
	DepositAddress string
	CreatedAt      int64
	Status         string
	Paid           int64
	BtcTxID        sql.NullString
}

func (s *sqlRequest) encode(r *Request) *sqlRequest {
	s.ID = r.ID.Hex()[2:]
	s.Requester = ethcommon.Bytes2Hex(r.Requester[:])
	s.VaultID = ethcommon.Bytes2Hex(r.VaultID[:])
	s.Requested = int64(r.Requested)
	s.Amount = int64(r.Amount)
	s.Fee = int64(r.Fee)
	s.DepositAddress = r.DepositAddress
	s.CreatedAt = r.CreatedAt.Unix()
	s.Status = string(r.Status)
	s.Paid = int64(r.Paid)
	if r.BtcTxID != (chainhash.Hash{}) {
		s.BtcTxID = sql.NullString{String: r.BtcTxID.String(), Valid: true}
	}
	return s
}

func (s *sqlRequest) decode() (*Request, error) {
	r := &Request{
		ID:             ethcommon.HexToHash(s.ID),
		Requester:      ethcommon.HexToAddress(s.Requester),
		VaultID:        ethcommon.HexToAddress(s.VaultID),
		Requested:      uint64(s.Requested),
		Amount:         uint64(s.Amount),
		Fee:            uint64(s.Fee),
		DepositAddress: s.DepositAddress,
		CreatedAt:      time.Unix(s.CreatedAt, 0),
		Status:         Status(s.Status),
		Paid:           uint64(s.Paid),
	}
	if s.BtcTxID.Valid {
		h, err := chainhash.NewHashFromStr(s.BtcTxID.String)
		if err != nil {
			return nil, err
		}
		r.BtcTxID = *h
	}
	return r, nil
}
