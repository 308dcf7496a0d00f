package reporter

import (
	"encoding/hex"
	"time"

	"github.com/TEENet-io/onebtc-go/btcproof"
	"github.com/TEENet-io/onebtc-go/issue"
	"github.com/TEENet-io/onebtc-go/redeem"
	"github.com/TEENet-io/onebtc-go/vault"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type VaultView struct {
	ID           string    `json:"id"`
	PublicKey    string    `json:"public_key"`
	Collateral   uint64    `json:"collateral"`
	Issued       uint64    `json:"issued"`
	ToBeIssued   uint64    `json:"to_be_issued"`
	ToBeRedeemed uint64    `json:"to_be_redeemed"`
	Issuable     uint64    `json:"issuable"`
	CreatedAt    time.Time `json:"created_at"`
}

func newVaultView(v *vault.Vault, ratioPercent uint64) *VaultView {
	return &VaultView{
		ID:           v.ID.Hex(),
		PublicKey:    hex.EncodeToString(v.PublicKey),
		Collateral:   v.Collateral,
		Issued:       v.Issued,
		ToBeIssued:   v.ToBeIssued,
		ToBeRedeemed: v.ToBeRedeemed,
		Issuable:     v.Issuable(ratioPercent),
		CreatedAt:    v.CreatedAt,
	}
}

type IssueView struct {
	ID             string    `json:"id"`
	Requester      string    `json:"requester"`
	VaultID        string    `json:"vault_id"`
	Requested      uint64    `json:"requested"`
	Amount         uint64    `json:"amount"`
	Fee            uint64    `json:"fee"`
	DepositAddress string    `json:"deposit_address"`
	CreatedAt      time.Time `json:"created_at"`
	Status         string    `json:"status"`
	Paid           uint64    `json:"paid"`
	BtcTxID        string    `json:"btc_tx_id,omitempty"`
}

func btcTxID(h chainhash.Hash) string {
	if h == (chainhash.Hash{}) {
		return ""
	}
	return h.String()
}

func newIssueView(r *issue.Request) *IssueView {
	return &IssueView{
		ID:             r.ID.Hex(),
		Requester:      r.Requester.Hex(),
		VaultID:        r.VaultID.Hex(),
		Requested:      r.Requested,
		Amount:         r.Amount,
		Fee:            r.Fee,
		DepositAddress: r.DepositAddress,
		CreatedAt:      r.CreatedAt,
		Status:         string(r.Status),
		Paid:           r.Paid,
		BtcTxID:        btcTxID(r.BtcTxID),
	}
}

type RedeemView struct {
	ID         string    `json:"id"`
	Requester  string    `json:"requester"`
	VaultID    string    `json:"vault_id"`
	Requested  uint64    `json:"requested"`
	Amount     uint64    `json:"amount"`
	Fee        uint64    `json:"fee"`
	BtcAddress string    `json:"btc_address"`
	CreatedAt  time.Time `json:"created_at"`
	Deadline   time.Time `json:"deadline"`
	Status     string    `json:"status"`
	Paid       uint64    `json:"paid"`
	BtcTxID    string    `json:"btc_tx_id,omitempty"`
}

func newRedeemView(r *redeem.Request) *RedeemView {
	return &RedeemView{
		ID:         r.ID.Hex(),
		Requester:  r.Requester.Hex(),
		VaultID:    r.VaultID.Hex(),
		Requested:  r.Requested,
		Amount:     r.Amount,
		Fee:        r.Fee,
		BtcAddress: r.BtcAddress,
		CreatedAt:  r.CreatedAt,
		Deadline:   r.Deadline(),
		Status:     string(r.Status),
		Paid:       r.Paid,
		BtcTxID:    btcTxID(r.BtcTxID),
	}
}

// Request bodies

type RegisterVaultBody struct {
	PublicKey  string `json:"public_key" binding:"required"`
	Collateral uint64 `json:"collateral" binding:"required"`
}

type AmountBody struct {
	Amount uint64 `json:"amount" binding:"required"`
}

type RequestIssueBody struct {
	Amount  uint64 `json:"amount" binding:"required"`
	VaultID string `json:"vault_id" binding:"required"`
}

type RequestRedeemBody struct {
	Amount     uint64 `json:"amount" binding:"required"`
	BtcAddress string `json:"btc_address" binding:"required"`
	VaultID    string `json:"vault_id" binding:"required"`
}

type TransferBody struct {
	To     string `json:"to" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// SubmissionBody carries a payment proof, byte fields hex encoded.
type SubmissionBody struct {
	RawTx   string `json:"raw_tx" binding:"required"`
	Proof   string `json:"proof"`
	Locator uint64 `json:"locator"`
	Header  string `json:"header" binding:"required"`
}

func NewSubmissionBody(sub *btcproof.Submission) *SubmissionBody {
	return &SubmissionBody{
		RawTx:   hex.EncodeToString(sub.RawTx),
		Proof:   hex.EncodeToString(sub.Proof),
		Locator: sub.Locator,
		Header:  hex.EncodeToString(sub.Header),
	}
}

func (s *SubmissionBody) Submission() (*btcproof.Submission, error) {
	rawTx, err := hex.DecodeString(s.RawTx)
	if err != nil {
		return nil, err
	}
	proof, err := hex.DecodeString(s.Proof)
	if err != nil {
		return nil, err
	}
	header, err := hex.DecodeString(s.Header)
	if err != nil {
		return nil, err
	}
	return &btcproof.Submission{RawTx: rawTx, Proof: proof, Locator: s.Locator, Header: header}, nil
}
