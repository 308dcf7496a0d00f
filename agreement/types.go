// Global agreement on types shared by the bridge components.

package agreement

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Asset names held by the ledger.
const (
	// AssetPegged is the BTC-pegged token minted on issue and burned on redeem.
	AssetPegged = "onebtc"
	// AssetCollateral is the collateral token locked by vaults.
	AssetCollateral = "collateral"
)

// NewRequestID derives a request id. The nonce is a persisted counter so two
// requests never share an id even within the same second; salt makes ids
// unpredictable to third parties.
func NewRequestID(requester, vault common.Address, nonce uint64, now time.Time, salt [32]byte) common.Hash {
	var n, ts [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	binary.BigEndian.PutUint64(ts[:], uint64(now.UnixNano()))
	return crypto.Keccak256Hash(requester[:], vault[:], n[:], ts[:], salt[:])
}

// Event is an observation emitted by a committed state transition.
type Event interface {
	EventName() string
}

const (
	EventVaultRegistered  = "VaultRegistered"
	EventCollateralLocked = "CollateralLocked"
	EventCollateralFreed  = "CollateralWithdrawn"
	EventIssueRequest     = "IssueRequest"
	EventIssueComplete    = "IssueComplete"
	EventIssueCancel      = "IssueCancel"
	EventSlashCollateral  = "SlashCollateral"
	EventMint             = "Mint"
	EventRedeemRequest    = "RedeemRequest"
	EventRedeemComplete   = "RedeemComplete"
	EventRedeemCancel     = "RedeemCancel"
)

type VaultRegisteredEvent struct {
	VaultID    common.Address `json:"vault_id"`
	Collateral uint64         `json:"collateral"`
}

func (ev *VaultRegisteredEvent) EventName() string { return EventVaultRegistered }

type CollateralLockedEvent struct {
	VaultID common.Address `json:"vault_id"`
	Amount  uint64         `json:"amount"`
}

func (ev *CollateralLockedEvent) EventName() string { return EventCollateralLocked }

type CollateralWithdrawnEvent struct {
	VaultID common.Address `json:"vault_id"`
	Amount  uint64         `json:"amount"`
}

func (ev *CollateralWithdrawnEvent) EventName() string { return EventCollateralFreed }

// IssueRequestEvent tells the requester where to send BTC.
type IssueRequestEvent struct {
	IssueID    common.Hash    `json:"issue_id"`
	Requester  common.Address `json:"requester"`
	VaultID    common.Address `json:"vault_id"`
	Amount     uint64         `json:"amount"`
	Fee        uint64         `json:"fee"`
	BtcAddress string         `json:"btc_address"`
}

func (ev *IssueRequestEvent) EventName() string { return EventIssueRequest }

type IssueCompleteEvent struct {
	IssueID   common.Hash    `json:"issue_id"`
	Requester common.Address `json:"requester"`
	VaultID   common.Address `json:"vault_id"`
	Outcome   string         `json:"outcome"`
	Paid      uint64         `json:"paid"`
	Minted    uint64         `json:"minted"`
	Fee       uint64         `json:"fee"`
}

func (ev *IssueCompleteEvent) EventName() string { return EventIssueComplete }

type IssueCancelEvent struct {
	IssueID common.Hash `json:"issue_id"`
}

func (ev *IssueCancelEvent) EventName() string { return EventIssueCancel }

type SlashCollateralEvent struct {
	VaultID     common.Address `json:"vault_id"`
	Beneficiary common.Address `json:"beneficiary"`
	Amount      uint64         `json:"amount"`
}

func (ev *SlashCollateralEvent) EventName() string { return EventSlashCollateral }

type MintEvent struct {
	Account common.Address `json:"account"`
	Amount  uint64         `json:"amount"`
}

func (ev *MintEvent) EventName() string { return EventMint }

type RedeemRequestEvent struct {
	RedeemID   common.Hash    `json:"redeem_id"`
	Requester  common.Address `json:"requester"`
	VaultID    common.Address `json:"vault_id"`
	Amount     uint64         `json:"amount"`
	Fee        uint64         `json:"fee"`
	BtcAddress string         `json:"btc_address"`
}

func (ev *RedeemRequestEvent) EventName() string { return EventRedeemRequest }

type RedeemCompleteEvent struct {
	RedeemID  common.Hash    `json:"redeem_id"`
	Requester common.Address `json:"requester"`
	Fee       uint64         `json:"fee"`
}

func (ev *RedeemCompleteEvent) EventName() string { return EventRedeemComplete }

type RedeemCancelEvent struct {
	RedeemID common.Hash `json:"redeem_id"`
}

func (ev *RedeemCancelEvent) EventName() string { return EventRedeemCancel }

// EventString renders ev with its field names for debug logs.
func EventString(ev Event) string {
	return fmt.Sprintf("%s%+v", ev.EventName(), ev)
}
