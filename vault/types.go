package vault

import (
	"math"
	"time"

	"github.com/TEENet-io/onebtc-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Vault struct {
	ID ethcommon.Address
	// PublicKey is the 65-byte uncompressed secp256k1 key.
	PublicKey    []byte
	Collateral   uint64
	Issued       uint64
	ToBeIssued   uint64
	ToBeRedeemed uint64
	CreatedAt    time.Time
}

// Used is the capacity backed by the collateral right now.
func (v *Vault) Used() uint64 {
	return v.Issued + v.ToBeIssued + v.ToBeRedeemed
}

// Limit is the most capacity the collateral can back at ratioPercent.
func (v *Vault) Limit(ratioPercent uint64) uint64 {
	limit, ok := common.MulDiv(v.Collateral, 100, ratioPercent)
	if !ok {
		return 0
	}
	return limit
}

// Issuable is the capacity left for new issue requests.
func (v *Vault) Issuable(ratioPercent uint64) uint64 {
	limit, used := v.Limit(ratioPercent), v.Used()
	if used >= limit {
		return 0
	}
	return limit - used
}

// FreeCollateral is the collateral not needed to back the used capacity.
func (v *Vault) FreeCollateral(ratioPercent uint64) uint64 {
	locked, ok := common.MulDivCeil(v.Used(), ratioPercent, 100)
	if !ok {
		locked = math.MaxUint64
	}
	if locked >= v.Collateral {
		return 0
	}
	return v.Collateral - locked
}

type sqlVault struct {
	ID           string
	PubKey       string
	Collateral   int64
	Issued       int64
	ToBeIssued   int64
	ToBeRedeemed int64
	CreatedAt    int64
}

func (s *sqlVault) encode(v *Vault) *sqlVault {
	s.ID = ethcommon.Bytes2Hex(v.ID[:])
	s.PubKey = ethcommon.Bytes2Hex(v.PublicKey)
	s.Collateral = int64(v.Collateral)
	s.Issued = int64(v.Issued)
	s.ToBeIssued = int64(v.ToBeIssued)
	s.ToBeRedeemed = int64(v.ToBeRedeemed)
	s.CreatedAt = v.CreatedAt.Unix()
	return s
}

func (s *sqlVault) decode() *Vault {
	return &Vault{
		ID:           ethcommon.HexToAddress(s.ID),
		PublicKey:    ethcommon.Hex2Bytes(s.PubKey),
		Collateral:   uint64(s.Collateral),
		Issued:       uint64(s.Issued),
		ToBeIssued:   uint64(s.ToBeIssued),
		ToBeRedeemed: uint64(s.ToBeRedeemed),
		CreatedAt:    time.Unix(s.CreatedAt, 0),
	}
}
