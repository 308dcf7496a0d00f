package common

import (
	"crypto/rand"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

func RandEthAddress() ethcommon.Address {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return ethcommon.Address{}
	}
	return ethcommon.BytesToAddress(b[:])
}

// ParseAccount parses a 20-byte hex account identity.
func ParseAccount(s string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, fmt.Errorf("invalid account: %q", s)
	}
	return ethcommon.HexToAddress(s), nil
}

// ParseHash parses a 32-byte hex identifier.
func ParseHash(s string) (ethcommon.Hash, error) {
	b := ethcommon.FromHex(s)
	if len(b) != ethcommon.HashLength {
		return ethcommon.Hash{}, fmt.Errorf("invalid hash: %q", s)
	}
	return ethcommon.BytesToHash(b), nil
}
