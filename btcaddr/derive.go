// Package btcaddr derives per-request deposit keys from a vault master key.
//
// For a vault public key P and request id r the deposit key is
//
//	P' = P + (r mod n)·G
//
// so only the holder of p can spend from P' (p' = p + r mod n), while two
// deposit addresses of the same vault cannot be linked without knowing r.
package btcaddr

import (
	"fmt"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ParseVaultKey parses a compressed or uncompressed SEC1 public key.
func ParseVaultKey(b []byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agreement.ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// ParseVaultKeyXY builds a public key from its affine coordinates.
func ParseVaultKeyXY(x, y [32]byte) (*btcec.PublicKey, error) {
	b := make([]byte, 0, 65)
	b = append(b, 0x04)
	b = append(b, x[:]...)
	b = append(b, y[:]...)
	return ParseVaultKey(b)
}

func tweak(id ethcommon.Hash) btcec.ModNScalar {
	var k btcec.ModNScalar
	// reduces modulo the group order
	k.SetByteSlice(id[:])
	return k
}

// DeriveDepositKey returns P + (id mod n)·G.
func DeriveDepositKey(vaultKey *btcec.PublicKey, id ethcommon.Hash) (*btcec.PublicKey, error) {
	k := tweak(id)

	var p, kG, sum btcec.JacobianPoint
	vaultKey.AsJacobian(&p)
	btcec.ScalarBaseMultNonConst(&k, &kG)
	btcec.AddNonConst(&p, &kG, &sum)
	sum.ToAffine()

	if sum.X.IsZero() && sum.Y.IsZero() {
		return nil, fmt.Errorf("%w: derived point at infinity", agreement.ErrInvalidPublicKey)
	}
	return btcec.NewPublicKey(&sum.X, &sum.Y), nil
}

// PubKeyHashAddress returns the P2PKH address of the uncompressed key.
func PubKeyHashAddress(pub *btcec.PublicKey, params *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	return btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeUncompressed()), params)
}

// DeriveDepositAddress returns the P2PKH address a requester pays to for
// request id.
func DeriveDepositAddress(vaultKey *btcec.PublicKey, id ethcommon.Hash, params *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	pub, err := DeriveDepositKey(vaultKey, id)
	if err != nil {
		return nil, err
	}
	return PubKeyHashAddress(pub, params)
}

// DeriveDepositPrivKey is the vault side of the derivation: p + id mod n.
func DeriveDepositPrivKey(vaultPriv *btcec.PrivateKey, id ethcommon.Hash) (*btcec.PrivateKey, error) {
	k := tweak(id)
	k.Add(&vaultPriv.Key)
	if k.IsZero() {
		return nil, fmt.Errorf("derived private key is zero")
	}
	b := k.Bytes()
	priv, _ := btcec.PrivKeyFromBytes(b[:])
	return priv, nil
}
