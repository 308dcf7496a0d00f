package btcaddr

import (
	"testing"

	"github.com/TEENet-io/onebtc-go/agreement"
	"github.com/TEENet-io/onebtc-go/common"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var params = &chaincfg.RegressionNetParams

func scalarKey(v byte) *btcec.PrivateKey {
	var b [32]byte
	b[31] = v
	priv, _ := btcec.PrivKeyFromBytes(b[:])
	return priv
}

func TestDeriveSmallScalars(t *testing.T) {
	// P = 1·G, id = 1 => P' = 2·G
	vault := scalarKey(1)
	id := ethcommon.BigToHash(ethcommon.Big1)

	derived, err := DeriveDepositKey(vault.PubKey(), id)
	assert.NoError(t, err)
	assert.True(t, derived.IsEqual(scalarKey(2).PubKey()))

	priv, err := DeriveDepositPrivKey(vault, id)
	assert.NoError(t, err)
	assert.True(t, priv.PubKey().IsEqual(derived))
}

func TestDeriveZeroTweak(t *testing.T) {
	vault, _ := btcec.NewPrivateKey()
	derived, err := DeriveDepositKey(vault.PubKey(), ethcommon.Hash{})
	assert.NoError(t, err)
	assert.True(t, derived.IsEqual(vault.PubKey()))
}

func TestDeriveDepositAddress(t *testing.T) {
	vault, _ := btcec.NewPrivateKey()
	id := ethcommon.Hash(common.RandBytes32())

	a1, err := DeriveDepositAddress(vault.PubKey(), id, params)
	assert.NoError(t, err)
	a2, err := DeriveDepositAddress(vault.PubKey(), id, params)
	assert.NoError(t, err)
	assert.Equal(t, a1.EncodeAddress(), a2.EncodeAddress())

	// the vault can spend from the deposit address
	priv, err := DeriveDepositPrivKey(vault, id)
	assert.NoError(t, err)
	expected := btcutil.Hash160(priv.PubKey().SerializeUncompressed())
	assert.Equal(t, expected, a1.ScriptAddress())
	assert.True(t, a1.IsForNet(params))

	// a different id gives an unrelated address
	other := ethcommon.Hash(common.RandBytes32())
	a3, err := DeriveDepositAddress(vault.PubKey(), other, params)
	assert.NoError(t, err)
	assert.NotEqual(t, a1.EncodeAddress(), a3.EncodeAddress())
	assert.NotEqual(t, btcutil.Hash160(vault.PubKey().SerializeUncompressed()), a1.ScriptAddress())
}

func TestParseVaultKey(t *testing.T) {
	vault, _ := btcec.NewPrivateKey()

	pub, err := ParseVaultKey(vault.PubKey().SerializeCompressed())
	assert.NoError(t, err)
	assert.True(t, pub.IsEqual(vault.PubKey()))

	raw := vault.PubKey().SerializeUncompressed()
	var x, y [32]byte
	copy(x[:], raw[1:33])
	copy(y[:], raw[33:])
	pub, err = ParseVaultKeyXY(x, y)
	assert.NoError(t, err)
	assert.True(t, pub.IsEqual(vault.PubKey()))

	y[31] ^= 1
	_, err = ParseVaultKeyXY(x, y)
	assert.ErrorIs(t, err, agreement.ErrInvalidPublicKey)
}
