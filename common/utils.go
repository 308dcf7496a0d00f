package common

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// HexStrToBytes32 converts a hex string (with/without prefix 0x) to [32]byte
func HexStrToBytes32(hexStr string) [32]byte {
	var bytes32 [32]byte
	copy(bytes32[:], ethcommon.Hex2BytesFixed(Trim0xPrefix(hexStr), 32))
	return bytes32
}

// Trim 0x or 0X prefix off the string.
func Trim0xPrefix(str string) string {
	s := strings.TrimPrefix(str, "0x")
	return strings.TrimPrefix(s, "0X")
}

func Prepend0xPrefix(str string) string {
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		return str
	}
	return "0x" + str
}

// RandBytes32 generates [32]byte with random values
func RandBytes32() [32]byte {
	var b [32]byte
	n, err := rand.Read(b[:])

	if err != nil {
		return [32]byte{}
	}
	if n != 32 {
		return [32]byte{}
	}

	return b
}

func RandBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil
	}
	return b
}

// Shorten shortens a hex string so that both sides have n characters and
// the rest is replaced with "..."
func Shorten(hexStr string, n int) string {
	str := Trim0xPrefix(hexStr)

	if len(str) <= n*2 {
		return Prepend0xPrefix(str)
	}
	return Prepend0xPrefix(str[:n] + "..." + str[len(str)-n:])
}

// MulDiv returns floor(a*b/c) computed without intermediate overflow.
// The second return value is false if c is zero or the result does not
// fit into uint64.
func MulDiv(a, b, c uint64) (uint64, bool) {
	return mulDiv(a, b, c, false)
}

// MulDivCeil is MulDiv rounding up.
func MulDivCeil(a, b, c uint64) (uint64, bool) {
	return mulDiv(a, b, c, true)
}

func mulDiv(a, b, c uint64, roundUp bool) (uint64, bool) {
	if c == 0 {
		return 0, false
	}
	prod := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	q, r := new(big.Int).QuoRem(prod, new(big.Int).SetUint64(c), new(big.Int))
	if roundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsUint64() {
		return 0, false
	}
	return q.Uint64(), true
}

// Bps returns floor(amount*bps/10000).
func Bps(amount, bps uint64) uint64 {
	v, ok := MulDiv(amount, bps, 10000)
	if !ok {
		return 0
	}
	return v
}

// CeilSecond rounds t up to a whole second. Stored timestamps are whole
// seconds and must never precede the instant they record.
func CeilSecond(t time.Time) time.Time {
	sec := t.Unix()
	if t.Nanosecond() > 0 {
		sec++
	}
	return time.Unix(sec, 0)
}
