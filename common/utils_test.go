package common

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMulDiv(t *testing.T) {
	v, ok := MulDiv(10, 100, 150)
	assert.True(t, ok)
	assert.Equal(t, uint64(6), v)

	v, ok = MulDivCeil(10, 100, 150)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), v)

	// product overflows uint64 but the quotient does not
	v, ok = MulDiv(math.MaxUint64, 150, 300)
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64/2), v)

	_, ok = MulDiv(math.MaxUint64, 2, 1)
	assert.False(t, ok)

	_, ok = MulDiv(1, 1, 0)
	assert.False(t, ok)
}

func TestBps(t *testing.T) {
	assert.Equal(t, uint64(500000), Bps(1e8, 50))
	assert.Equal(t, uint64(0), Bps(199, 50))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "0x1234...cdef", Shorten("0x1234567890abcdef", 4))
	assert.Equal(t, "0x1234", Shorten("1234", 4))
}

func TestCeilSecond(t *testing.T) {
	assert.Equal(t, time.Unix(100, 0), CeilSecond(time.Unix(100, 0)))
	assert.Equal(t, time.Unix(101, 0), CeilSecond(time.Unix(100, 1)))
	assert.Equal(t, time.Unix(101, 0), CeilSecond(time.Unix(100, 900*int64(time.Millisecond))))
}
