package bitmath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint128RoundTrip(t *testing.T) {
	cases := []Uint128{
		FromUint64(0),
		FromUint64(1),
		FromUint64(1 << 24),
		OneLsh(120),
		OneLsh(127),
		{Hi: 0x1234, Lo: 0xdeadbeef},
	}
	for _, base := range []int{2, 8, 10, 16, 36} {
		for _, x := range cases {
			s := x.Text(base)
			got := ParseUint128(s, base)
			require.Equal(t, x, got.Value, "base %d: %s", base, s)
			require.False(t, got.Overflow)
		}
	}
}

func TestUint128OneLsh(t *testing.T) {
	require.Equal(t, Uint128{Lo: 1 << 24}, OneLsh(24))
	require.Equal(t, Uint128{Hi: 1 << 56}, OneLsh(120))
	require.Equal(t, Uint128{Hi: 1 << 63}, OneLsh(127))
}

func TestUint128Arithmetic(t *testing.T) {
	a := FromUint64(100)
	b := FromUint64(37)
	require.Equal(t, FromUint64(137), a.Add(b))
	require.Equal(t, FromUint64(63), a.Sub(b))

	big := OneLsh(64)
	require.Equal(t, Uint128{Hi: 1}, big)
	require.Equal(t, FromUint64(0xffffffffffffffff), big.Sub(FromUint64(1)))
}

func TestUint128QuoRem(t *testing.T) {
	a := OneLsh(100)
	b := FromUint64(3)
	q, r := a.QuoRem(b)
	require.Equal(t, a, q.Mul(b).Add(r))
}

func TestParseUint128Overflow(t *testing.T) {
	s := MaxUint128.Text(10)
	got := ParseUint128(s, 10)
	require.False(t, got.Overflow)

	// one more digit appended must overflow and saturate
	got = ParseUint128(s+"9", 10)
	require.True(t, got.Overflow)
	require.Equal(t, MaxUint128, got.Value)
}

func TestParseUint128HexPrefix(t *testing.T) {
	got := ParseUint128("0x1A", 0)
	require.Equal(t, FromUint64(26), got.Value)
	require.Equal(t, 4, got.Consumed)
}
