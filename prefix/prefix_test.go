package prefix

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromStringRoundTrip(t *testing.T) {
	cases := []string{
		"8.2.0.0/16",
		"0.0.0.0/0",
		"255.255.255.255/32",
		"2001:db8::/32",
		"::1/128",
		"2a00::/8",
		"::/0",
	}
	for _, s := range cases {
		p, err := FromString(s)
		require.NoError(t, err, s)
		require.Equal(t, s, p.String(), "round trip for %s", s)
	}
}

func TestFromStringDefaultsLength(t *testing.T) {
	p, err := FromString("10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 32, p.BitLen)

	p6, err := FromString("::1")
	require.NoError(t, err)
	require.Equal(t, 128, p6.BitLen)
}

func TestCanonicalCompression(t *testing.T) {
	p, err := FromString("2001:0db8:0000:0000:0001:0000:0000:0001/128")
	require.NoError(t, err)
	require.Equal(t, "2001:db8::1:0:0:1/128", p.String())
}

func TestEqualUnderMask(t *testing.T) {
	a, _ := FromString("10.1.2.3/32")
	b, _ := FromString("10.1.2.200/32")

	for m := 0; m <= 24; m++ {
		require.True(t, EqualUnderMask(a, b, m), "m=%d", m)
	}
	require.False(t, EqualUnderMask(a, b, 25))

	require.True(t, EqualUnderMask(a, a, 32))
	require.True(t, EqualUnderMask(a, b, 0))
}

func TestEqualMatchesPEqWhenSameBitLen(t *testing.T) {
	a, _ := FromString("10.1.2.0/24")
	b, _ := FromString("10.1.2.0/24")
	c, _ := FromString("10.1.3.0/24")

	require.True(t, Equal(a, b))
	require.True(t, EqualUnderMask(a, b, a.BitLen))
	require.False(t, Equal(a, c))
	require.False(t, EqualUnderMask(a, c, a.BitLen))
}

func TestIsReserved(t *testing.T) {
	p, _ := FromString("10.5.5.5/32")
	require.True(t, IsReserved(p))

	p2, _ := FromString("8.8.8.8/32")
	require.False(t, IsReserved(p2))

	p3, _ := FromString("fc00::1/128")
	require.True(t, IsReserved(p3))
}
