package patricia

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/prefix"
)

func mustPfx(t *testing.T, s string) prefix.Prefix {
	t.Helper()
	p, err := prefix.FromString(s)
	require.NoError(t, err)
	return p
}

func TestTrieRoundTrip(t *testing.T) {
	tr := Init(prefix.V4)
	p := mustPfx(t, "10.0.0.0/8")

	_, inserted, err := tr.Insert(p)
	require.NoError(t, err)
	require.True(t, inserted)

	n, ok := tr.SearchExact(p)
	require.True(t, ok)
	require.True(t, prefix.Equal(p, n.Prefix()))

	_, ok = tr.Remove(p)
	require.True(t, ok)

	_, ok = tr.SearchExact(p)
	require.False(t, ok)
}

func TestS1SearchBestAndRemove(t *testing.T) {
	tr := Init(prefix.V4)
	a := mustPfx(t, "8.2.0.0/16")
	b := mustPfx(t, "9.2.0.0/16")
	tr.Insert(a)
	tr.Insert(b)

	q := mustPfx(t, "8.2.2.0/24")
	n, ok := tr.SearchBest(q)
	require.True(t, ok)
	require.Equal(t, "8.2.0.0/16", n.Prefix().String())

	_, ok = tr.Remove(a)
	require.True(t, ok)
	_, ok = tr.SearchExact(a)
	require.False(t, ok)
}

func TestS2Supernets(t *testing.T) {
	tr := Init(prefix.V4)
	for _, s := range []string{"8.0.0.0/8", "8.2.0.0/16", "8.2.2.0/24", "8.2.2.1/32", "9.2.2.1/32"} {
		tr.Insert(mustPfx(t, s))
	}

	got := tr.SupernetsOf(mustPfx(t, "8.2.2.1/32"))
	require.Len(t, got, 4)
	want := []string{"8.0.0.0/8", "8.2.0.0/16", "8.2.2.0/24", "8.2.2.1/32"}
	for i, w := range want {
		require.Equal(t, w, got[i].Prefix().String())
	}

	got2 := tr.SupernetsOf(mustPfx(t, "9.2.2.1/32"))
	require.Len(t, got2, 1)
	require.Equal(t, "9.2.2.1/32", got2[0].Prefix().String())
}

func TestS3FirstSubnets(t *testing.T) {
	tr := Init(prefix.V4)
	tr.Insert(mustPfx(t, "0.0.0.0/0"))
	tr.Insert(mustPfx(t, "8.0.0.0/8"))

	got := tr.FirstSubnetsOf(mustPfx(t, "0.0.0.0/0"))
	require.Len(t, got, 1)
	require.Equal(t, "8.0.0.0/8", got[0].Prefix().String())
}

func TestCoverageInvariants(t *testing.T) {
	tr := Init(prefix.V4)
	p := mustPfx(t, "8.0.0.0/8")
	tr.Insert(p)
	before := tr.Coverage()

	// inserting the same prefix twice does not change coverage.
	tr.Insert(p)
	require.Equal(t, before, tr.Coverage())

	require.Equal(t, bitmath.OneLsh(24), tr.Coverage())

	// inserting the default route does not change coverage.
	tr.Insert(mustPfx(t, "0.0.0.0/0"))
	require.Equal(t, before, tr.Coverage())
}

func TestCoverageV6DefaultPlusEighth(t *testing.T) {
	tr := Init(prefix.V6)
	tr.Insert(mustPfx(t, "::/0"))
	tr.Insert(mustPfx(t, "2a00::/8"))

	require.Equal(t, bitmath.OneLsh(120), tr.Coverage())
}

func TestRemoveTwoChildrenDemotesToGlue(t *testing.T) {
	tr := Init(prefix.V4)
	tr.Insert(mustPfx(t, "8.0.0.0/7"))
	tr.Insert(mustPfx(t, "8.0.0.0/8"))
	tr.Insert(mustPfx(t, "9.0.0.0/8"))

	_, ok := tr.Remove(mustPfx(t, "8.0.0.0/7"))
	require.True(t, ok)

	// both children must still be reachable.
	_, ok = tr.SearchExact(mustPfx(t, "8.0.0.0/8"))
	require.True(t, ok)
	_, ok = tr.SearchExact(mustPfx(t, "9.0.0.0/8"))
	require.True(t, ok)
	require.Equal(t, 2, tr.Count())
}

func TestIteratorSkipsGlue(t *testing.T) {
	tr := Init(prefix.V4)
	for _, s := range []string{"1.0.0.0/8", "2.0.0.0/8", "1.2.0.0/16"} {
		tr.Insert(mustPfx(t, s))
	}
	var seen []string
	tr.Iterator(func(n Node) bool {
		seen = append(seen, n.Prefix().String())
		return true
	})
	require.Len(t, seen, 3)
}
