package filtervm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanet-platform/mrtfilter/internal/bgpattr"
	"github.com/yanet-platform/mrtfilter/internal/bgpmsg"
	"github.com/yanet-platform/mrtfilter/internal/patricia"
	"github.com/yanet-platform/mrtfilter/prefix"
)

func mustPrefix(t *testing.T, s string) prefix.Prefix {
	t.Helper()
	p, err := prefix.FromString(s)
	require.NoError(t, err)
	return p
}

func buildMessage(t *testing.T, nlri string, ases []uint32, comms []bgpattr.Community) *bgpmsg.Message {
	t.Helper()
	m, err := bgpmsg.OpenWrite(bgpmsg.TypeUpdate, 0)
	require.NoError(t, err)

	require.NoError(t, m.BeginWithdrawn())
	require.NoError(t, m.EndWithdrawn())

	require.NoError(t, m.BeginAttributes())
	require.NoError(t, m.PutAttribute(bgpattr.FlagTransitive, bgpattr.Origin, []byte{bgpattr.OriginIGP}))
	segs := []bgpattr.Segment{{Type: bgpattr.SegSequence, ASes: ases}}
	require.NoError(t, m.PutAttribute(bgpattr.FlagTransitive, bgpattr.ASPath, bgpattr.EncodeSegments(segs, 2)))
	require.NoError(t, m.PutAttribute(bgpattr.FlagTransitive, bgpattr.NextHop, []byte{10, 0, 0, 1}))
	if len(comms) > 0 {
		var buf []byte
		for _, c := range comms {
			buf = append(buf, byte(c>>24), byte(c>>16), byte(c>>8), byte(c))
		}
		require.NoError(t, m.PutAttribute(bgpattr.FlagOptional|bgpattr.FlagTransitive, bgpattr.CommunityCode, buf))
	}
	require.NoError(t, m.EndAttributes())

	p := mustPrefix(t, nlri)
	require.NoError(t, m.PutNLRI(p, 0))

	data, err := m.Finish()
	require.NoError(t, err)

	rm, err := bgpmsg.OpenRead(data, 0)
	require.NoError(t, err)
	return rm
}

func TestTrivialPassFastPath(t *testing.T) {
	img := &Image{Code: []Op{MakeOp(OpLOAD, 1)}}
	vm := New(img)
	msg := buildMessage(t, "192.0.2.0/24", []uint32{65001, 65002}, nil)

	pass, err := vm.Run(msg)
	require.NoError(t, err)
	require.True(t, pass)
}

func TestDeterministicAcrossRuns(t *testing.T) {
	trie := patricia.Init(prefix.V4)
	_, _, err := trie.Insert(mustPrefix(t, "192.0.2.0/24"))
	require.NoError(t, err)

	img := &Image{
		Code: []Op{
			MakeOp(OpSETTRIE, 0),
			MakeOp(OpCALL, FnNLRIInsert),
			MakeOp(OpEXACT, byte(0)),
		},
		Functions: DefaultFunctions(),
		TrieSlots: [trieSlotCount]*patricia.Trie{trie},
	}
	msg := buildMessage(t, "192.0.2.0/24", []uint32{65001}, nil)

	vm := New(img)
	first, err := vm.Run(msg)
	require.NoError(t, err)

	second, err := vm.Run(msg)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.True(t, first)
}

func TestPrefixMatchSubnet(t *testing.T) {
	trie := patricia.Init(prefix.V4)
	_, _, err := trie.Insert(mustPrefix(t, "192.0.0.0/16"))
	require.NoError(t, err)

	img := &Image{
		Code: []Op{
			MakeOp(OpSETTRIE, 0),
			MakeOp(OpCALL, FnNLRIInsert),
			MakeOp(OpSUBNET, 0),
		},
		Functions: DefaultFunctions(),
		TrieSlots: [trieSlotCount]*patricia.Trie{trie},
	}
	msg := buildMessage(t, "192.0.2.0/24", []uint32{65001}, nil)

	pass, err := New(img).Run(msg)
	require.NoError(t, err)
	require.True(t, pass)

	noHitTrie := patricia.Init(prefix.V4)
	img.TrieSlots[0] = noHitTrie
	pass, err = New(img).Run(msg)
	require.NoError(t, err)
	require.False(t, pass)
}

func TestASPathMatchFamily(t *testing.T) {
	consts := ConstPool{
		{Kind: ConstASVector, ASVec: []uint32{65001, 65002}},
	}
	img := &Image{
		Code: []Op{
			MakeOp(OpLOADK, 0),
			MakeOp(OpUNPACK, 0),
			MakeOp(OpASPSTARTS, byte(MaskReal)),
		},
		Consts: consts,
	}
	msg := buildMessage(t, "192.0.2.0/24", []uint32{65001, 65002, 65003}, nil)

	pass, err := New(img).Run(msg)
	require.NoError(t, err)
	require.True(t, pass)

	img.Code[2] = MakeOp(OpASPEXACT, byte(MaskReal))
	pass, err = New(img).Run(msg)
	require.NoError(t, err)
	require.False(t, pass)
}

func TestCommExactMatchesSet(t *testing.T) {
	consts := ConstPool{
		{
			Kind:     ConstCommunitySet,
			CommKind: CommRegular,
			Comms:    []string{packCommunity(bgpattr.Community(0x10020064))},
		},
	}
	img := &Image{
		Code: []Op{
			MakeOp(OpCOMMEXACT, 0),
		},
		Consts: consts,
	}
	msg := buildMessage(t, "192.0.2.0/24", []uint32{65001}, []bgpattr.Community{0x10020064})

	pass, err := New(img).Run(msg)
	require.NoError(t, err)
	require.True(t, pass)

	other := buildMessage(t, "192.0.2.0/24", []uint32{65001}, []bgpattr.Community{0x10020065})
	pass, err = New(img).Run(other)
	require.NoError(t, err)
	require.False(t, pass)
}

func TestIllegalOpcode(t *testing.T) {
	img := &Image{Code: []Op{MakeOp(0xff, 0)}}
	msg := buildMessage(t, "192.0.2.0/24", []uint32{65001}, nil)

	_, err := New(img).Run(msg)
	require.ErrorIs(t, err, ErrIllegalOpcode)
}

func TestBadPacketOnEmptyAccumulator(t *testing.T) {
	img := &Image{Code: []Op{MakeOp(OpSTORE, 0)}}
	msg := buildMessage(t, "192.0.2.0/24", []uint32{65001}, nil)

	_, err := New(img).Run(msg)
	require.ErrorIs(t, err, ErrBadPacket)
}
