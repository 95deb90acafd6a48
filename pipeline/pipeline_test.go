package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/internal/filtervm"
	"github.com/yanet-platform/mrtfilter/internal/mrt"
	"github.com/yanet-platform/mrtfilter/ioh"
	"github.com/yanet-platform/mrtfilter/pipeline/format"
)

func appendRecord(buf []byte, typ, subtype uint16, payload []byte) []byte {
	var hdr [12]byte
	bitmath.PutUint32(hdr[0:4], 0)
	bitmath.PutUint16(hdr[4:6], typ)
	bitmath.PutUint16(hdr[6:8], subtype)
	bitmath.PutUint32(hdr[8:12], uint32(len(payload)))
	buf = append(buf, hdr[:]...)
	return append(buf, payload...)
}

func peerIndexPayload(t *testing.T, n int) []byte {
	t.Helper()
	var p []byte
	p = append(p, 0, 0, 0, 1) // collector id
	p = append(p, 0, 0)       // empty view name
	p = append(p, byte(n>>8), byte(n))
	for i := 0; i < n; i++ {
		p = append(p, 0)                // v4, AS16
		p = append(p, 0, 0, 0, byte(i)) // peer id
		p = append(p, 192, 0, 2, byte(i))
		p = append(p, 0xfd, 0xe8) // AS 65000
	}
	return p
}

func ribRecordPayload(t *testing.T, peerIdx uint16, octet byte) []byte {
	t.Helper()
	var p []byte
	p = append(p, 0, 0, 0, 0) // sequence
	p = append(p, 24)         // prefix bit length
	p = append(p, 203, 0, octet)
	p = append(p, 0, 1) // entry count

	p = append(p, byte(peerIdx>>8), byte(peerIdx))
	p = append(p, 0, 0, 0, 100) // originated time
	attrs := []byte{0x40, 0x01, 0x01, 0x00}
	p = append(p, 0, byte(len(attrs)))
	p = append(p, attrs...)
	return p
}

// TestHundredRecordsScenarioS6 reproduces spec.md §8 scenario S6: a
// hundred records (one peer-index, ninety-nine RIB records referencing
// it) pass through a trivial filter in no-dump mode. The pipeline should
// emit 99 messages plus exactly one retained peer.
func TestHundredRecordsScenarioS6(t *testing.T) {
	var data []byte
	data = appendRecord(data, mrt.TypeTableDumpV2, mrt.TableDumpV2PeerIndex, peerIndexPayload(t, 1))
	for i := 0; i < 99; i++ {
		data = appendRecord(data, mrt.TypeTableDumpV2, mrt.TableDumpV2RIBIPv4Unicast, ribRecordPayload(t, 0, byte(i)))
	}

	img := &filtervm.Image{Code: []filtervm.Op{filtervm.MakeOp(filtervm.OpLOAD, 1)}}
	vm := filtervm.New(img)
	fmtr, err := format.New(format.TagNoDump)
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	p := New(log, vm, fmtr, DefaultConfig())

	var results []Result
	h := ioh.FromReader(bytes.NewReader(data))
	err = p.Run("s6.mrt", h, func(r Result) error {
		results = append(results, r)
		return nil
	})
	require.NoError(t, err)

	var messages, peers int
	for _, r := range results {
		if r.Peer.AS != 0 {
			peers++
		} else {
			messages++
		}
	}
	require.Equal(t, 99, messages)
	require.Equal(t, 1, peers)
}

func TestDuplicatePeerIndexEndsFile(t *testing.T) {
	var data []byte
	data = appendRecord(data, mrt.TypeTableDumpV2, mrt.TableDumpV2PeerIndex, peerIndexPayload(t, 1))
	data = appendRecord(data, mrt.TypeTableDumpV2, mrt.TableDumpV2PeerIndex, peerIndexPayload(t, 1))

	img := &filtervm.Image{Code: []filtervm.Op{filtervm.MakeOp(filtervm.OpLOAD, 1)}}
	vm := filtervm.New(img)
	fmtr, _ := format.New(format.TagNoDump)
	log := zap.NewNop().Sugar()
	p := New(log, vm, fmtr, DefaultConfig())

	h := ioh.FromReader(bytes.NewReader(data))
	err := p.Run("dup.mrt", h, func(Result) error { return nil })
	require.ErrorIs(t, err, mrt.ErrDupPeerIndex)
}

func TestRowFormatProducesText(t *testing.T) {
	var data []byte
	data = appendRecord(data, mrt.TypeTableDumpV2, mrt.TableDumpV2PeerIndex, peerIndexPayload(t, 1))
	data = appendRecord(data, mrt.TypeTableDumpV2, mrt.TableDumpV2RIBIPv4Unicast, ribRecordPayload(t, 0, 1))

	img := &filtervm.Image{Code: []filtervm.Op{filtervm.MakeOp(filtervm.OpLOAD, 1)}}
	vm := filtervm.New(img)
	fmtr, err := format.New(format.TagRow)
	require.NoError(t, err)
	log := zap.NewNop().Sugar()
	p := New(log, vm, fmtr, &Config{Format: format.TagRow})

	var results []Result
	h := ioh.FromReader(bytes.NewReader(data))
	err = p.Run("row.mrt", h, func(r Result) error {
		results = append(results, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, results, 2) // one message + one peer at end of file
	require.Contains(t, results[0].Text, "203.0.1.0/24")
}
