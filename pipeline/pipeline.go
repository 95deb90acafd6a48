// Package pipeline implements the per-file processing loop from spec.md
// §4.7: read records, dispatch by kind, reconstruct and filter table-dump
// RIB entries and live-format updates, and track which peer-index entries
// a file's surviving messages referenced.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/yanet-platform/mrtfilter/internal/bgpmsg"
	"github.com/yanet-platform/mrtfilter/internal/filtervm"
	"github.com/yanet-platform/mrtfilter/internal/mrt"
	"github.com/yanet-platform/mrtfilter/ioh"
	"github.com/yanet-platform/mrtfilter/pipeline/format"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// Pipeline drives one file's record loop against a filter VM and an
// output formatter, constructed once and reused across files (spec.md §5:
// "a host may run many independent pipelines in parallel ... each owning
// its own codec / VM / trie state").
type Pipeline struct {
	log       *zap.SugaredLogger
	vm        *filtervm.VM
	formatter format.Formatter
	cfg       *Config
}

// New constructs a Pipeline, mirroring the teacher's
// NewRIB(log *zap.SugaredLogger) constructor-injection convention.
func New(log *zap.SugaredLogger, vm *filtervm.VM, formatter format.Formatter, cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{log: log, vm: vm, formatter: formatter, cfg: cfg}
}

// Run drains h to completion, calling emit for every surviving message
// and, at end of file, for every peer-index entry the file's surviving
// RIB messages referenced (spec.md §4.7 step 4). Run resets per-file
// state at entry, per step 1.
func (p *Pipeline) Run(file string, h ioh.Handle, emit func(Result) error) error {
	var (
		peerIdx       *mrt.PeerIndexTable
		seenPeerIndex bool
		refs          peerRefBitset
	)
	defer func() {
		if peerIdx != nil {
			peerIdx.Release()
		}
	}()

	for {
		rec, err := mrt.ReadRecord(h)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			p.log.Warnw("stream error, ending file", "file", file, "error", err)
			break
		}

		switch rec.Classify() {
		case mrt.KindPeerIndex:
			if seenPeerIndex {
				return fmt.Errorf("pipeline: %s: %w", file, mrt.ErrDupPeerIndex)
			}
			table, perr := mrt.ParsePeerIndex(rec.Payload)
			if perr != nil {
				p.log.Warnw("corrupt peer-index record", "file", file, "error", perr)
				continue
			}
			table.Retain()
			peerIdx = table
			seenPeerIndex = true

		case mrt.KindTableRIB:
			if err := p.handleTableRIB(file, rec, peerIdx, &refs, emit); err != nil {
				p.log.Warnw("corrupt rib record", "file", file, "error", err)
			}

		case mrt.KindUpdate:
			if rec.IsLiveFormat() {
				if err := p.handleLiveUpdate(file, rec, emit); err != nil {
					p.log.Warnw("corrupt live update record", "file", file, "error", err)
				}
			}

		case mrt.KindStateChange:
			if rec.IsLiveFormat() {
				if err := p.handleStateChange(file, rec, emit); err != nil {
					p.log.Warnw("corrupt state-change record", "file", file, "error", err)
				}
			}
		}
	}

	if seenPeerIndex && peerIdx != nil {
		for i, peer := range peerIdx.Peers {
			if refs.has(uint16(i)) {
				if err := emit(Result{File: file, Peer: peer}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// handleTableRIB iterates a table-dump-v2 RIB record (or decodes a single
// legacy table-dump record) and, per entry, rebuilds a full update
// message and runs it through the filter.
func (p *Pipeline) handleTableRIB(file string, rec *mrt.Record, peerIdx *mrt.PeerIndexTable, refs *peerRefBitset, emit func(Result) error) error {
	var (
		entries      []mrt.RIBEntry
		legacy       *mrt.PeerEntry
		hasAddPath   bool
		as32         bool
	)

	if rec.Type == mrt.TypeTableDumpV2 {
		if peerIdx == nil {
			return fmt.Errorf("%s: %w", file, mrt.ErrNoPeerIndex)
		}
		var err error
		entries, err = mrt.RIBRecordEntries(rec)
		if err != nil {
			return err
		}
		hasAddPath = rec.Flags.HasAddPath
		as32 = rec.Flags.AS32
	} else {
		dump, err := mrt.ParseLegacyTableDump(rec)
		if err != nil {
			return err
		}
		entries = []mrt.RIBEntry{{OriginatedTime: dump.Originated, Prefix: dump.Prefix, Attributes: dump.Attributes}}
		legacy = &mrt.PeerEntry{Addr: dump.PeerAddr, AS: uint32(dump.PeerAS)}
	}

	_, silent := p.formatter.(format.NoDumpFormatter)
	trivial := p.vm == nil || p.vm.IsTrivial()

	for _, entry := range entries {
		if trivial && silent {
			if rec.Type == mrt.TypeTableDumpV2 {
				refs.set(entry.PeerIndex)
			}
			if err := emit(Result{File: file, Timestamp: entry.OriginatedTime, Prefix: entry.Prefix}); err != nil {
				return err
			}
			continue
		}

		msg, err := p.rebuild(entry, hasAddPath, as32, legacy != nil)
		if err != nil {
			p.log.Warnw("rebuild_from_dump failed", "file", file, "error", err)
			continue
		}

		pass, err := p.runFilter(msg)
		if err != nil {
			p.log.Warnw("filter error", "file", file, "error", err)
			continue
		}
		if !pass {
			continue
		}

		if rec.Type == mrt.TypeTableDumpV2 {
			refs.set(entry.PeerIndex)
		}

		peer := legacy
		if peer == nil {
			if pe, ok := peerIdx.Peer(entry.PeerIndex); ok {
				peer = &pe
			}
		}
		text, err := p.render(msg, entry.OriginatedTime, peer)
		if err != nil {
			p.log.Warnw("format error", "file", file, "error", err)
			continue
		}
		if err := emit(Result{File: file, Timestamp: entry.OriginatedTime, Prefix: entry.Prefix, Text: text}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) rebuild(entry mrt.RIBEntry, hasAddPath, as32, isLegacy bool) (*bgpmsg.Message, error) {
	var nlri any = entry.Prefix
	if hasAddPath {
		nlri = &prefix.AddPathPrefix{Prefix: entry.Prefix, PathID: entry.PathID}
	}

	var msgFlags bgpmsg.OpenFlags
	if as32 {
		msgFlags |= bgpmsg.FlagASN32
	}
	if hasAddPath {
		msgFlags |= bgpmsg.FlagAddPath
	}

	var rebuildFlags bgpmsg.RebuildFlags
	if isLegacy {
		rebuildFlags |= bgpmsg.RebuildLegacyMRT
	}

	msg, err := bgpmsg.RebuildFromDump(nlri, entry.Attributes, msgFlags, rebuildFlags)
	if err != nil {
		return nil, err
	}
	if _, err := msg.Finish(); err != nil {
		return nil, err
	}
	return msg, nil
}

// handleLiveUpdate decodes a BGP4MP/BGP4MP_ET/Zebra-BGP update record's
// wrapped message and runs it through the filter.
func (p *Pipeline) handleLiveUpdate(file string, rec *mrt.Record, emit func(Result) error) error {
	hdr, err := mrt.ParseLiveHeader(rec)
	if err != nil {
		return err
	}

	var msgFlags bgpmsg.OpenFlags
	if rec.Flags.AS32 {
		msgFlags |= bgpmsg.FlagASN32
	}
	if rec.Flags.HasAddPath {
		msgFlags |= bgpmsg.FlagAddPath
	}

	msg, err := bgpmsg.OpenRead(hdr.Rest, msgFlags)
	if err != nil {
		return err
	}

	pass, err := p.runFilter(msg)
	if err != nil {
		return err
	}
	if !pass {
		return nil
	}

	peer := mrt.PeerEntry{Addr: hdr.PeerAddr, AS: hdr.PeerAS}
	text, err := p.render(msg, rec.Timestamp, &peer)
	if err != nil {
		return err
	}
	return emit(Result{File: file, Timestamp: rec.Timestamp, Text: text})
}

// handleStateChange emits a plain state-change row without running the
// filter (spec.md §4.7: "for state-change messages, emit a state-change
// row").
func (p *Pipeline) handleStateChange(file string, rec *mrt.Record, emit func(Result) error) error {
	hdr, err := mrt.ParseLiveHeader(rec)
	if err != nil {
		return err
	}
	var oldState, newState uint16
	if len(hdr.Rest) >= 4 {
		oldState = uint16(hdr.Rest[0])<<8 | uint16(hdr.Rest[1])
		newState = uint16(hdr.Rest[2])<<8 | uint16(hdr.Rest[3])
	}
	text := fmt.Sprintf("%d state-change peer=%s AS%d old=%d new=%d", rec.Timestamp, hdr.PeerAddr.Address(), hdr.PeerAS, oldState, newState)
	return emit(Result{File: file, Timestamp: rec.Timestamp, Text: text})
}

func (p *Pipeline) runFilter(msg *bgpmsg.Message) (bool, error) {
	if p.vm == nil {
		return true, nil
	}
	pass, err := p.vm.Run(msg)
	if err != nil {
		if errors.Is(err, filtervm.ErrBadPacket) {
			return false, nil
		}
		return false, err
	}
	return pass, nil
}

func (p *Pipeline) render(msg *bgpmsg.Message, timestamp uint32, peer *mrt.PeerEntry) (string, error) {
	sb := format.Sideband{Timestamp: timestamp}
	if peer != nil {
		sb.FeederAddr = peer.Addr.Address()
		sb.FeederAS = peer.AS
	}
	return p.formatter.Format(msg, sb)
}
