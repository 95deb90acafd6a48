// Package format implements the output-formatter external collaborator
// from spec.md §6.5: a routine taking the codec handle and a format tag
// plus a key/value sideband, invoked by the pipeline for every message
// that survives the filter. The filter source language and the original
// tool's full human/tty-aware column layout remain out of scope (spec.md
// §1); this package ships the two concrete formatters needed to drive
// the CLI front-end end to end: row and c-hex.
package format

import (
	"fmt"
	"strings"

	"github.com/yanet-platform/mrtfilter/internal/bgpmsg"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// Tag names one of the output formats spec.md §6.5 lists.
type Tag string

const (
	TagRow    Tag = "row"
	TagCHex   Tag = "c-hex"
	TagNoDump Tag = "no-dump"
)

// Sideband is the per-message key/value context spec.md §6.5 describes:
// feeder address, feeder AS, timestamp, and the AS-size the message was
// decoded with.
type Sideband struct {
	FeederAddr string
	FeederAS   uint32
	Timestamp  uint32
	ASSize     int
}

// Formatter renders one post-filter message to a string.
type Formatter interface {
	Format(msg *bgpmsg.Message, sb Sideband) (string, error)
}

// New resolves a Formatter by tag. TagNoDump renders nothing and is used
// when a pipeline run only needs the filter's pass/fail side effects
// (the peer-ref bitset, S6) rather than any textual output.
func New(tag Tag) (Formatter, error) {
	switch tag {
	case TagRow:
		return RowFormatter{}, nil
	case TagCHex:
		return CHexFormatter{}, nil
	case TagNoDump, "":
		return NoDumpFormatter{}, nil
	default:
		return nil, fmt.Errorf("format: unknown tag %q", tag)
	}
}

// NoDumpFormatter renders nothing. The pipeline type-asserts against it to
// skip decoding a message entirely when the filter is trivial (spec.md
// §4.7: "if the filter is non-trivial or the output format is non-null").
type NoDumpFormatter struct{}

func (NoDumpFormatter) Format(*bgpmsg.Message, Sideband) (string, error) { return "", nil }

// RowFormatter renders one text line per message: timestamp, feeder,
// AS path, next hop, and every advertised prefix.
type RowFormatter struct{}

func (RowFormatter) Format(msg *bgpmsg.Message, sb Sideband) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s AS%d", sb.Timestamp, sb.FeederAddr, sb.FeederAS)

	if err := msg.StartRealASPath(); err != nil {
		return "", err
	}
	var path []string
	for {
		as, ok, err := msg.NextAS()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		path = append(path, fmt.Sprintf("%d", as))
	}
	fmt.Fprintf(&b, " path=%s", strings.Join(path, " "))

	if err := msg.StartNextHop(); err == nil {
		if nh, ok, err := msg.NextHop(); err == nil && ok {
			fmt.Fprintf(&b, " nexthop=%s", nh.Address())
		}
	}

	if err := msg.StartAllNLRI(); err != nil {
		return "", err
	}
	for {
		v, ok, err := msg.NextNLRI()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		b.WriteByte(' ')
		b.WriteString(nlriString(v))
	}

	return b.String(), nil
}

func nlriString(v any) string {
	switch t := v.(type) {
	case interface{ String() string }:
		return t.String()
	case *prefix.AddPathPrefix:
		return fmt.Sprintf("%s[%d]", t.Prefix.String(), t.PathID)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// CHexFormatter renders a message's raw wire bytes as the brace-and-hex
// form spec.md §8 scenario S5 exercises: `{ 0x.., 0x.., ... }`.
type CHexFormatter struct{}

func (CHexFormatter) Format(msg *bgpmsg.Message, _ Sideband) (string, error) {
	data, err := msg.Data()
	if err != nil {
		return "", err
	}
	return CHex(data), nil
}

// CHex renders b as a brace-and-hex literal, one `0xHH` element per byte.
func CHex(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("0x%02x", v)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
