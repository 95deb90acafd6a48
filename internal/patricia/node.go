package patricia

import "github.com/yanet-platform/mrtfilter/prefix"

// node is a patricia trie node (spec.md §3 "Patricia node"). glue nodes
// exist purely to provide a branch point: they carry no user prefix or
// payload and must be invisible to query results and to Iterator. The
// source represents glue-ness by overloading the low bit of the parent
// pointer; in this port it is a plain boolean field.
type node struct {
	bit    int // bit position this node tests / the prefix's bit length for user nodes
	prefix prefix.Prefix
	payload any
	glue    bool

	parent, left, right *node
}

// Node is the caller-visible handle returned by Insert/SearchExact/etc. It
// is always a non-glue, user-carrying node.
type Node struct {
	n *node
}

// Prefix returns the prefix stored at this node.
func (h Node) Prefix() prefix.Prefix { return h.n.prefix }

// Payload returns the value associated with this node by Insert/SetPayload.
func (h Node) Payload() any { return h.n.payload }

// SetPayload updates the value associated with this node.
func (h Node) SetPayload(v any) { h.n.payload = v }

func wrap(n *node) (Node, bool) {
	if n == nil {
		return Node{}, false
	}
	return Node{n: n}, true
}
