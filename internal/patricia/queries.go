package patricia

import "github.com/yanet-platform/mrtfilter/prefix"

// SupernetsOf performs a descending walk from the root, collecting every
// non-glue node encountered whose bits agree with the query under that
// node's own bit-length (so the query's exact entry, if present, is the
// last element), terminated by the first mismatch (spec.md §4.3).
func (t *Trie) SupernetsOf(p prefix.Prefix) []Node {
	var out []Node
	node := t.head
	for node != nil {
		if !node.glue {
			if !prefix.EqualUnderMask(node.prefix, p, node.prefix.BitLen) {
				break
			}
			out = append(out, Node{n: node})
		}
		if node.bit >= p.BitLen {
			break
		}
		var next *node
		if node.bit < t.maxBitLen && bitOf(p, node.bit) {
			next = node.right
		} else {
			next = node.left
		}
		if next == nil {
			break
		}
		node = next
	}
	return out
}

// SubnetsOf descends to the first node of bit-length >= the query's, then
// runs a left-first DFS collecting non-glue descendants whose bits match
// the query under the query's bit-length.
func (t *Trie) SubnetsOf(p prefix.Prefix) []Node {
	start := t.descendTo(p, p.BitLen)
	var out []Node
	var dfs func(*node)
	dfs = func(n *node) {
		if n == nil {
			return
		}
		if !n.glue && prefix.EqualUnderMask(n.prefix, p, p.BitLen) {
			out = append(out, Node{n: n})
		}
		dfs(n.left)
		dfs(n.right)
	}
	dfs(start)
	return out
}

// FirstSubnetsOf is like SubnetsOf but stops descending below each first
// non-glue hit, returning the immediate non-glue cover. The query's own
// entry, if present, is not reported; the walk continues below it.
func (t *Trie) FirstSubnetsOf(p prefix.Prefix) []Node {
	start := t.descendTo(p, p.BitLen)
	var out []Node
	var dfs func(*node)
	dfs = func(n *node) {
		if n == nil {
			return
		}
		if !n.glue && n.bit > p.BitLen && prefix.EqualUnderMask(n.prefix, p, p.BitLen) {
			out = append(out, Node{n: n})
			return
		}
		dfs(n.left)
		dfs(n.right)
	}
	dfs(start)
	return out
}

// RelatedOf returns the union of SupernetsOf and SubnetsOf, each user
// prefix reported exactly once.
func (t *Trie) RelatedOf(p prefix.Prefix) []Node {
	supers := t.SupernetsOf(p)
	strict := supers[:0:0]
	for _, n := range supers {
		if n.n.bit < p.BitLen {
			strict = append(strict, n)
		}
	}
	return append(strict, t.SubnetsOf(p)...)
}

// IsSubnetOf reports whether any entry in the trie is a subnet of p.
func (t *Trie) IsSubnetOf(p prefix.Prefix) bool {
	start := t.descendTo(p, p.BitLen)
	return anyMatch(start, p)
}

func anyMatch(n *node, p prefix.Prefix) bool {
	if n == nil {
		return false
	}
	if !n.glue && prefix.EqualUnderMask(n.prefix, p, p.BitLen) {
		return true
	}
	return anyMatch(n.left, p) || anyMatch(n.right, p)
}

// IsSupernetOf reports whether any entry in the trie is a supernet of
// (or equal to) p.
func (t *Trie) IsSupernetOf(p prefix.Prefix) bool {
	node := t.head
	for node != nil {
		if !node.glue && prefix.EqualUnderMask(node.prefix, p, node.prefix.BitLen) {
			return true
		}
		if node.bit >= p.BitLen {
			return false
		}
		var next *node
		if node.bit < t.maxBitLen && bitOf(p, node.bit) {
			next = node.right
		} else {
			next = node.left
		}
		if next == nil {
			return false
		}
		node = next
	}
	return false
}

// IsRelatedOf reports whether p is related (subnet, supernet, or equal)
// to any trie entry.
func (t *Trie) IsRelatedOf(p prefix.Prefix) bool {
	return t.IsSupernetOf(p) || t.IsSubnetOf(p)
}

// Iterator performs a pre-order depth-first walk skipping glue nodes.
func (t *Trie) Iterator(fn func(Node) bool) {
	var walk func(*node) bool
	walk = func(n *node) bool {
		if n == nil {
			return true
		}
		if !n.glue {
			if !fn(Node{n: n}) {
				return false
			}
		}
		if !walk(n.left) {
			return false
		}
		return walk(n.right)
	}
	walk(t.head)
}
