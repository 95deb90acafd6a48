// Package patricia implements the bit-trie over network prefixes from
// spec.md §4.3: insert/search/remove with glue-node path compression, a
// slab allocator, and the supernet/subnet/coverage query surface used by
// the filter VM's trie slots.
package patricia

import (
	"github.com/yanet-platform/mrtfilter/bitmath"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// Trie is a patricia trie over either IPv4 or IPv6 prefixes, never both.
type Trie struct {
	maxBitLen int
	count     int
	head      *node
	s         slab
}

// Init returns a new, empty trie over the given family; each call yields
// independent state.
func Init(fam prefix.Family) *Trie {
	return &Trie{maxBitLen: fam.MaxBitLen()}
}

// Count returns the number of user-carrying (non-glue) prefixes.
func (t *Trie) Count() int { return t.count }

// Clear removes every entry but keeps the slab's pages allocated for
// reuse (spec.md §4.3/§5).
func (t *Trie) Clear() {
	t.head = nil
	t.count = 0
	t.s.clear()
}

func bitOf(p prefix.Prefix, i int) bool {
	if i >= p.BitLen {
		return false
	}
	return p.Bit(i)
}

// Insert walks by bit position, hanging the new node below an existing
// node that covers it, placing it above an existing node it covers,
// splitting with a glue node where the two diverge, or promoting an
// existing glue node to a user node when the inserted prefix matches its
// position exactly. insertedFlag distinguishes a freshly created user
// node from one that already existed.
func (t *Trie) Insert(p prefix.Prefix) (Node, bool, error) {
	if t.head == nil {
		n := t.s.alloc()
		n.prefix = p
		n.bit = p.BitLen
		t.head = n
		t.count++
		h, _ := wrap(n)
		return h, true, nil
	}

	node := t.head
	for node.bit < p.BitLen || node.glue {
		if node.bit < t.maxBitLen && bitOf(p, node.bit) {
			if node.right == nil {
				break
			}
			node = node.right
		} else {
			if node.left == nil {
				break
			}
			node = node.left
		}
	}

	checkBit := node.bit
	if p.BitLen < checkBit {
		checkBit = p.BitLen
	}
	differBit := 0
	for differBit < checkBit {
		if bitOf(node.prefix, differBit) != bitOf(p, differBit) {
			break
		}
		differBit++
	}

	walk := node
	parent := walk.parent
	for parent != nil && parent.bit >= differBit {
		walk = parent
		parent = walk.parent
	}

	if differBit == p.BitLen && walk.bit == p.BitLen {
		if !walk.glue {
			h, _ := wrap(walk)
			return h, false, nil
		}
		// promote glue -> user
		walk.prefix = p
		walk.glue = false
		t.count++
		h, _ := wrap(walk)
		return h, true, nil
	}

	newNode := t.s.alloc()
	newNode.prefix = p
	newNode.bit = p.BitLen

	if walk.bit == differBit {
		// walk covers p and its child slot on p's side is free
		newNode.parent = walk
		if walk.bit < t.maxBitLen && bitOf(p, walk.bit) {
			walk.right = newNode
		} else {
			walk.left = newNode
		}
	} else if differBit == p.BitLen {
		// new node becomes the parent of walk
		if p.BitLen < t.maxBitLen && bitOf(walk.prefix, p.BitLen) {
			newNode.right = walk
		} else {
			newNode.left = walk
		}
		newNode.parent = walk.parent
		t.reparent(walk, newNode)
		walk.parent = newNode
	} else {
		glue := t.s.alloc()
		glue.glue = true
		glue.bit = differBit
		glue.parent = walk.parent

		if bitOf(p, differBit) {
			glue.right = newNode
			glue.left = walk
		} else {
			glue.right = walk
			glue.left = newNode
		}
		newNode.parent = glue
		t.reparent(walk, glue)
		walk.parent = glue
	}

	t.count++
	h, _ := wrap(newNode)
	return h, true, nil
}

// reparent rewires old's former parent link to point at replacement,
// or updates t.head when old was the root.
func (t *Trie) reparent(old, replacement *node) {
	p := old.parent
	if p == nil {
		t.head = replacement
		return
	}
	if p.right == old {
		p.right = replacement
	} else {
		p.left = replacement
	}
}

// descendTo returns the deepest node reached while walking by bit
// position, same traversal rule as Insert.
func (t *Trie) descendTo(p prefix.Prefix, limitBit int) *node {
	node := t.head
	for node != nil && (node.bit < limitBit || node.glue) {
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
	return node
}

// SearchExact returns the user node whose prefix equals p exactly.
func (t *Trie) SearchExact(p prefix.Prefix) (Node, bool) {
	if t.head == nil {
		return Node{}, false
	}
	node := t.descendTo(p, p.BitLen)
	if node == nil || node.glue || node.bit != p.BitLen {
		return Node{}, false
	}
	if !prefix.EqualUnderMask(node.prefix, p, p.BitLen) {
		return Node{}, false
	}
	return wrap(node)
}

// SearchBest returns the user node with the longest prefix that is a
// supernet of p (bit-length <= p's and bits matching). Glue nodes never
// match.
func (t *Trie) SearchBest(p prefix.Prefix) (Node, bool) {
	if t.head == nil {
		return Node{}, false
	}
	var stack []*node
	node := t.head
	for node != nil && node.bit < p.BitLen {
		if !node.glue {
			stack = append(stack, node)
		}
		var next *node
		if node.bit < t.maxBitLen && bitOf(p, node.bit) {
			next = node.right
		} else {
			next = node.left
		}
		if next == nil {
			node = nil
			break
		}
		node = next
	}
	if node != nil && !node.glue {
		stack = append(stack, node)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		cand := stack[i]
		if prefix.EqualUnderMask(cand.prefix, p, cand.prefix.BitLen) {
			return wrap(cand)
		}
	}
	return Node{}, false
}

// Remove removes the user node matching p and returns its payload. If
// the node has two children it is demoted to glue in place; otherwise it
// is unlinked, collapsing a now-single-child glue parent.
func (t *Trie) Remove(p prefix.Prefix) (any, bool) {
	n, ok := t.SearchExact(p)
	if !ok {
		return nil, false
	}
	node := n.n
	payload := node.payload

	if node.left != nil && node.right != nil {
		node.glue = true
		node.payload = nil
		t.count--
		return payload, true
	}

	var child *node
	if node.left != nil {
		child = node.left
	} else {
		child = node.right
	}
	parent := node.parent

	if parent == nil {
		t.head = child
		if child != nil {
			child.parent = nil
		}
		t.count--
		t.s.release(node)
		return payload, true
	}

	if parent.right == node {
		parent.right = child
	} else {
		parent.left = child
	}
	if child != nil {
		child.parent = parent
	}
	t.count--
	t.s.release(node)

	if !parent.glue {
		return payload, true
	}

	// parent is glue: if it now has exactly one child, collapse it.
	var survivor *node
	switch {
	case parent.left != nil && parent.right == nil:
		survivor = parent.left
	case parent.right != nil && parent.left == nil:
		survivor = parent.right
	default:
		return payload, true
	}

	grandparent := parent.parent
	survivor.parent = grandparent
	if grandparent == nil {
		t.head = survivor
	} else if grandparent.right == parent {
		grandparent.right = survivor
	} else {
		grandparent.left = survivor
	}
	t.s.release(parent)

	return payload, true
}

// Coverage sums, over every non-glue node except the default route
// (bit-length 0), 1 << (maxbitlen - node.bitlen). Overlap between nested
// prefixes is not deduplicated (spec.md §4.3, §9).
func (t *Trie) Coverage() bitmath.Uint128 {
	var total bitmath.Uint128
	t.walkPreOrder(t.head, func(n *node) {
		if n.glue || n.bit == 0 {
			return
		}
		total = total.Add(bitmath.OneLsh(t.maxBitLen - n.bit))
	})
	return total
}

func (t *Trie) walkPreOrder(n *node, fn func(*node)) {
	if n == nil {
		return
	}
	if !n.glue {
		fn(n)
	}
	t.walkPreOrder(n.left, fn)
	t.walkPreOrder(n.right, fn)
}
