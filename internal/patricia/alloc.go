package patricia

import (
	"unsafe"

	"github.com/c2h5oh/datasize"
)

// pageSize is the number of nodes per slab page (spec.md §4.3, §5: "Trie
// nodes are slab-allocated 128 per page").
const pageSize = 128

type page struct {
	nodes [pageSize]node
}

// slab is a per-trie bump allocator over fixed-size pages, with a
// free-list so Remove followed by Insert is allocation-free. Pages
// themselves are only released by destroying the trie, never by Remove
// or Clear (spec.md §5).
type slab struct {
	pages []*page
	next  int // index of the next unused node in pages[len(pages)-1]
	free  []*node
}

func (s *slab) alloc() *node {
	if n := len(s.free); n > 0 {
		nd := s.free[n-1]
		s.free = s.free[:n-1]
		*nd = node{}
		return nd
	}
	if len(s.pages) == 0 || s.next >= pageSize {
		s.pages = append(s.pages, &page{})
		s.next = 0
	}
	p := s.pages[len(s.pages)-1]
	nd := &p.nodes[s.next]
	s.next++
	return nd
}

func (s *slab) release(n *node) {
	s.free = append(s.free, n)
}

// clear returns every node of every page to the free-list, without
// releasing the pages (spec.md §4.3 implementation shape).
func (s *slab) clear() {
	s.free = s.free[:0]
	for _, p := range s.pages {
		for i := range p.nodes {
			p.nodes[i] = node{}
			s.free = append(s.free, &p.nodes[i])
		}
	}
	s.next = 0
	// next page allocated will reuse free-list entries above; leave the
	// bump cursor at pageSize so alloc() is satisfied purely from free.
	if len(s.pages) > 0 {
		s.next = pageSize
	}
}

// ByteSize reports the memory currently held in slab pages, for
// observability (e.g. logging a trie's footprint after a bulk load).
func (s *slab) ByteSize() datasize.ByteSize {
	return datasize.ByteSize(uintptr(len(s.pages)) * unsafe.Sizeof(page{}))
}
