package filtervm

import "github.com/yanet-platform/mrtfilter/internal/patricia"

const trieSlotCount = 4

// Image is the filter VM's external collaborator value (spec.md §6.4):
// code, constant pool, function table, and the borrowed trie slots that
// SETTRIE/SETTRIE6 select from.
type Image struct {
	Code      []Op
	Consts    ConstPool
	Functions [fnCount]AccessFn
	TrieSlots [trieSlotCount]*patricia.Trie
}

// IsTrivialPass reports whether img is the trivial "always pass" filter
// recognised by spec.md §4.5's fast path: code consisting solely of
// `LOAD 1`.
func (img *Image) IsTrivialPass() bool {
	return len(img.Code) == 1 && img.Code[0] == MakeOp(OpLOAD, 1)
}
