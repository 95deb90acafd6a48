package filtervm

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/internal/bgpmsg"
	"github.com/yanet-platform/mrtfilter/internal/patricia"
	"github.com/yanet-platform/mrtfilter/prefix"
)

// VM is one-step interpreter state for an Image, reusable across
// messages (spec.md §5: "a host may run many independent pipelines in
// parallel... each owning its own codec / VM / trie state").
type VM struct {
	img *Image
	acc accumulator

	activeV4 *patricia.Trie
	activeV6 *patricia.Trie

	ext    uint32
	extSet bool
}

// New returns a VM bound to img. img is not copied; callers must not
// mutate it concurrently with Run.
func New(img *Image) *VM {
	return &VM{img: img}
}

// IsTrivial reports whether vm's image is the "always pass" fast path, so
// a caller can skip reconstructing a message it would otherwise need only
// to feed the VM (spec.md §4.7).
func (vm *VM) IsTrivial() bool {
	return vm.img.IsTrivialPass()
}

// Run evaluates img against msg, returning pass (true), fail (false), or
// a recoverable ErrBadPacket / fatal ErrIllegalOpcode error (spec.md
// §4.5: "the outer driver returns >0 (pass), 0 (fail), or <0 (error)").
func (vm *VM) Run(msg Message) (bool, error) {
	if vm.img.IsTrivialPass() {
		return true, nil
	}

	vm.acc.reset()
	vm.ext = 0
	vm.extSet = false

	code := vm.img.Code
	pc := 0
	for pc < len(code) {
		op := code[pc]
		imm := vm.effectiveImm(op)
		nextPC := pc + 1

		skip, err := vm.step(op.Code(), imm, msg, &nextPC)
		if err != nil {
			return false, err
		}
		if skip {
			pc = nextPC
			continue
		}
		pc = nextPC
	}
	return vm.acc.settled && vm.acc.result, nil
}

func (vm *VM) effectiveImm(op Op) int {
	imm := int(op.Imm())
	if vm.extSet {
		imm = int(vm.ext)<<8 | imm
		vm.ext = 0
		vm.extSet = false
	}
	return imm
}

// step executes one instruction. nextPC is pre-set to pc+1 by the caller
// and may be overridden (BLK's forward skip).
func (vm *VM) step(code byte, imm int, msg Message, nextPC *int) (bool, error) {
	switch int(code) {
	case OpNOP:
		return false, nil

	case OpEXARG:
		vm.ext = vm.ext<<8 | uint32(imm&0xff)
		vm.extSet = true
		return false, nil

	case OpBLK:
		if vm.acc.settled && !vm.acc.result {
			*nextPC += imm
		}
		return false, nil

	case OpENDBLK:
		return false, nil

	case OpCPASS:
		vm.acc.commit(true)
		return false, nil

	case OpCFAIL:
		vm.acc.commit(false)
		return false, nil

	case OpNOT:
		vm.acc.invert()
		return false, nil

	case OpSETTLE:
		vm.acc.settle()
		return false, nil

	case OpLOAD:
		return false, vm.acc.push(Value{Kind: ValInt, Int: uint32(imm)})

	case OpLOADK:
		c, ok := vm.img.Consts.At(imm)
		if !ok {
			return false, ErrIllegalOpcode
		}
		return false, vm.pushConst(c)

	case OpSTORE:
		_, err := vm.acc.pop()
		return false, err

	case OpDISCARD:
		vm.acc.reset()
		return false, nil

	case OpUNPACK:
		return false, vm.opUnpack(imm)

	case OpHASATTR:
		_, present, err := msg.GetAttribute(byte(imm))
		if err != nil {
			return false, errBadPacket(err)
		}
		vm.acc.commit(present)
		return false, nil

	case OpEXACT, OpSUBNET, OpSUPERNET, OpRELATED:
		return false, vm.opPrefixMatch(code, imm, msg)

	case OpPFXCONTAINS:
		return false, vm.opPfxContains(imm)

	case OpADDRCONTAINS:
		return false, vm.opAddrContains(imm)

	case OpASCONTAINS:
		return false, vm.opASContains(imm, msg)

	case OpASPMATCH, OpASPSTARTS, OpASPENDS, OpASPEXACT:
		return false, vm.opASPathMatch(code, AccessMask(imm), msg)

	case OpCOMMEXACT:
		return false, vm.opCommExact(imm, msg)

	case OpCALL:
		if imm < 0 || imm >= fnCount || vm.img.Functions[imm] == nil {
			return false, ErrIllegalOpcode
		}
		return false, errBadPacket(vm.img.Functions[imm](msg, &vm.acc))

	case OpSETTRIE:
		t, ok := vm.trieSlot(imm)
		if !ok {
			return false, ErrIllegalOpcode
		}
		vm.activeV4 = t
		return false, nil

	case OpSETTRIE6:
		t, ok := vm.trieSlot(imm)
		if !ok {
			return false, ErrIllegalOpcode
		}
		vm.activeV6 = t
		return false, nil

	case OpCLRTRIE:
		vm.activeV4 = nil
		return false, nil

	case OpCLRTRIE6:
		vm.activeV6 = nil
		return false, nil

	case OpASCMP:
		return false, vm.opASCmp(imm)

	case OpADDRCMP:
		return false, vm.opAddrCmp(imm)

	case OpPFXCMP:
		return false, vm.opPfxCmp(imm)

	default:
		return false, ErrIllegalOpcode
	}
}

func errBadPacket(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrBadPacket, err)
}

func (vm *VM) trieSlot(i int) (*patricia.Trie, bool) {
	if i < 0 || i >= trieSlotCount {
		return nil, false
	}
	return vm.img.TrieSlots[i], true
}

func (vm *VM) pushConst(c ConstValue) error {
	switch c.Kind {
	case ConstPrefix:
		return vm.acc.push(Value{Kind: ValPrefix, Prefix: c.Prefix})
	case ConstAS:
		return vm.acc.push(Value{Kind: ValAS, AS: c.Int})
	default:
		return vm.acc.push(Value{Kind: ValInt, Int: c.Int})
	}
}

// opUnpack flattens a composite constant's pool entry into its elements,
// pushing each in order (spec.md §4.5: "flatten composite constant into
// its elements").
func (vm *VM) opUnpack(imm int) error {
	c, ok := vm.img.Consts.At(imm)
	if !ok {
		return ErrIllegalOpcode
	}
	switch c.Kind {
	case ConstASVector:
		for _, as := range c.ASVec {
			if err := vm.acc.push(Value{Kind: ValAS, AS: as}); err != nil {
				return err
			}
		}
		return nil
	default:
		return vm.pushConst(c)
	}
}

func activeTrie(vm *VM, fam prefix.Family) *patricia.Trie {
	if fam == prefix.V6 {
		return vm.activeV6
	}
	return vm.activeV4
}

// opPrefixMatch implements EXACT/SUBNET/SUPERNET/RELATED (spec.md §4.5):
// iterate NLRI or withdrawn per the access mask, probe each prefix
// against the currently-selected trie for its family, commit pass/fail.
func (vm *VM) opPrefixMatch(code byte, imm int, msg Message) error {
	mask := AccessMask(imm)
	if mask.has(MaskSettleFirst) {
		vm.acc.settle()
	}

	var prefixes []prefix.Prefix
	collect := func(v any) { prefixes = append(prefixes, asPrefix(v)) }

	var err error
	if mask.has(MaskWithdrawn) {
		if mask.has(MaskAll) {
			err = msg.StartAllWithdrawn()
		} else {
			err = msg.StartWithdrawn()
		}
		if err == nil {
			for {
				v, ok, e := msg.NextWithdrawn()
				if e != nil {
					err = e
					break
				}
				if !ok {
					break
				}
				collect(v)
			}
		}
	} else {
		if mask.has(MaskAll) {
			err = msg.StartAllNLRI()
		} else {
			err = msg.StartNLRI()
		}
		if err == nil {
			for {
				v, ok, e := msg.NextNLRI()
				if e != nil {
					err = e
					break
				}
				if !ok {
					break
				}
				collect(v)
			}
		}
	}
	if err != nil {
		return errBadPacket(err)
	}

	pass := false
	for _, p := range prefixes {
		t := activeTrie(vm, p.Family)
		if t == nil {
			continue
		}
		var hit bool
		switch int(code) {
		case OpEXACT:
			_, hit = t.SearchExact(p)
		case OpSUBNET:
			// p is a subnet of (or equal to) some trie entry
			hit = t.IsSupernetOf(p)
		case OpSUPERNET:
			// p is a supernet of (or equal to) some trie entry
			hit = t.IsSubnetOf(p)
		case OpRELATED:
			hit = t.IsRelatedOf(p)
		}
		if hit {
			pass = true
			break
		}
	}
	vm.acc.commit(pass)
	return nil
}

func (vm *VM) opPfxContains(constIdx int) error {
	c, ok := vm.img.Consts.At(constIdx)
	if !ok || c.Kind != ConstPrefix {
		return ErrIllegalOpcode
	}
	top, err := vm.acc.pop()
	if err != nil {
		return err
	}
	if top.Kind != ValPrefix {
		return ErrBadPacket
	}
	vm.acc.commit(prefix.Equal(top.Prefix, c.Prefix) ||
		(top.Prefix.BitLen <= c.Prefix.BitLen && prefix.EqualUnderMask(c.Prefix, top.Prefix, top.Prefix.BitLen)))
	return nil
}

func (vm *VM) opAddrContains(constIdx int) error {
	c, ok := vm.img.Consts.At(constIdx)
	if !ok || c.Kind != ConstPrefix {
		return ErrIllegalOpcode
	}
	top, err := vm.acc.pop()
	if err != nil {
		return err
	}
	if top.Kind != ValPrefix {
		return ErrBadPacket
	}
	vm.acc.commit(prefix.EqualUnderMask(top.Prefix, c.Prefix, top.Prefix.BitLen))
	return nil
}

func (vm *VM) opASContains(constIdx int, msg Message) error {
	c, ok := vm.img.Consts.At(constIdx)
	if !ok || c.Kind != ConstAS {
		return ErrIllegalOpcode
	}
	if err := msg.StartRealASPath(); err != nil {
		return errBadPacket(err)
	}
	found := false
	for {
		as, ok, err := msg.NextAS()
		if err != nil {
			return errBadPacket(err)
		}
		if !ok {
			break
		}
		if as == c.Int {
			found = true
		}
	}
	vm.acc.commit(found)
	return nil
}

func asPathSource(mask AccessMask, msg Message) error {
	switch {
	case mask.has(MaskReal):
		return msg.StartRealASPath()
	case mask.has(MaskAS4):
		return msg.StartAS4Path()
	default:
		return msg.StartASPath()
	}
}

func drainASPath(msg Message) ([]uint32, error) {
	var out []uint32
	for {
		as, ok, err := msg.NextAS()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, as)
	}
}

// popASVector pops every ValAS entry off the top of the accumulator
// (as pushed in order by UNPACK of a ConstASVector constant) and
// restores their original order.
func (vm *VM) popASVector() ([]uint32, error) {
	var rev []uint32
	for vm.acc.depth > 0 && vm.acc.stack[vm.acc.depth-1].Kind == ValAS {
		v, err := vm.acc.pop()
		if err != nil {
			return nil, err
		}
		rev = append(rev, v.AS)
	}
	if len(rev) == 0 {
		return nil, ErrBadPacket
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev, nil
}

// opASPathMatch implements ASPMATCH/ASPSTARTS/ASPENDS/ASPEXACT: sequence-
// match the AS vector built on the accumulator (via LOADK+UNPACK of a
// ConstASVector constant) against the access-mask-selected path.
func (vm *VM) opASPathMatch(code byte, mask AccessMask, msg Message) error {
	needle, err := vm.popASVector()
	if err != nil {
		return err
	}
	if err := asPathSource(mask, msg); err != nil {
		return errBadPacket(err)
	}
	path, err := drainASPath(msg)
	if err != nil {
		return errBadPacket(err)
	}

	var hit bool
	switch int(code) {
	case OpASPMATCH:
		hit = containsSubsequence(path, needle)
	case OpASPSTARTS:
		hit = hasPrefix(path, needle)
	case OpASPENDS:
		hit = hasSuffix(path, needle)
	case OpASPEXACT:
		hit = equalSlice(path, needle)
	}
	vm.acc.commit(hit)
	return nil
}

func containsSubsequence(haystack, needle []uint32) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalSlice(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func hasPrefix(haystack, needle []uint32) bool {
	return len(haystack) >= len(needle) && equalSlice(haystack[:len(needle)], needle)
}

func hasSuffix(haystack, needle []uint32) bool {
	return len(haystack) >= len(needle) && equalSlice(haystack[len(haystack)-len(needle):], needle)
}

func equalSlice(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// opCommExact implements COMMEXACT: the message's community set (of the
// kind recorded on the constant itself — spec.md §4.5's "large and
// extended variants dispatched via separate constants") must equal the
// constant set.
func (vm *VM) opCommExact(constIdx int, msg Message) error {
	c, ok := vm.img.Consts.At(constIdx)
	if !ok || c.Kind != ConstCommunitySet {
		return ErrIllegalOpcode
	}
	kind := bgpmsg.CommunityKind(c.CommKind)

	if err := msg.StartCommunity(kind); err != nil {
		return errBadPacket(err)
	}
	var got []string
	for {
		v, ok, err := msg.NextCommunity()
		if err != nil {
			return errBadPacket(err)
		}
		if !ok {
			break
		}
		got = append(got, packCommunity(v))
	}
	vm.acc.commit(sameSet(got, c.Comms))
	return nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(b))
	for _, v := range b {
		seen[v]++
	}
	for _, v := range a {
		if seen[v] == 0 {
			return false
		}
		seen[v]--
	}
	return true
}

func (vm *VM) opASCmp(constIdx int) error {
	c, ok := vm.img.Consts.At(constIdx)
	if !ok || c.Kind != ConstAS {
		return ErrIllegalOpcode
	}
	top, err := vm.acc.pop()
	if err != nil {
		return err
	}
	vm.acc.commit(top.Kind == ValAS && top.AS == c.Int)
	return nil
}

func (vm *VM) opAddrCmp(constIdx int) error {
	c, ok := vm.img.Consts.At(constIdx)
	if !ok || c.Kind != ConstPrefix {
		return ErrIllegalOpcode
	}
	top, err := vm.acc.pop()
	if err != nil {
		return err
	}
	vm.acc.commit(top.Kind == ValPrefix && prefix.EqualUnderMask(top.Prefix, c.Prefix, c.Prefix.Family.MaxBitLen()))
	return nil
}

func (vm *VM) opPfxCmp(constIdx int) error {
	c, ok := vm.img.Consts.At(constIdx)
	if !ok || c.Kind != ConstPrefix {
		return ErrIllegalOpcode
	}
	top, err := vm.acc.pop()
	if err != nil {
		return err
	}
	vm.acc.commit(top.Kind == ValPrefix && prefix.Equal(top.Prefix, c.Prefix))
	return nil
}
