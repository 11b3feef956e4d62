// Completion: 100% - Live register tracking complete
package ra

import (
	"github.com/bits-and-blooms/bitset"
)

// LiveRegisterInfo is the node kept for a virtual while it is live
type LiveRegisterInfo struct {
	virt         VirtID
	refs         int
	association  RealID
	interference bitset.BitSet
	pos          int // index in the live list
}

// LiveRegisterSet tracks the virtuals of one kind live at the scan point and
// accumulates the registers each of them must not share
type LiveRegisterSet struct {
	m    *Machine
	kind Kind

	slab []LiveRegisterInfo
	free []int32
	node map[VirtID]int32
	live []int32
}

// NewLiveRegisterSet creates an empty set for one kind of m
func NewLiveRegisterSet(m *Machine, kind Kind) *LiveRegisterSet {
	return &LiveRegisterSet{m: m, kind: kind, node: make(map[VirtID]int32)}
}

func (s *LiveRegisterSet) alloc() int32 {
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		return id
	}
	s.slab = append(s.slab, LiveRegisterInfo{})
	return int32(len(s.slab) - 1)
}

// AddRegister marks v live, or counts one more owning reference if it already is
func (s *LiveRegisterSet) AddRegister(v VirtID) {
	vr := s.m.virt(v)
	if vr.IsPair() {
		s.AddRegister(vr.Low)
		s.AddRegister(vr.High)
		return
	}
	if n, ok := s.node[v]; ok {
		s.slab[n].refs++
		return
	}
	n := s.alloc()
	info := &s.slab[n]
	info.virt = v
	info.refs = 1
	info.association = vr.Association
	info.interference.ClearAll()
	info.pos = len(s.live)
	s.node[v] = n
	s.live = append(s.live, n)
}

// RegisterIsDead removes v from the set. Its association becomes an interference
// of every virtual still live, and its own accumulated interference is kept on the virtual.
func (s *LiveRegisterSet) RegisterIsDead(v VirtID) {
	vr := s.m.virt(v)
	if vr.IsPair() {
		s.RegisterIsDead(vr.Low)
		s.RegisterIsDead(vr.High)
		return
	}
	n, ok := s.node[v]
	if !ok {
		return
	}
	info := &s.slab[n]
	if info.association != NoReal {
		bit := s.m.reals[info.association].Index
		for _, o := range s.live {
			if o != n {
				s.slab[o].interference.Set(bit)
			}
		}
	}
	vr.Interference.ClearAll()
	vr.Interference.InPlaceUnion(&info.interference)

	last := s.live[len(s.live)-1]
	s.live[info.pos] = last
	s.slab[last].pos = info.pos
	s.live = s.live[:len(s.live)-1]
	delete(s.node, v)
	s.free = append(s.free, n)
}

// SetAssociation records r as v's preferred register and marks r as interfering
// with every other live virtual
func (s *LiveRegisterSet) SetAssociation(v VirtID, r RealID) {
	s.m.SetAssociation(v, r)
	bit := s.m.reals[r].Index
	n, ok := s.node[v]
	if ok {
		s.slab[n].association = r
	}
	for _, o := range s.live {
		if !ok || o != n {
			s.slab[o].interference.Set(bit)
		}
	}
}

// Count returns the number of live virtuals
func (s *LiveRegisterSet) Count() int {
	return len(s.live)
}

// IsLive reports whether v is in the set
func (s *LiveRegisterSet) IsLive(v VirtID) bool {
	_, ok := s.node[v]
	return ok
}

// References returns the owning-reference count of a live virtual
func (s *LiveRegisterSet) References(v VirtID) int {
	if n, ok := s.node[v]; ok {
		return s.slab[n].refs
	}
	return 0
}

// Live returns the live virtuals in set order
func (s *LiveRegisterSet) Live() []VirtID {
	out := make([]VirtID, len(s.live))
	for i, n := range s.live {
		out[i] = s.slab[n].virt
	}
	return out
}

// killAll removes every virtual still live
func (s *LiveRegisterSet) killAll() {
	for len(s.live) > 0 {
		s.RegisterIsDead(s.slab[s.live[len(s.live)-1]].virt)
	}
}
