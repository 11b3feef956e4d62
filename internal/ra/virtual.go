// Completion: 100% - Virtual register arena complete
package ra

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// VirtID indexes the virtual register arena of a Method
type VirtID int32

// NoVirt marks the absence of a virtual register
const NoVirt VirtID = -1

// SlotID indexes the backing store arena of a SpillManager
type SlotID int32

// NoSlot marks the absence of a backing store
const NoSlot SlotID = -1

// SlotRef names a byte range inside a backing store
type SlotRef struct {
	Slot   SlotID
	Offset int
}

// NoSlotRef is the empty backing store reference
var NoSlotRef = SlotRef{Slot: NoSlot}

// Valid reports whether the reference names a slot
func (s SlotRef) Valid() bool {
	return s.Slot != NoSlot
}

// VirtualRegister is an unbounded symbolic register produced by instruction selection
type VirtualRegister struct {
	ID    VirtID
	Name  string
	Kind  Kind
	Width int // bytes; 0 means the kind's natural width

	// Low and High are set on a pair; PairOf is set on its halves
	Low, High VirtID
	PairOf    VirtID

	Assigned RealID

	TotalUses  int
	FutureUses int
	OOLUses    int

	Association  RealID
	Interference bitset.BitSet

	Backing SlotRef
}

// IsPair reports whether v names a low/high pair of ordinary virtuals
func (v *VirtualRegister) IsPair() bool {
	return v.Low != NoVirt
}

func (v *VirtualRegister) String() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("%s%d", v.Kind.Prefix(), v.ID)
}

func newVirtual(id VirtID, kind Kind, name string, width int) VirtualRegister {
	return VirtualRegister{
		ID:          id,
		Name:        name,
		Kind:        kind,
		Width:       width,
		Low:         NoVirt,
		High:        NoVirt,
		PairOf:      NoVirt,
		Assigned:    NoReal,
		Association: NoReal,
		Backing:     NoSlotRef,
	}
}

// halves returns the ordinary virtuals a reference to v stands for
func halves(virts []VirtualRegister, v VirtID) []VirtID {
	vr := &virts[v]
	if vr.IsPair() {
		return []VirtID{vr.Low, vr.High}
	}
	return []VirtID{v}
}
