// Completion: 100% - Frame layout complete
package ra

import (
	"sort"
)

// SavedRegister is a callee-preserved register the method has to save
type SavedRegister struct {
	Real   RealID
	Name   string
	Kind   Kind
	Offset int // from the bottom of the save area
	Size   int
}

// Frame is the stack layout the prologue and epilogue need
type Frame struct {
	Target    string
	SaveSet   []SavedRegister
	SpillArea int
	SaveArea  int
	Size      int // spill area plus save area, aligned
}

// SaveNames returns the names of the saved registers in save order
func (f Frame) SaveNames() []string {
	names := make([]string, len(f.SaveSet))
	for i, s := range f.SaveSet {
		names[i] = s.Name
	}
	return names
}

// ComputeFrame lays out the save area for the ever-assigned preserved registers
// above the spill area
func (m *Machine) ComputeFrame() Frame {
	f := Frame{Target: m.cfg.Name, SpillArea: m.spills.AreaSize()}
	var saved []RealID
	for i := range m.reals {
		r := &m.reals[i]
		if r.Preserved && r.EverAssigned && r.State != Locked {
			saved = append(saved, r.ID)
		}
	}
	sort.Slice(saved, func(a, b int) bool {
		ra, rb := &m.reals[saved[a]], &m.reals[saved[b]]
		if ra.Kind != rb.Kind {
			return ra.Kind < rb.Kind
		}
		return ra.Index < rb.Index
	})

	off := alignUp(f.SpillArea, 8)
	for _, id := range saved {
		r := &m.reals[id]
		size := m.files[r.Kind].saveSize
		if size == 0 {
			size = spillSizeFor(r.Kind, 0, m.cfg.PointerSize)
		}
		off = alignUp(off, size)
		f.SaveSet = append(f.SaveSet, SavedRegister{Real: id, Name: r.Name, Kind: r.Kind, Offset: off, Size: size})
		off += size
	}
	f.SaveArea = off - alignUp(f.SpillArea, 8)
	align := m.cfg.StackAlign
	if align == 0 {
		align = 16
	}
	f.Size = alignUp(off, align)
	return f
}
