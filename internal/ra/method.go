// Completion: 100% - Method builder complete
package ra

import (
	"github.com/pkg/errors"
)

// RegionID identifies an out-of-line region; zero means none
type RegionID int32

// Region is a hot path guarded by a branch into a cold section that rejoins at the merge label
type Region struct {
	ID     RegionID
	Name   string
	Branch InstrID
	Merge  InstrID
	Entry  InstrID
	Exit   InstrID
}

// Method is the unit of allocation: a virtual register arena and an instruction list
type Method struct {
	Name    string
	virts   []VirtualRegister
	list    InstrList
	regions []Region

	open      RegionID // region between its branch and its merge
	cold      RegionID // region whose cold section is being emitted
	allocated bool
}

// NewMethod creates a method whose list starts with the procedure entry
func NewMethod(name string) *Method {
	m := &Method{Name: name, list: InstrList{head: NoInstr, tail: NoInstr}}
	m.list.Append(Instruction{Op: OpProc, Label: name, Virt: NoVirt, Slot: NoSlotRef})
	return m
}

// NewVirtual declares a virtual register of the kind's natural width
func (m *Method) NewVirtual(kind Kind, name string) VirtID {
	return m.NewVirtualWidth(kind, name, 0)
}

// NewVirtualWidth declares a virtual register holding width bytes
func (m *Method) NewVirtualWidth(kind Kind, name string, width int) VirtID {
	id := VirtID(len(m.virts))
	m.virts = append(m.virts, newVirtual(id, kind, name, width))
	return id
}

// NewPair declares a pair virtual over two ordinary virtuals of the same kind
func (m *Method) NewPair(name string, low, high VirtID) (VirtID, error) {
	lo, hi := &m.virts[low], &m.virts[high]
	if lo.IsPair() || hi.IsPair() || lo.PairOf != NoVirt || hi.PairOf != NoVirt {
		return NoVirt, errors.Errorf("pair %s: halves must be ordinary unpaired virtuals", name)
	}
	if lo.Kind != hi.Kind || low == high {
		return NoVirt, errors.Errorf("pair %s: halves must be two distinct virtuals of one kind", name)
	}
	id := m.NewVirtual(lo.Kind, name)
	p := &m.virts[id]
	p.Low, p.High = low, high
	m.virts[low].PairOf = id
	m.virts[high].PairOf = id
	return id, nil
}

// Virtual returns the arena entry of v
func (m *Method) Virtual(v VirtID) *VirtualRegister {
	return &m.virts[v]
}

// NumVirtuals returns the size of the virtual arena
func (m *Method) NumVirtuals() int {
	return len(m.virts)
}

// Instructions returns the instruction list
func (m *Method) Instructions() *InstrList {
	return &m.list
}

// Regions returns the declared out-of-line regions
func (m *Method) Regions() []Region {
	return m.regions
}

// Region returns the region with the given id
func (m *Method) Region(id RegionID) *Region {
	return &m.regions[id-1]
}

func (m *Method) add(in Instruction) InstrID {
	if m.cold != 0 {
		in.Cold = true
		in.Region = m.cold
	} else if in.Region == 0 {
		in.Region = m.open
	}
	in.Virt = NoVirt
	in.Slot = NoSlotRef
	return m.list.Append(in)
}

// expand replaces pair operands by their halves
func (m *Method) expand(ops []Operand) []Operand {
	out := make([]Operand, 0, len(ops))
	for _, op := range ops {
		vr := &m.virts[op.Virt]
		if !vr.IsPair() {
			out = append(out, op)
			continue
		}
		for _, h := range []VirtID{vr.Low, vr.High} {
			half := op
			half.Virt = h
			half.Pair = op.Virt
			out = append(out, half)
		}
	}
	return out
}

// Emit appends a selected instruction
func (m *Method) Emit(mnemonic string, ops ...Operand) InstrID {
	return m.add(Instruction{Op: OpInstr, Mnemonic: mnemonic, Operands: m.expand(ops)})
}

// EmitDeps appends a selected instruction carrying a dependency group
func (m *Method) EmitDeps(mnemonic string, g *DependencyGroup, ops ...Operand) InstrID {
	return m.add(Instruction{Op: OpInstr, Mnemonic: mnemonic, Operands: m.expand(ops), Deps: g})
}

// Label appends a label
func (m *Method) Label(name string) InstrID {
	return m.add(Instruction{Op: OpLabel, Label: name})
}

// LabelDeps appends a label carrying a dependency group
func (m *Method) LabelDeps(name string, g *DependencyGroup) InstrID {
	return m.add(Instruction{Op: OpLabel, Label: name, Deps: g})
}

// BeginRegion appends the conditional branch into a new out-of-line region.
// The instructions that follow form the hot path up to MergeRegion.
func (m *Method) BeginRegion(name string, ops ...Operand) (RegionID, error) {
	if m.open != 0 || m.cold != 0 {
		return 0, errors.Errorf("region %s: regions cannot nest", name)
	}
	id := RegionID(len(m.regions) + 1)
	m.regions = append(m.regions, Region{ID: id, Name: name, Branch: NoInstr, Merge: NoInstr, Entry: NoInstr, Exit: NoInstr})
	m.open = id
	m.regions[id-1].Branch = m.add(Instruction{Op: OpRegionBranch, Mnemonic: "bcond", Label: name, Operands: m.expand(ops), Region: id})
	return id, nil
}

// MergeRegion appends the restart label that ends the hot path
func (m *Method) MergeRegion(id RegionID) error {
	if m.open != id || m.cold != 0 {
		return errors.Errorf("merge of region %d without a matching branch", id)
	}
	r := &m.regions[id-1]
	r.Merge = m.add(Instruction{Op: OpRegionMerge, Label: r.Name, Region: id})
	m.open = 0
	return nil
}

// BeginCold appends the entry label of the region's cold section
func (m *Method) BeginCold(id RegionID) error {
	if id <= 0 || int(id) > len(m.regions) || m.open != 0 || m.cold != 0 {
		return errors.Errorf("cold section of region %d opened out of order", id)
	}
	r := &m.regions[id-1]
	if r.Merge == NoInstr || r.Entry != NoInstr {
		return errors.Errorf("cold section of %s opened out of order", r.Name)
	}
	m.cold = id
	r.Entry = m.add(Instruction{Op: OpColdEntry, Label: r.Name})
	return nil
}

// EndCold appends the branch from the cold section back to the merge label
func (m *Method) EndCold(id RegionID) error {
	if m.cold != id {
		return errors.Errorf("cold section of region %d closed without being opened", id)
	}
	r := &m.regions[id-1]
	r.Exit = m.add(Instruction{Op: OpColdExit, Mnemonic: "b", Label: r.Name})
	m.cold = 0
	return nil
}

// Validate checks that every region is complete and every reference names a declared virtual
func (m *Method) Validate() error {
	if m.open != 0 || m.cold != 0 {
		return errors.Errorf("method %s: unterminated region", m.Name)
	}
	for _, r := range m.regions {
		if r.Branch == NoInstr || r.Merge == NoInstr || r.Entry == NoInstr || r.Exit == NoInstr {
			return errors.Errorf("method %s: region %s has no cold section", m.Name, r.Name)
		}
	}
	for _, id := range m.list.IDs() {
		in := m.list.Get(id)
		for _, op := range in.Operands {
			if op.Virt < 0 || int(op.Virt) >= len(m.virts) {
				return errors.Errorf("method %s: operand of %s names an undeclared virtual", m.Name, in.Mnemonic)
			}
		}
		if in.Deps == nil {
			continue
		}
		for _, d := range in.Deps.Deps {
			if d.Virt < 0 || int(d.Virt) >= len(m.virts) {
				return errors.Errorf("method %s: dependency names an undeclared virtual", m.Name)
			}
			if m.virts[d.Virt].IsPair() {
				return errors.Errorf("method %s: dependency on pair %s, name its halves instead", m.Name, m.virts[d.Virt].Name)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of an unallocated method
func (m *Method) Clone() *Method {
	c := &Method{
		Name:      m.Name,
		list:      m.list.clone(),
		regions:   append([]Region(nil), m.regions...),
		open:      m.open,
		cold:      m.cold,
		allocated: m.allocated,
	}
	c.virts = make([]VirtualRegister, len(m.virts))
	for i := range m.virts {
		c.virts[i] = m.virts[i]
		c.virts[i].Interference = *m.virts[i].Interference.Clone()
	}
	return c
}
