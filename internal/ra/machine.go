// Completion: 95% - Per-method allocation context complete
package ra

import (
	"io"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// pathMode tells where the forward scan is relative to an out-of-line region
type pathMode uint8

const (
	mainLine pathMode = iota
	hotPath
	coldPath
)

func (p pathMode) String() string {
	switch p {
	case hotPath:
		return "hot"
	case coldPath:
		return "cold"
	default:
		return "main"
	}
}

// RegisterFile is the set of real registers of one kind
type RegisterFile struct {
	Kind     Kind
	first    RealID
	size     int
	locked   int
	zero     RealID
	exchange ExchangeCap
	ops      KindOps
	saveSize int
	policy   SelectionPolicy
}

// Registers returns the ids of the file's registers in index order
func (f *RegisterFile) Registers() []RealID {
	ids := make([]RealID, f.size)
	for i := range ids {
		ids[i] = f.first + RealID(i)
	}
	return ids
}

// Size returns the number of registers, locked ones included
func (f *RegisterFile) Size() int {
	return f.size
}

// Unlocked returns the number of allocatable registers
func (f *RegisterFile) Unlocked() int {
	return f.size - f.locked
}

// Policy returns the file's selection policy
func (f *RegisterFile) Policy() SelectionPolicy {
	return f.policy
}

// Machine is the allocation context of one method against one target
type Machine struct {
	cfg    *MachineConfig
	method *Method
	list   *InstrList

	reals        []RealRegister
	files        [NumKinds]*RegisterFile
	associations []VirtID

	live    [NumKinds]*LiveRegisterSet
	spills  *SpillManager
	spilled mapset.Set[VirtID]
	ool     *OOLRegionTracker
	mode    pathMode

	stats Stats
	log   *logrus.Entry
	trace bool
	after func(m *Machine, at InstrID)
}

// NewMachine builds the register files of cfg for method
func NewMachine(cfg *MachineConfig, method *Method, opts Options) *Machine {
	m := &Machine{
		cfg:     cfg,
		method:  method,
		list:    &method.list,
		spills:  NewSpillManager(cfg.PointerSize),
		spilled: mapset.NewThreadUnsafeSet[VirtID](),
		log:     opts.Log,
		trace:   opts.Trace,
		after:   opts.AfterInstruction,
	}
	if m.log == nil {
		l := logrus.New()
		l.Out = io.Discard
		m.log = logrus.NewEntry(l)
	}
	m.log = m.log.WithField("method", method.Name)

	for k := Kind(0); k < NumKinds; k++ {
		spec := &cfg.Kinds[k]
		f := &RegisterFile{
			Kind:     k,
			first:    RealID(len(m.reals)),
			size:     len(spec.Registers),
			zero:     NoReal,
			exchange: spec.Exchange,
			ops:      spec.Ops,
			saveSize: spec.SaveSize,
		}
		for i, rs := range spec.Registers {
			r := RealRegister{
				ID:        RealID(len(m.reals)),
				Kind:      k,
				Index:     uint(i),
				Name:      rs.Name,
				Weight:    rs.Weight,
				Virt:      NoVirt,
				Preserved: rs.Preserved,
				Zero:      rs.Zero,
			}
			if rs.Locked {
				r.State = Locked
				f.locked++
			}
			if rs.Zero {
				f.zero = r.ID
			}
			m.reals = append(m.reals, r)
		}
		policy := spec.Policy
		if opts.Policy != PolicyDefault {
			policy = opts.Policy
		}
		f.policy = NewPolicy(policy, m.reals[f.first:f.first+RealID(f.size)])
		m.files[k] = f
	}
	m.associations = make([]VirtID, len(m.reals))
	for i := range m.associations {
		m.associations[i] = NoVirt
	}
	m.ool = newOOLRegionTracker(m)
	return m
}

// Config returns the target description
func (m *Machine) Config() *MachineConfig {
	return m.cfg
}

// Method returns the method being allocated
func (m *Machine) Method() *Method {
	return m.method
}

// File returns the register file of one kind
func (m *Machine) File(kind Kind) *RegisterFile {
	return m.files[kind]
}

// Real returns the arena entry of r
func (m *Machine) Real(r RealID) *RealRegister {
	return &m.reals[r]
}

// Reals returns every real register
func (m *Machine) Reals() []RealRegister {
	return m.reals
}

// Spills returns the backing store manager
func (m *Machine) Spills() *SpillManager {
	return m.spills
}

// Spilled returns the virtuals currently recorded as spilled, in id order
func (m *Machine) Spilled() []VirtID {
	return mapset.Sorted(m.spilled)
}

// Live returns the liveness set of one kind from the last pre-pass
func (m *Machine) Live(kind Kind) *LiveRegisterSet {
	return m.live[kind]
}

// Stats returns the counters collected so far
func (m *Machine) Stats() Stats {
	return m.stats
}

// SetPolicy replaces the selection policy of one kind
func (m *Machine) SetPolicy(kind Kind, p SelectionPolicy) {
	m.files[kind].policy = p
}

func (m *Machine) virt(v VirtID) *VirtualRegister {
	return &m.method.virts[v]
}

func (m *Machine) virtName(v VirtID) string {
	if v == NoVirt {
		return "-"
	}
	return m.virt(v).String()
}

func (m *Machine) realName(r RealID) string {
	if r == NoReal {
		return "-"
	}
	return m.reals[r].Name
}

// kindRegs returns the registers of one kind as a slice of the arena
func (m *Machine) kindRegs(kind Kind) []RealRegister {
	f := m.files[kind]
	return m.reals[f.first : f.first+RealID(f.size)]
}

func (m *Machine) spillSize(v VirtID) int {
	vr := m.virt(v)
	return spillSizeFor(vr.Kind, vr.Width, m.cfg.PointerSize)
}

// SetAssociation records r as the preferred register of v
func (m *Machine) SetAssociation(v VirtID, r RealID) {
	vr := m.virt(v)
	assertf(m.reals[r].Kind == vr.Kind, "%s (%s) associated with %s register %s", vr, vr.Kind, m.reals[r].Kind, m.reals[r].Name)
	if vr.Association != NoReal && m.associations[vr.Association] == v {
		m.associations[vr.Association] = NoVirt
	}
	vr.Association = r
	m.associations[r] = v
}

// AssociatedVirtual returns the virtual that prefers r, if any
func (m *Machine) AssociatedVirtual(r RealID) VirtID {
	return m.associations[r]
}

// bind double-links v and r and marks r Assigned
func (m *Machine) bind(v VirtID, r RealID) {
	reg := &m.reals[r]
	reg.setState(Assigned)
	reg.Virt = v
	reg.EverAssigned = true
	m.virt(v).Assigned = r
	if m.trace {
		m.log.WithFields(logrus.Fields{"virt": m.virtName(v), "real": reg.Name, "path": m.mode}).Debug("assign")
	}
}

// release frees r and unlinks the virtual it held
func (m *Machine) release(r RealID) {
	reg := &m.reals[r]
	if reg.Virt != NoVirt && m.virt(reg.Virt).Assigned == r {
		m.virt(reg.Virt).Assigned = NoReal
	}
	reg.setState(Free)
	reg.Virt = NoVirt
}

func (m *Machine) block(v VirtID) {
	vr := m.virt(v)
	if vr.Assigned != NoReal && m.reals[vr.Assigned].State == Assigned {
		m.reals[vr.Assigned].setState(Blocked)
	}
}

func (m *Machine) unblock(v VirtID) {
	vr := m.virt(v)
	if vr.Assigned != NoReal && m.reals[vr.Assigned].State == Blocked {
		m.reals[vr.Assigned].setState(Assigned)
	}
}

// FreeUnlatched turns every Unlatched register Free
func (m *Machine) FreeUnlatched() {
	for i := range m.reals {
		r := &m.reals[i]
		if r.State == Unlatched {
			r.setState(Free)
			r.Virt = NoVirt
		}
	}
}

// insert links an allocator-generated instruction before at, inheriting its section
func (m *Machine) insert(at InstrID, in Instruction) InstrID {
	anchor := m.list.Get(at)
	in.Region = anchor.Region
	in.Cold = anchor.Cold
	return m.list.InsertBefore(at, in)
}

func (m *Machine) emitStore(at InstrID, r RealID, v VirtID, ref SlotRef) {
	kind := m.reals[r].Kind
	m.insert(at, Instruction{
		Op:       OpStore,
		Mnemonic: m.files[kind].ops.Store,
		Kind:     kind,
		Operands: []Operand{{Virt: v, Real: r, Pair: NoVirt}},
		Slot:     ref,
		Size:     m.spillSize(v),
		Virt:     v,
	})
	m.stats.Spills++
	if m.trace {
		m.log.WithFields(logrus.Fields{"virt": m.virtName(v), "real": m.reals[r].Name, "slot": ref.Slot, "instr": at, "path": m.mode}).Debug("spill")
	}
}

func (m *Machine) emitLoad(at InstrID, r RealID, v VirtID, ref SlotRef) {
	kind := m.reals[r].Kind
	m.insert(at, Instruction{
		Op:       OpLoad,
		Mnemonic: m.files[kind].ops.Load,
		Kind:     kind,
		Operands: []Operand{{Virt: v, Real: r, Def: true, Pair: NoVirt}},
		Slot:     ref,
		Size:     m.spillSize(v),
		Virt:     v,
	})
	m.stats.Reloads++
	if m.trace {
		m.log.WithFields(logrus.Fields{"virt": m.virtName(v), "real": m.reals[r].Name, "slot": ref.Slot, "instr": at, "path": m.mode}).Debug("reload")
	}
}

// RegisterCopy inserts dst <- src before at
func (m *Machine) RegisterCopy(at InstrID, kind Kind, src, dst RealID) {
	m.insert(at, Instruction{
		Op:       OpCopy,
		Mnemonic: m.files[kind].ops.Copy,
		Kind:     kind,
		Operands: []Operand{{Virt: NoVirt, Real: dst, Def: true, Pair: NoVirt}, {Virt: NoVirt, Real: src, Pair: NoVirt}},
		Slot:     NoSlotRef,
		Virt:     NoVirt,
	})
	m.stats.Copies++
	if m.trace {
		m.log.WithFields(logrus.Fields{"src": m.reals[src].Name, "dst": m.reals[dst].Name, "instr": at}).Debug("copy")
	}
}

// RegisterExchange swaps the contents of a and b before at. A spare register
// turns the swap into three copies, which is the only way on kinds without an
// exchange capability.
func (m *Machine) RegisterExchange(at InstrID, kind Kind, a, b, spare RealID) {
	f := m.files[kind]
	switch {
	case spare != NoReal:
		m.RegisterCopy(at, kind, a, spare)
		m.RegisterCopy(at, kind, b, a)
		m.RegisterCopy(at, kind, spare, b)
		m.reals[spare].EverAssigned = true
	case f.exchange == ExchangeNative:
		m.insert(at, Instruction{
			Op:       OpExchange,
			Mnemonic: f.ops.Exchange,
			Kind:     kind,
			Operands: []Operand{{Virt: NoVirt, Real: a, Def: true, Pair: NoVirt}, {Virt: NoVirt, Real: b, Def: true, Pair: NoVirt}},
			Slot:     NoSlotRef,
			Virt:     NoVirt,
		})
	case f.exchange == ExchangeXOR:
		m.emitXor(at, kind, a, b)
		m.emitXor(at, kind, b, a)
		m.emitXor(at, kind, a, b)
	default:
		protocolf("exchange of %s and %s needs a spare %s register", m.reals[a].Name, m.reals[b].Name, kind)
	}
	m.stats.Exchanges++
	if m.trace {
		m.log.WithFields(logrus.Fields{"a": m.reals[a].Name, "b": m.reals[b].Name, "spare": m.realName(spare), "instr": at}).Debug("exchange")
	}
}

// emitXor inserts dst ^= src before at
func (m *Machine) emitXor(at InstrID, kind Kind, dst, src RealID) {
	m.insert(at, Instruction{
		Op:       OpXor,
		Mnemonic: m.files[kind].ops.Xor,
		Kind:     kind,
		Operands: []Operand{{Virt: NoVirt, Real: dst, Def: true, Pair: NoVirt}, {Virt: NoVirt, Real: src, Pair: NoVirt}},
		Slot:     NoSlotRef,
		Virt:     NoVirt,
	})
}

// Verify checks the double links between virtual and real registers
func (m *Machine) Verify() error {
	for i := range m.method.virts {
		vr := &m.method.virts[i]
		if vr.FutureUses > vr.TotalUses || vr.OOLUses > vr.FutureUses || vr.FutureUses < 0 {
			return errors.Errorf("%s: use counts out of order (total %d, future %d, ool %d)", vr, vr.TotalUses, vr.FutureUses, vr.OOLUses)
		}
		if vr.Assigned == NoReal {
			continue
		}
		r := &m.reals[vr.Assigned]
		if r.Virt != vr.ID || (r.State != Assigned && r.State != Blocked) {
			return errors.Errorf("%s assigned to %s, which is %s holding %s", vr, r.Name, r.State, m.virtName(r.Virt))
		}
	}
	for i := range m.reals {
		r := &m.reals[i]
		if r.State != Assigned && r.State != Blocked {
			continue
		}
		if r.Virt == NoVirt || m.virt(r.Virt).Assigned != r.ID {
			return errors.Errorf("%s is %s but %s does not point back", r.Name, r.State, m.virtName(r.Virt))
		}
	}
	return nil
}
