// Completion: 100% - Register selection and eviction complete
package ra

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/sirupsen/logrus"
)

// boundNext scans forward from at for the next dependency group that binds r.
// It reports true when that group binds r to v, or when an allocation boundary
// comes first.
func (m *Machine) boundNext(at InstrID, r RealID, v VirtID) bool {
	for c := at; c != NoInstr; c = m.list.Next(c) {
		in := m.list.Get(c)
		if in.Deps != nil {
			if bound := in.Deps.Search(r); bound != NoVirt {
				return bound == v
			}
		}
		if c != at && in.IsBoundary() {
			return true
		}
	}
	return true
}

// FindBestFreeRegister returns a Free register of kind for v, or NoReal.
// With considerUnlatched a register whose virtual died at this instruction
// also qualifies; the winner is cleared to Free.
func (m *Machine) FindBestFreeRegister(at InstrID, kind Kind, excludeZero, considerUnlatched bool, v VirtID) RealID {
	f := m.files[kind]
	q := SelectQuery{ExcludeZero: excludeZero, ConsiderUnlatched: considerUnlatched}

	pref := NoReal
	if v != NoVirt {
		vr := m.virt(v)
		q.Interference = &vr.Interference
		pref = vr.Association
		if pref != NoReal && m.reals[pref].Kind != kind {
			pref = NoReal
		}
		if pref != NoReal && q.Interferes(&m.reals[pref]) && !m.boundNext(at, pref, v) {
			pref = NoReal
		}
	}

	if pref != NoReal && q.Usable(&m.reals[pref]) {
		m.clearUnlatched(pref)
		return pref
	}

	i := f.policy.Select(m.kindRegs(kind), q)
	if i < 0 {
		return NoReal
	}
	r := f.first + RealID(i)
	m.clearUnlatched(r)
	return r
}

func (m *Machine) clearUnlatched(r RealID) {
	reg := &m.reals[r]
	if reg.State == Unlatched {
		reg.setState(Free)
		reg.Virt = NoVirt
	}
}

// FreeBestRegister evicts an Assigned register for v and returns it Free.
// When forced is given that register is evicted. Otherwise the victim is the
// candidate whose next reference is furthest away, looking no further than the
// next allocation boundary.
func (m *Machine) FreeBestRegister(at InstrID, v VirtID, forced RealID, excludeZero bool) RealID {
	kind := KindGPR
	if v != NoVirt {
		kind = m.virt(v).Kind
	}

	var cands []VirtID
	if forced != NoReal {
		assertf(m.reals[forced].State == Assigned || m.reals[forced].State == Blocked, "eviction of %s %s", m.reals[forced].State, m.reals[forced].Name)
		cands = []VirtID{m.reals[forced].Virt}
	} else {
		interference := &bitset.BitSet{}
		pref, favoured := NoReal, false
		if v != NoVirt {
			interference = m.virt(v).Interference.Clone()
			pref = m.virt(v).Association
			if pref != NoReal && m.reals[pref].Kind == kind && m.boundNext(at, pref, v) {
				favoured = true
				interference.Clear(m.reals[pref].Index)
			}
		}

		allInterfere := false
		regs := m.kindRegs(kind)
		cands = make([]VirtID, 0, len(regs))
		for i := range regs {
			r := &regs[i]
			if r.State != Assigned || (excludeZero && r.Zero) {
				continue
			}
			iInterfere := interference.Test(r.Index)
			if len(cands) == 0 {
				cands = append(cands, r.Virt)
				allInterfere = iInterfere
				continue
			}
			if iInterfere {
				if allInterfere {
					cands = append(cands, r.Virt)
				}
				continue
			}
			switch {
			case allInterfere:
				cands = append(cands[:0], r.Virt)
				allInterfere = false
			case favoured && r.ID == pref:
				cands = append(cands, cands[0])
				cands[0] = r.Virt
			default:
				cands = append(cands, r.Virt)
			}
		}
		if len(cands) == 0 {
			capacityf("all %s registers are blocked", kind)
		}

		for c := at; len(cands) > 1 && c != NoInstr; c = m.list.Next(c) {
			in := m.list.Get(c)
			if in.IsBoundary() {
				break
			}
			for i := 0; i < len(cands) && len(cands) > 1; {
				if in.references(cands[i]) {
					cands[i] = cands[len(cands)-1]
					cands = cands[:len(cands)-1]
					continue
				}
				i++
			}
		}
	}

	victim := cands[0]
	vr := m.virt(victim)
	best := vr.Assigned
	size := m.spillSize(victim)
	if vr.Backing.Valid() {
		m.spills.Occupy(vr.Backing, size)
	} else {
		vr.Backing = m.spills.Allocate(size)
	}
	slot := m.spills.Slot(vr.Backing.Slot)
	switch m.mode {
	case mainLine:
		slot.MaxSpillDepth = 1
	case hotPath:
		if slot.MaxSpillDepth != 1 {
			slot.MaxSpillDepth = 2
		}
	case coldPath:
		if slot.MaxSpillDepth != 1 && slot.MaxSpillDepth != 2 {
			slot.MaxSpillDepth = 3
		}
	}
	if m.mode != coldPath {
		m.spilled.Add(victim)
	}

	m.emitStore(at, best, victim, vr.Backing)
	if m.trace {
		m.log.WithFields(logrus.Fields{"virt": vr.String(), "real": m.reals[best].Name, "depth": slot.MaxSpillDepth}).Debug("evict")
	}
	m.release(best)
	return best
}
