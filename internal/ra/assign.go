// Completion: 95% - Assignment, reload, coercion and unlatching complete
package ra

import (
	"github.com/sirupsen/logrus"
)

// AssignOneRegister gives v a register of its kind before at.
// A virtual that has been referenced before is reloaded from its backing store.
func (m *Machine) AssignOneRegister(at InstrID, v VirtID, excludeZero bool) RealID {
	vr := m.virt(v)
	var r RealID
	if vr.TotalUses != vr.FutureUses {
		r = m.ReverseSpillState(at, v, NoReal, excludeZero)
	} else {
		r = m.FindBestFreeRegister(at, vr.Kind, excludeZero, true, v)
		if r == NoReal {
			r = m.FreeBestRegister(at, v, NoReal, excludeZero)
		}
	}
	m.bind(v, r)
	return r
}

// ReverseSpillState reloads v into target, picking a register when target is NoReal.
// The backing store is released according to the path the scan is on.
func (m *Machine) ReverseSpillState(at InstrID, v VirtID, target RealID, excludeZero bool) RealID {
	vr := m.virt(v)
	if target == NoReal {
		target = m.FindBestFreeRegister(at, vr.Kind, excludeZero, false, v)
		if target == NoReal {
			target = m.FreeBestRegister(at, v, NoReal, excludeZero)
		}
		m.reals[target].setState(Assigned)
	}

	ref := vr.Backing
	if !ref.Valid() {
		if m.mode == coldPath {
			// defined on the hot path only; the cold path never reads it
			return target
		}
		protocolf("reload of %s, which has no backing store", vr)
	}

	size := m.spillSize(v)
	slot := m.spills.Slot(ref.Slot)
	switch m.mode {
	case coldPath:
		if slot.MaxSpillDepth == 3 || slot.MaxSpillDepth == 0 {
			slot.MaxSpillDepth = 0
			m.spills.Free(ref, size)
			if !m.spills.Locked() {
				vr.Backing = NoSlotRef
			}
		}
	case hotPath:
		m.spilled.Remove(v)
		if slot.MaxSpillDepth == 2 {
			m.spills.Free(ref, size)
		}
		slot.MaxSpillDepth = 0
	default:
		m.spilled.Remove(v)
		slot.MaxSpillDepth = 0
		m.spills.Free(ref, size)
		if !m.spills.Locked() {
			vr.Backing = NoSlotRef
		}
	}

	m.emitLoad(at, target, v, ref)
	return target
}

// CoerceRegisterAssignment moves v into required before at, displacing whatever
// is there. Afterwards required is Assigned to v.
func (m *Machine) CoerceRegisterAssignment(at InstrID, v VirtID, required RealID) {
	vr := m.virt(v)
	tr := &m.reals[required]
	cur := vr.Assigned
	kind := vr.Kind
	assertf(tr.Kind == kind, "coercion of %s %s into %s register %s", kind, vr, tr.Kind, tr.Name)
	if cur == required {
		return
	}
	if m.trace {
		m.log.WithFields(logrus.Fields{"virt": vr.String(), "from": m.realName(cur), "real": tr.Name, "state": tr.State}).Debug("coerce")
	}

	needTemp := m.files[kind].exchange == ExchangeNone
	switch tr.State {
	case Free, Unlatched:
		m.clearUnlatched(required)
		if cur == NoReal {
			if vr.TotalUses != vr.FutureUses {
				m.ReverseSpillState(at, v, required, false)
			}
		} else {
			m.RegisterCopy(at, kind, cur, required)
			m.release(cur)
		}

	case Blocked:
		occupant := tr.Virt
		spare := NoReal
		if cur == NoReal || needTemp {
			spare = m.FindBestFreeRegister(at, kind, false, false, occupant)
			if spare == NoReal {
				m.block(v)
				spare = m.FreeBestRegister(at, occupant, NoReal, false)
				m.unblock(v)
			}
		}
		if cur != NoReal {
			m.RegisterExchange(at, kind, required, cur, spare)
			cr := &m.reals[cur]
			cr.ensureBlocked()
			cr.Virt = occupant
			m.virt(occupant).Assigned = cur
		} else {
			m.RegisterCopy(at, kind, required, spare)
			m.bind(occupant, spare)
			m.block(occupant)
			if vr.TotalUses != vr.FutureUses {
				m.ReverseSpillState(at, v, required, false)
			}
		}

	case Assigned:
		occupant := tr.Virt
		spare := NoReal
		if cur == NoReal || needTemp {
			spare = m.FindBestFreeRegister(at, kind, false, false, occupant)
		}
		if cur != NoReal {
			if !needTemp || spare != NoReal {
				m.RegisterExchange(at, kind, required, cur, spare)
				cr := &m.reals[cur]
				cr.setState(Assigned)
				cr.Virt = occupant
				m.virt(occupant).Assigned = cur
			} else {
				m.FreeBestRegister(at, occupant, required, false)
				m.RegisterCopy(at, kind, cur, required)
				m.release(cur)
			}
		} else {
			if spare == NoReal {
				m.FreeBestRegister(at, occupant, required, false)
			} else {
				m.RegisterCopy(at, kind, required, spare)
				m.bind(occupant, spare)
			}
			if vr.TotalUses != vr.FutureUses {
				m.ReverseSpillState(at, v, required, false)
			}
		}

	default:
		protocolf("coercion of %s into %s register %s", vr, tr.State, tr.Name)
	}

	m.bind(v, required)
}

// DecFutureUseCountAndUnlatch records one reference of v. A virtual with no
// future references, or on the hot path with only cold-path references left,
// gives up its register.
func (m *Machine) DecFutureUseCountAndUnlatch(v VirtID) {
	vr := m.virt(v)
	vr.FutureUses--
	if m.mode == coldPath {
		vr.OOLUses--
	}
	assertf(vr.FutureUses >= 0 && vr.FutureUses >= vr.OOLUses, "%s referenced more often than counted (future %d, ool %d)", vr, vr.FutureUses, vr.OOLUses)

	if vr.Assigned != NoReal && (vr.FutureUses == 0 || (m.mode == hotPath && vr.FutureUses == vr.OOLUses)) {
		m.reals[vr.Assigned].setState(Unlatched)
		vr.Assigned = NoReal
	}

	if vr.FutureUses == 0 && vr.Backing.Valid() && m.mode == coldPath {
		slot := m.spills.Slot(vr.Backing.Slot)
		if !m.spills.occupied(vr.Backing, m.spillSize(v)) && !m.spills.deferred.Contains(vr.Backing.Slot) {
			vr.Backing = NoSlotRef
			return
		}
		m.spills.FreeNow(vr.Backing, m.spillSize(v))
		slot.MaxSpillDepth = 0
		vr.Backing = NoSlotRef
	}
}
