// Completion: 100% - Register file snapshots complete
package ra

// regSnapshot is the saved state of one real register
type regSnapshot struct {
	state        RegState
	virt         VirtID
	association  VirtID
	everAssigned bool
}

// Snapshot is the state of every register file at one point of the scan
type Snapshot struct {
	regs []regSnapshot
}

// Assigned returns the virtual a register held when the snapshot was taken
func (s *Snapshot) Assigned(r RealID) (VirtID, bool) {
	e := s.regs[r]
	if e.state != Assigned {
		return NoVirt, false
	}
	return e.virt, true
}

// TakeSnapshot records the state, holder, association and flags of every register
func (m *Machine) TakeSnapshot() *Snapshot {
	s := &Snapshot{regs: make([]regSnapshot, len(m.reals))}
	for i := range m.reals {
		r := &m.reals[i]
		assertf(r.State != Blocked && r.State != Unlatched, "snapshot with %s %s", r.State, r.Name)
		e := regSnapshot{
			state:        r.State,
			virt:         NoVirt,
			association:  m.associations[i],
			everAssigned: r.EverAssigned,
		}
		if r.State == Assigned {
			e.virt = r.Virt
		}
		s.regs[i] = e
	}
	return s
}

// RestoreSnapshot puts every unlocked register back into its recorded state.
// Registers recorded as holding a virtual with no future references are freed
// instead, and the virtual links are rebuilt from the restored holders.
// Ever-assigned flags are never cleared.
func (m *Machine) RestoreSnapshot(s *Snapshot) {
	for i := range m.reals {
		r := &m.reals[i]
		if r.State == Locked || r.Virt == NoVirt {
			continue
		}
		if vr := m.virt(r.Virt); vr.Assigned == r.ID {
			vr.Assigned = NoReal
		}
	}
	for i := range m.reals {
		r := &m.reals[i]
		if r.State == Locked {
			continue
		}
		e := s.regs[i]
		r.State = e.state
		r.Virt = e.virt
		r.EverAssigned = r.EverAssigned || e.everAssigned
		m.associations[i] = e.association
		if e.state != Assigned {
			continue
		}
		vr := m.virt(e.virt)
		if vr.FutureUses == 0 {
			r.State = Free
			r.Virt = NoVirt
			continue
		}
		vr.Assigned = r.ID
	}
}
