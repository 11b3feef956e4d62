// Completion: 95% - Dependency group resolution complete
package ra

import (
	"github.com/sirupsen/logrus"
)

// resolver satisfies one dependency group at one instruction
type resolver struct {
	m         *Machine
	at        InstrID
	g         *DependencyGroup
	byTarget  map[RealID]int
	byVirt    map[VirtID]int
	blockKind [NumKinds]bool
}

// AssignDependencies places every virtual of g as required before at, inserting
// the copies, exchanges, spills and reloads that takes, and consumes the group.
func (m *Machine) AssignDependencies(at InstrID, g *DependencyGroup) {
	rs := &resolver{
		m:        m,
		at:       at,
		g:        g,
		byTarget: make(map[RealID]int, len(g.Deps)),
		byVirt:   make(map[VirtID]int, len(g.Deps)),
	}
	if m.trace {
		m.log.WithFields(logrus.Fields{"instr": at, "deps": g.Format(m.virtName, m.realName), "path": m.mode}).Debug("resolve")
	}
	rs.spillRequired()
	rs.index()
	rs.checkCapacity()
	rs.blockPlaced()
	rs.assignFreeRegisters()
	rs.assignContendedRegisters()
	rs.assignNonZero()
	rs.assignAny()
	rs.finish()
}

// spillRequired stores every DepSpilled virtual that still has a register
func (rs *resolver) spillRequired() {
	m := rs.m
	for _, d := range rs.g.Deps {
		if d.Kind != DepSpilled {
			continue
		}
		vr := m.virt(d.Virt)
		assertf(vr.Backing.Valid(), "%s required in its backing store but has none", vr)
		if r := vr.Assigned; r != NoReal {
			m.spills.Occupy(vr.Backing, m.spillSize(d.Virt))
			m.emitStore(rs.at, r, d.Virt, vr.Backing)
			m.release(r)
		}
		m.spilled.Add(d.Virt)
	}
}

func (rs *resolver) index() {
	m := rs.m
	for i, d := range rs.g.Deps {
		if _, dup := rs.byVirt[d.Virt]; dup {
			protocolf("%s appears twice in one dependency group", m.virtName(d.Virt))
		}
		rs.byVirt[d.Virt] = i
		if d.Kind != DepFixed {
			continue
		}
		assertf(m.reals[d.Real].Kind == m.virt(d.Virt).Kind, "%s %s bound to %s register %s", m.virt(d.Virt).Kind, m.virtName(d.Virt), m.reals[d.Real].Kind, m.reals[d.Real].Name)
		assertf(m.reals[d.Real].State != Locked, "%s bound to locked register %s", m.virtName(d.Virt), m.reals[d.Real].Name)
		if _, dup := rs.byTarget[d.Real]; dup {
			protocolf("%s required twice in one dependency group", m.reals[d.Real].Name)
		}
		rs.byTarget[d.Real] = i
	}
}

func (rs *resolver) checkCapacity() {
	m := rs.m
	var num [NumKinds]int
	for _, d := range rs.g.Deps {
		if d.Kind != DepSpilled {
			num[m.virt(d.Virt).Kind]++
		}
	}
	for k := range num {
		if num[k] == 0 {
			continue
		}
		avail := m.files[k].Unlocked()
		if num[k] > avail {
			capacityf("too many %s dependencies (%d, %d registers available)", Kind(k), num[k], avail)
		}
		rs.blockKind[k] = num[k] < avail
	}
}

func (rs *resolver) target(r RealID) int {
	if i, ok := rs.byTarget[r]; ok {
		return i
	}
	return -1
}

// withAssigned returns the fixed dependency whose virtual currently sits in r
func (rs *resolver) withAssigned(r RealID) int {
	if r == NoReal {
		return -1
	}
	reg := &rs.m.reals[r]
	if (reg.State != Assigned && reg.State != Blocked) || reg.Virt == NoVirt {
		return -1
	}
	i, ok := rs.byVirt[reg.Virt]
	if !ok || rs.g.Deps[i].Kind != DepFixed {
		return -1
	}
	return i
}

// blockPlaced blocks the virtuals that must not move
func (rs *resolver) blockPlaced() {
	m := rs.m
	for _, d := range rs.g.Deps {
		if d.Kind == DepSpilled {
			continue
		}
		vr := m.virt(d.Virt)
		if vr.Assigned == NoReal {
			continue
		}
		switch {
		case d.Kind == DepAny || d.Kind == DepNonZero:
			m.block(d.Virt)
		case d.Real == vr.Assigned:
			m.block(d.Virt)
		case rs.target(vr.Assigned) >= 0 && rs.blockKind[vr.Kind]:
			m.block(d.Virt)
		}
	}
}

// assignFreeRegisters places the dependencies whose target is Free, following
// each chain into the register the moved virtual leaves behind
func (rs *resolver) assignFreeRegisters() {
	m := rs.m
	for i, d := range rs.g.Deps {
		if d.Kind != DepFixed || m.reals[d.Real].State != Free {
			continue
		}
		for j := i; j >= 0; {
			dj := rs.g.Deps[j]
			assertf(m.reals[dj.Real].State == Free, "expected %s to be free", m.reals[dj.Real].Name)
			old := m.virt(dj.Virt).Assigned
			m.CoerceRegisterAssignment(rs.at, dj.Virt, dj.Real)
			m.block(dj.Virt)
			j = -1
			if old != NoReal {
				j = rs.target(old)
			}
		}
	}
}

// chainHead follows "the dependency whose virtual sits in my target" until the
// chain ends or closes on i
func (rs *resolver) chainHead(i int) int {
	cursor := rs.withAssigned(rs.g.Deps[i].Real)
	if cursor < 0 {
		return i
	}
	for cursor != i {
		next := rs.withAssigned(rs.g.Deps[cursor].Real)
		if next < 0 {
			break
		}
		cursor = next
	}
	return cursor
}

// assignContendedRegisters resolves the remaining chains and cycles
func (rs *resolver) assignContendedRegisters() {
	m := rs.m
	for i, d := range rs.g.Deps {
		if d.Kind != DepFixed || m.virt(d.Virt).Assigned == d.Real {
			continue
		}
		rs.assignContended(i)
	}
}

func (rs *resolver) assignContended(i int) {
	m := rs.m
	head := rs.chainHead(i)
	d := rs.g.Deps[head]
	vr := m.virt(d.Virt)
	kind := vr.Kind
	assigned := vr.Assigned

	if assigned == NoReal || rs.target(assigned) < 0 {
		m.CoerceRegisterAssignment(rs.at, d.Virt, d.Real)
		m.block(d.Virt)
		return
	}

	// two virtuals trading places
	if rs.target(assigned) == rs.withAssigned(d.Real) {
		other := m.reals[d.Real].Virt
		m.CoerceRegisterAssignment(rs.at, d.Virt, d.Real)
		m.block(d.Virt)
		m.block(other)
		return
	}

	occupant := m.reals[d.Real].Virt
	spare := m.FindBestFreeRegister(rs.at, kind, false, false, occupant)
	if spare == NoReal {
		if !rs.blockKind[kind] {
			spare = m.FreeBestRegister(rs.at, d.Virt, d.Real, false)
		} else {
			spare = m.FreeBestRegister(rs.at, occupant, NoReal, false)
		}
	}
	if spare != d.Real {
		m.CoerceRegisterAssignment(rs.at, occupant, spare)
	}
	assertf(m.reals[d.Real].State == Free, "expected %s to be free", m.reals[d.Real].Name)
	m.CoerceRegisterAssignment(rs.at, d.Virt, d.Real)
	m.block(d.Virt)

	for j := rs.target(assigned); j >= 0; {
		dj := rs.g.Deps[j]
		old := m.virt(dj.Virt).Assigned
		if old == dj.Real {
			break
		}
		m.CoerceRegisterAssignment(rs.at, dj.Virt, dj.Real)
		m.block(dj.Virt)
		j = -1
		if old != NoReal {
			j = rs.target(old)
		}
	}
}

// assignNonZero moves DepNonZero virtuals out of the reserved zero register
func (rs *resolver) assignNonZero() {
	m := rs.m
	for _, d := range rs.g.Deps {
		if d.Kind != DepNonZero {
			continue
		}
		vr := m.virt(d.Virt)
		switch r := vr.Assigned; {
		case r == NoReal:
			m.AssignOneRegister(rs.at, d.Virt, true)
		case m.reals[r].Zero:
			t := m.FindBestFreeRegister(rs.at, vr.Kind, true, false, d.Virt)
			if t == NoReal {
				t = m.FreeBestRegister(rs.at, d.Virt, NoReal, true)
			}
			m.CoerceRegisterAssignment(rs.at, d.Virt, t)
		}
		m.block(d.Virt)
	}
}

// assignAny gives every DepAny virtual some register
func (rs *resolver) assignAny() {
	m := rs.m
	for _, d := range rs.g.Deps {
		if d.Kind != DepAny {
			continue
		}
		if m.virt(d.Virt).Assigned == NoReal {
			m.AssignOneRegister(rs.at, d.Virt, false)
		}
		m.block(d.Virt)
	}
}

// finish unblocks the group, records the registers chosen for DepAny and
// DepNonZero, and counts one reference of every placed virtual
func (rs *resolver) finish() {
	m := rs.m
	for _, d := range rs.g.Deps {
		if d.Kind != DepSpilled {
			m.unblock(d.Virt)
		}
	}
	for i := range rs.g.Deps {
		d := &rs.g.Deps[i]
		if d.Kind == DepSpilled {
			continue
		}
		vr := m.virt(d.Virt)
		if vr.Assigned == NoReal {
			assertf(m.mode != mainLine, "%s left without a register by its dependency group", vr)
			continue
		}
		if d.Kind == DepFixed {
			assertf(vr.Assigned == d.Real, "%s placed in %s instead of %s", vr, m.reals[vr.Assigned].Name, m.reals[d.Real].Name)
		} else {
			d.Real = vr.Assigned
		}
		m.DecFutureUseCountAndUnlatch(d.Virt)
	}
}
