// Completion: 90% - Out-of-line region tracking complete
package ra

import (
	"github.com/sirupsen/logrus"
)

// OOLRegionTracker keeps the register state consistent across an out-of-line
// region. The hot path is allocated first; the cold section then starts from
// the state at the branch and must rejoin with the state at the merge label.
type OOLRegionTracker struct {
	m      *Machine
	region RegionID
	entry  *Snapshot
	merge  *Snapshot
	rejoin *DependencyGroup
}

func newOOLRegionTracker(m *Machine) *OOLRegionTracker {
	return &OOLRegionTracker{m: m}
}

// Active returns the region being allocated, or 0
func (t *OOLRegionTracker) Active() RegionID {
	return t.region
}

// Enter is called after the region branch: the register state is saved,
// backing stores stop being recycled and the scan continues on the hot path
func (t *OOLRegionTracker) Enter(id RegionID) {
	m := t.m
	assertf(t.region == 0 && m.mode == mainLine, "region %s entered inside region %d", m.method.Region(id).Name, t.region)
	t.region = id
	t.entry = m.TakeSnapshot()
	m.spills.Lock()
	m.mode = hotPath
	if m.trace {
		m.log.WithFields(logrus.Fields{"region": m.method.Region(id).Name}).Debug("enter hot path")
	}
}

// Merge is called at the merge label. It records the state the cold section has
// to rejoin with, attaches the rejoin group to the cold exit and resets the
// registers to the state at the branch.
func (t *OOLRegionTracker) Merge(id RegionID) {
	m := t.m
	assertf(t.region == id && m.mode == hotPath, "merge of region %d outside its hot path", id)
	t.merge = m.TakeSnapshot()

	g := NewDependencyGroup()
	for i := range m.reals {
		r := &m.reals[i]
		if r.State != Assigned {
			continue
		}
		vr := m.virt(r.Virt)
		if vr.FutureUses == vr.OOLUses {
			// nothing reads it after the merge
			continue
		}
		g.Add(r.Virt, r.ID)
		vr.TotalUses++
		vr.FutureUses++
		vr.OOLUses++
	}
	for _, v := range m.Spilled() {
		vr := m.virt(v)
		if vr.Assigned == NoReal && vr.Backing.Valid() && vr.FutureUses > vr.OOLUses {
			g.AddSpilled(v)
		}
	}
	t.rejoin = g

	exit := m.list.Get(m.method.Region(id).Exit)
	assertf(exit.Deps == nil, "cold exit of %s already carries dependencies", m.method.Region(id).Name)
	exit.Deps = g

	m.RestoreSnapshot(t.entry)
	m.mode = coldPath
	if m.trace {
		m.log.WithFields(logrus.Fields{"region": m.method.Region(id).Name, "rejoin": g.Format(m.virtName, m.realName)}).Debug("enter cold path")
	}
}

// Leave is called after the cold exit. The cold path must have rebuilt the
// state of the merge label; backing stores freed inside the region are
// recycled and the scan returns to the main line.
func (t *OOLRegionTracker) Leave(id RegionID) {
	m := t.m
	assertf(t.region == id && m.mode == coldPath, "cold exit of region %d outside its cold path", id)
	for _, d := range t.rejoin.Deps {
		vr := m.virt(d.Virt)
		switch d.Kind {
		case DepFixed:
			if vr.FutureUses > 0 {
				assertf(vr.Assigned == d.Real, "%s rejoins in %s instead of %s", vr, m.realName(vr.Assigned), m.reals[d.Real].Name)
			}
		case DepSpilled:
			assertf(vr.Assigned == NoReal, "%s rejoins in %s instead of its backing store", vr, m.realName(vr.Assigned))
		}
	}
	m.RestoreSnapshot(t.merge)

	for _, id := range m.spills.Unlock() {
		m.detachSlot(id)
	}
	m.DisassociateUnspilledBackingStorage()

	m.mode = mainLine
	t.region, t.entry, t.merge, t.rejoin = 0, nil, nil, nil
	if m.trace {
		m.log.WithFields(logrus.Fields{"region": m.method.Region(id).Name}).Debug("leave region")
	}
}

// detachSlot unlinks the owners of a recycled slot whose bytes are free
func (m *Machine) detachSlot(id SlotID) {
	for i := range m.method.virts {
		vr := &m.method.virts[i]
		if vr.Backing.Slot == id && !m.spills.occupied(vr.Backing, m.spillSize(vr.ID)) {
			vr.Backing = NoSlotRef
		}
	}
}

// DisassociateUnspilledBackingStorage releases the backing stores of virtuals
// that are in registers again after a region
func (m *Machine) DisassociateUnspilledBackingStorage() {
	for i := range m.method.virts {
		vr := &m.method.virts[i]
		if vr.Assigned == NoReal || !vr.Backing.Valid() {
			continue
		}
		if m.spills.occupied(vr.Backing, m.spillSize(vr.ID)) {
			m.spills.Free(vr.Backing, m.spillSize(vr.ID))
		}
		m.spills.Slot(vr.Backing.Slot).MaxSpillDepth = 0
		vr.Backing = NoSlotRef
		m.spilled.Remove(vr.ID)
	}
}
