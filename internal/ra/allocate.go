// Completion: 95% - Forward allocation pass complete
package ra

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Result is the outcome of allocating one method
type Result struct {
	Method  *Method
	Machine *Machine
	Stats   Stats
	Frame   Frame
}

// Allocate assigns a real register to every operand of method for the target cfg.
// Spill, reload, copy and exchange instructions are inserted into the method's list.
func Allocate(method *Method, cfg *MachineConfig, opts Options) (res *Result, err error) {
	if method.allocated {
		return nil, errors.Errorf("method %s is already allocated", method.Name)
	}
	if err := method.Validate(); err != nil {
		return nil, err
	}
	m := NewMachine(cfg, method, opts)
	defer recoverAssertion(&err, method.Name)

	m.ComputeLiveness()
	m.run()
	method.allocated = true
	m.stats.Slots = len(m.spills.Slots())
	m.stats.SpillArea = m.spills.AreaSize()
	return &Result{Method: method, Machine: m, Stats: m.stats, Frame: m.ComputeFrame()}, nil
}

// run is the forward scan over the main line
func (m *Machine) run() {
	for id := m.list.Head(); id != NoInstr; {
		in := m.list.Get(id)
		if in.Cold {
			id = in.next
			continue
		}
		switch in.Op {
		case OpRegionMerge:
			region := in.Region
			if region == 0 {
				region = m.ool.Active()
			}
			m.walkCold(region)
		default:
			m.step(id)
		}
		id = m.list.Next(id)
	}
	for i := range m.reals {
		r := &m.reals[i]
		if r.State == Assigned || r.State == Blocked {
			m.log.WithFields(logrus.Fields{"real": r.Name, "virt": m.virtName(r.Virt)}).Debug("live at exit")
		}
	}
}

// walkCold allocates the cold section of a region after its hot path
func (m *Machine) walkCold(id RegionID) {
	r := m.method.Region(id)
	m.ool.Merge(id)
	for c := r.Entry; ; c = m.list.Next(c) {
		m.step(c)
		if c == r.Exit {
			break
		}
	}
	m.ool.Leave(id)
}

// step allocates one instruction
func (m *Machine) step(id InstrID) {
	in := m.list.Get(id)
	op, deps, ops, region := in.Op, in.Deps, in.Operands, in.Region

	if deps != nil {
		m.AssignDependencies(id, deps)
	}
	var pinned []VirtID
	if deps != nil {
		for _, d := range deps.Deps {
			if d.Kind != DepSpilled && m.virt(d.Virt).Assigned != NoReal {
				m.block(d.Virt)
				pinned = append(pinned, d.Virt)
			}
		}
	}

	// uses
	for i := range ops {
		if ops[i].Def {
			continue
		}
		ops[i].Real = m.useRegister(id, ops[i])
		m.block(ops[i].Virt)
	}
	for i := range ops {
		if ops[i].Def {
			continue
		}
		m.unblock(ops[i].Virt)
		m.DecFutureUseCountAndUnlatch(ops[i].Virt)
		m.block(ops[i].Virt)
	}

	// defs may reuse the register of a use that died here
	for i := range ops {
		if !ops[i].Def {
			continue
		}
		ops[i].Real = m.useRegister(id, ops[i])
		m.block(ops[i].Virt)
	}
	for i := range ops {
		m.unblock(ops[i].Virt)
	}
	for _, v := range pinned {
		m.unblock(v)
	}
	for i := range ops {
		if ops[i].Def {
			m.DecFutureUseCountAndUnlatch(ops[i].Virt)
		}
	}

	if op == OpRegionBranch {
		m.FreeUnlatched()
		m.ool.Enter(region)
	}
	m.FreeUnlatched()
	m.samplePressure()
	if m.after != nil {
		m.after(m, id)
	}
}

// useRegister returns the register holding the operand's virtual, assigning one if needed
func (m *Machine) useRegister(at InstrID, op Operand) RealID {
	vr := m.virt(op.Virt)
	r := vr.Assigned
	if r == NoReal {
		assertf(vr.FutureUses > 0, "%s referenced after its last counted use", vr)
		if !op.Def {
			assertf(vr.TotalUses != vr.FutureUses || m.mode == coldPath, "%s used before any definition", vr)
		}
		return m.AssignOneRegister(at, op.Virt, op.NonZero)
	}
	if op.NonZero && m.reals[r].Zero {
		t := m.FindBestFreeRegister(at, vr.Kind, true, false, op.Virt)
		if t == NoReal {
			t = m.FreeBestRegister(at, op.Virt, NoReal, true)
		}
		m.CoerceRegisterAssignment(at, op.Virt, t)
		return t
	}
	return r
}
