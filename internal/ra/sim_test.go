package ra

import (
	"fmt"
)

// simulator executes an allocated method over symbolic values along one route.
// Every virtual has one value; a use must find it in the register it was given.
type simulator struct {
	m       *Method
	regs    map[RealID]int
	mem     map[SlotRef]int
	defined map[VirtID]bool
}

func value(v VirtID) int {
	return 1000 + int(v)
}

// simulate runs the route through every hot path, then for each region the
// route that leaves at its branch through the cold section and rejoins at the merge
func simulate(m *Method) error {
	if err := simulateRoute(m, 0); err != nil {
		return fmt.Errorf("hot route: %w", err)
	}
	for _, r := range m.Regions() {
		if err := simulateRoute(m, r.ID); err != nil {
			return fmt.Errorf("cold route of %s: %w", r.Name, err)
		}
	}
	return nil
}

// simulateRoute executes the main line, taking the cold section of region cold
// instead of its hot path. With cold 0 every hot path is taken.
func simulateRoute(m *Method, cold RegionID) error {
	s := &simulator{
		m:       m,
		regs:    make(map[RealID]int),
		mem:     make(map[SlotRef]int),
		defined: make(map[VirtID]bool),
	}
	list := m.Instructions()
	inCold := false
	for id := list.Head(); id != NoInstr; {
		ins := list.Get(id)
		if ins.Cold && !inCold {
			id = list.Next(id)
			continue
		}
		if err := s.exec(ins); err != nil {
			return fmt.Errorf("instruction %d (%s %s): %w", id, ins.Op, ins.Mnemonic, err)
		}
		next := list.Next(id)
		switch {
		case cold != 0 && ins.Op == OpRegionBranch && ins.Region == cold:
			next, inCold = m.Region(cold).Entry, true
		case inCold && ins.Op == OpColdExit:
			next, inCold = m.Region(cold).Merge, false
		}
		id = next
	}
	return nil
}

func (s *simulator) expect(r RealID, v VirtID) error {
	got, ok := s.regs[r]
	if !ok || got != value(v) {
		return fmt.Errorf("%s expected in register %d, found %d", s.m.Virtual(v), r, got)
	}
	return nil
}

func (s *simulator) exec(ins *Instruction) error {
	ops := ins.Operands
	switch ins.Op {
	case OpStore:
		if err := s.expect(ops[0].Real, ins.Virt); err != nil {
			return err
		}
		s.mem[ins.Slot] = s.regs[ops[0].Real]
	case OpLoad:
		got, ok := s.mem[ins.Slot]
		if !ok || got != value(ins.Virt) {
			return fmt.Errorf("reload of %s found %d in slot %v", s.m.Virtual(ins.Virt), got, ins.Slot)
		}
		s.regs[ops[0].Real] = got
	case OpCopy:
		s.regs[ops[0].Real] = s.regs[ops[1].Real]
	case OpExchange:
		a, b := ops[0].Real, ops[1].Real
		s.regs[a], s.regs[b] = s.regs[b], s.regs[a]
	case OpXor:
		s.regs[ops[0].Real] ^= s.regs[ops[1].Real]
	default:
		if ins.Deps != nil {
			for _, d := range ins.Deps.Deps {
				if d.Kind == DepSpilled {
					continue
				}
				if !s.defined[d.Virt] {
					s.regs[d.Real] = value(d.Virt)
					s.defined[d.Virt] = true
					continue
				}
				if err := s.expect(d.Real, d.Virt); err != nil {
					return err
				}
			}
		}
		for _, op := range ops {
			if op.Def {
				continue
			}
			if op.Real == NoReal {
				return fmt.Errorf("use of %s left unallocated", s.m.Virtual(op.Virt))
			}
			if err := s.expect(op.Real, op.Virt); err != nil {
				return err
			}
		}
		for _, op := range ops {
			if op.Def {
				s.regs[op.Real] = value(op.Virt)
				s.defined[op.Virt] = true
			}
		}
	}
	return nil
}
