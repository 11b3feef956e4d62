// Completion: 100% - Liveness pre-pass complete
package ra

// ComputeLiveness walks the instruction list backward, counts the total and
// out-of-line uses of every virtual, records fixed dependencies as associations
// and accumulates interference. A virtual dies at its first reference in list order.
func (m *Machine) ComputeLiveness() {
	virts := m.method.virts
	list := m.list

	for i := range virts {
		vr := &virts[i]
		vr.TotalUses, vr.FutureUses, vr.OOLUses = 0, 0, 0
		vr.Interference.ClearAll()
	}

	first := make([]InstrID, len(virts))
	for i := range first {
		first[i] = NoInstr
	}
	seen := func(v VirtID, id InstrID) {
		if first[v] == NoInstr {
			first[v] = id
		}
	}
	for id := list.Head(); id != NoInstr; id = list.Next(id) {
		in := list.Get(id)
		for _, op := range in.Operands {
			seen(op.Virt, id)
		}
		if in.Deps != nil {
			for _, d := range in.Deps.Deps {
				seen(d.Virt, id)
			}
		}
	}

	for k := range m.live {
		m.live[k] = NewLiveRegisterSet(m, Kind(k))
	}

	count := func(v VirtID, cold bool) {
		vr := &virts[v]
		vr.TotalUses++
		if cold {
			vr.OOLUses++
		}
		m.live[vr.Kind].AddRegister(v)
	}

	for id := list.Tail(); id != NoInstr; id = list.Prev(id) {
		in := list.Get(id)
		var pairs []VirtID
		for _, op := range in.Operands {
			count(op.Virt, in.Cold)
			if op.Pair != NoVirt && (len(pairs) == 0 || pairs[len(pairs)-1] != op.Pair) {
				pairs = append(pairs, op.Pair)
			}
		}
		if in.Deps != nil {
			for _, d := range in.Deps.Deps {
				count(d.Virt, in.Cold)
				if d.Kind == DepFixed {
					m.live[virts[d.Virt].Kind].SetAssociation(d.Virt, d.Real)
				}
			}
		}

		// a pair whose halves are both defined here dies as a unit
		for _, p := range pairs {
			pv := &virts[p]
			if first[pv.Low] == id && first[pv.High] == id {
				m.live[pv.Kind].RegisterIsDead(p)
			}
		}
		for _, op := range in.Operands {
			if first[op.Virt] == id {
				m.live[virts[op.Virt].Kind].RegisterIsDead(op.Virt)
			}
		}
		if in.Deps != nil {
			for _, d := range in.Deps.Deps {
				if first[d.Virt] == id {
					m.live[virts[d.Virt].Kind].RegisterIsDead(d.Virt)
				}
			}
		}
	}

	// used without a definition: live from the procedure entry
	for k := range m.live {
		m.live[k].killAll()
	}
	for i := range virts {
		virts[i].FutureUses = virts[i].TotalUses
	}
}
