package ra

import (
	"fmt"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func inGroup(g *DependencyGroup, v VirtID) bool {
	for _, d := range g.Deps {
		if d.Virt == v {
			return true
		}
	}
	return false
}

// programGen draws random methods whose instructions never need more
// registers at once than the machine has, leaving one to spare
type programGen struct {
	rt        *rapid.T
	m         *Method
	k         int
	defined   []VirtID
	isDefined map[VirtID]bool
}

// op emits one instruction reading values from usable and writing at most one
// of definable. It returns the virtual it wrote, or NoVirt.
func (g *programGen) op(usable, definable []VirtID, withDeps bool) VirtID {
	rt, k := g.rt, g.k
	used := make(map[VirtID]bool)
	var ops []Operand
	if len(usable) > 0 {
		nuses := rapid.IntRange(0, min(2, k-2)).Draw(rt, "uses")
		for j := 0; j < nuses; j++ {
			v := rapid.SampledFrom(usable).Draw(rt, "use")
			if !used[v] {
				used[v] = true
				ops = append(ops, Use(v))
			}
		}
	}

	var deps *DependencyGroup
	if withDeps && len(usable) > 0 && rapid.Bool().Draw(rt, "deps") {
		deps = NewDependencyGroup()
		taken := make(map[RealID]bool)
		ndeps := rapid.IntRange(1, 2).Draw(rt, "ndeps")
		for j := 0; j < ndeps; j++ {
			v := rapid.SampledFrom(usable).Draw(rt, "dep")
			r := RealID(rapid.IntRange(0, k-1).Draw(rt, "reg"))
			if inGroup(deps, v) || taken[r] || (!used[v] && len(used) >= k-2) {
				continue
			}
			taken[r] = true
			used[v] = true
			deps.Add(v, r)
		}
		if deps.Len() == 0 {
			deps = nil
		}
	}

	def := NoVirt
	if len(definable) > 0 && len(used) < k-1 && rapid.Bool().Draw(rt, "def") {
		v := rapid.SampledFrom(definable).Draw(rt, "defv")
		if !used[v] {
			ops = append(ops, Def(v))
			def = v
		}
	}

	if deps != nil {
		g.m.EmitDeps("op", deps, ops...)
	} else {
		g.m.Emit("op", ops...)
	}
	return def
}

// section emits the body of a hot path or cold section. It reads values
// defined before the region and writes only temporaries of its own.
func (g *programGen) section(before []VirtID, label string) {
	usable := append([]VirtID(nil), before...)
	definable := []VirtID{g.m.NewVirtual(KindGPR, ""), g.m.NewVirtual(KindGPR, "")}
	n := rapid.IntRange(0, 4).Draw(g.rt, label)
	for i := 0; i < n; i++ {
		if v := g.op(usable, definable, false); v != NoVirt && !slices.Contains(usable, v) {
			usable = append(usable, v)
		}
	}
}

func (g *programGen) region(i int) {
	before := append([]VirtID(nil), g.defined...)
	var cond []Operand
	if len(before) > 0 && rapid.Bool().Draw(g.rt, "cond") {
		cond = append(cond, Use(rapid.SampledFrom(before).Draw(g.rt, "condv")))
	}
	id, err := g.m.BeginRegion(fmt.Sprintf("R%d", i), cond...)
	if err != nil {
		g.rt.Fatalf("begin region: %v", err)
	}
	g.section(before, "hot")
	if err := g.m.MergeRegion(id); err != nil {
		g.rt.Fatalf("merge: %v", err)
	}
	if err := g.m.BeginCold(id); err != nil {
		g.rt.Fatalf("cold: %v", err)
	}
	g.section(before, "cold")
	if err := g.m.EndCold(id); err != nil {
		g.rt.Fatalf("end cold: %v", err)
	}
}

// randomMethod draws a method of plain instructions, labels, dependency groups
// and, when regions is set, out-of-line regions
func randomMethod(rt *rapid.T, k int, regions bool) *Method {
	g := &programGen{rt: rt, m: NewMethod("random"), k: k, isDefined: make(map[VirtID]bool)}
	n := rapid.IntRange(1, 10).Draw(rt, "virtuals")
	vs := make([]VirtID, n)
	for i := range vs {
		vs[i] = g.m.NewVirtual(KindGPR, "")
	}

	steps := rapid.IntRange(1, 30).Draw(rt, "instructions")
	for i := 0; i < steps; i++ {
		switch {
		case rapid.IntRange(0, 9).Draw(rt, "label") == 0:
			g.m.Label(fmt.Sprintf("L%d", i))
		case regions && rapid.IntRange(0, 7).Draw(rt, "region") == 0:
			g.region(i)
		default:
			if v := g.op(g.defined, vs, true); v != NoVirt && !g.isDefined[v] {
				g.isDefined[v] = true
				g.defined = append(g.defined, v)
			}
		}
	}
	return g.m
}

func checkRandomProgram(rt *rapid.T, regions bool) {
	k := rapid.IntRange(3, 6).Draw(rt, "registers")
	exch := rapid.SampledFrom([]ExchangeCap{ExchangeNone, ExchangeXOR, ExchangeNative}).Draw(rt, "exchange")
	cfg := toyConfig(k, exch)
	m := randomMethod(rt, k, regions)
	clone := m.Clone()

	res, err := Allocate(m, cfg, Options{AfterInstruction: func(mc *Machine, at InstrID) {
		if err := mc.Verify(); err != nil {
			rt.Fatalf("after instruction %d: %v", at, err)
		}
	}})
	if err != nil {
		rt.Fatalf("allocate: %v", err)
	}
	if err := simulate(m); err != nil {
		rt.Fatalf("simulate: %v", err)
	}
	if res.Frame.Size%16 != 0 || res.Frame.SpillArea > res.Frame.Size {
		rt.Fatalf("frame %+v", res.Frame)
	}
	if res.Machine.Spills().Locked() {
		rt.Fatalf("spill free list still locked")
	}

	again, err := Allocate(clone, cfg, Options{})
	if err != nil {
		rt.Fatalf("allocate clone: %v", err)
	}
	if again.Stats.Spills != res.Stats.Spills || again.Stats.Copies != res.Stats.Copies {
		rt.Fatalf("clone allocated differently: %+v vs %+v", again.Stats, res.Stats)
	}
}

func TestRandomProgramsKeepValuesInPlace(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		checkRandomProgram(rt, false)
	})
}

func TestRandomRegionsKeepValuesOnBothPaths(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		checkRandomProgram(rt, true)
	})
}
