package ra

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
	"pgregory.net/rapid"
)

func TestLiveRegisterSetMatchesModel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "virtuals")
		method := NewMethod("live")
		for i := 0; i < n; i++ {
			method.NewVirtual(KindGPR, "")
		}
		s := NewLiveRegisterSet(NewMachine(toyConfig(4, ExchangeNative), method, Options{}), KindGPR)
		model := make(map[VirtID]int)

		steps := rapid.IntRange(0, 80).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			v := VirtID(rapid.IntRange(0, n-1).Draw(rt, "v"))
			if rapid.Bool().Draw(rt, "add") {
				s.AddRegister(v)
				model[v]++
			} else {
				s.RegisterIsDead(v)
				delete(model, v)
			}
			if s.Count() != len(model) {
				rt.Fatalf("count %d, model %d", s.Count(), len(model))
			}
			for mv, refs := range model {
				if !s.IsLive(mv) || s.References(mv) != refs {
					rt.Fatalf("%d: live %v refs %d, model %d", mv, s.IsLive(mv), s.References(mv), refs)
				}
			}
		}

		want := make([]VirtID, 0, len(model))
		for v := range model {
			want = append(want, v)
		}
		got := s.Live()
		sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		if diff := cmp.Diff(want, got); diff != "" {
			rt.Fatalf("live set mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestAssociationBecomesInterference(t *testing.T) {
	cfg := toyConfig(4, ExchangeNative)
	method := NewMethod("assoc")
	a := method.NewVirtual(KindGPR, "a")
	b := method.NewVirtual(KindGPR, "b")
	m := NewMachine(cfg, method, Options{})
	s := NewLiveRegisterSet(m, KindGPR)
	r1 := realID(t, cfg, "r1")

	s.AddRegister(a)
	s.AddRegister(b)
	s.SetAssociation(a, r1)
	assert.Equal(t, method.Virtual(a).Association, r1)
	assert.Equal(t, m.AssociatedVirtual(r1), a)

	s.RegisterIsDead(a)
	s.RegisterIsDead(b)
	assert.Check(t, method.Virtual(b).Interference.Test(1))
	assert.Check(t, !method.Virtual(a).Interference.Test(1))
}

func TestLivenessCountsUses(t *testing.T) {
	method := NewMethod("count")
	a := method.NewVirtual(KindGPR, "a")
	b := method.NewVirtual(KindGPR, "b")
	method.Emit("def", Def(a))
	method.Emit("def", Def(b))
	r, err := method.BeginRegion("slow", Use(a))
	assert.NilError(t, err)
	method.Emit("use", Use(b))
	assert.NilError(t, method.MergeRegion(r))
	assert.NilError(t, method.BeginCold(r))
	method.Emit("use", Use(a), Use(b))
	assert.NilError(t, method.EndCold(r))

	m := NewMachine(toyConfig(4, ExchangeNative), method, Options{})
	m.ComputeLiveness()
	va, vb := method.Virtual(a), method.Virtual(b)
	assert.Equal(t, va.TotalUses, 3)
	assert.Equal(t, va.OOLUses, 1)
	assert.Equal(t, va.FutureUses, 3)
	assert.Equal(t, vb.TotalUses, 3)
	assert.Equal(t, vb.OOLUses, 1)
	assert.Equal(t, m.Live(KindGPR).Count(), 0)
}
