package ra

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"gotest.tools/v3/assert"
)

func regsWithWeights(weights ...int) []RealRegister {
	regs := make([]RealRegister, len(weights))
	for i, w := range weights {
		regs[i] = RealRegister{ID: RealID(i), Index: uint(i), Weight: w, Virt: NoVirt}
	}
	return regs
}

func TestAnchoredPrefersLowestWeight(t *testing.T) {
	regs := regsWithWeights(4, 1, 2)
	p := &AnchoredPolicy{}
	assert.Equal(t, p.Select(regs, SelectQuery{}), 1)

	var avoid bitset.BitSet
	avoid.Set(1)
	assert.Equal(t, p.Select(regs, SelectQuery{Interference: &avoid}), 2)

	regs[0].State, regs[2].State = Assigned, Assigned
	// an interfering register still beats none at all
	assert.Equal(t, p.Select(regs, SelectQuery{Interference: &avoid}), 1)
	regs[1].State = Assigned
	assert.Equal(t, p.Select(regs, SelectQuery{}), -1)
}

func TestAnchoredHonoursZeroAndUnlatched(t *testing.T) {
	regs := regsWithWeights(1, 2, 3)
	regs[0].Zero = true
	regs[1].State = Unlatched
	p := &AnchoredPolicy{}
	assert.Equal(t, p.Select(regs, SelectQuery{ExcludeZero: true}), 2)
	assert.Equal(t, p.Select(regs, SelectQuery{ExcludeZero: true, ConsiderUnlatched: true}), 1)
}

func TestRingReusesBeforeGrowing(t *testing.T) {
	regs := regsWithWeights(1, 1, 1, 1)
	p := NewRingPolicy(regs)
	assert.Equal(t, p.Select(regs, SelectQuery{}), 0)
	regs[0].State = Assigned
	assert.Equal(t, p.Select(regs, SelectQuery{}), 1)
	assert.Equal(t, p.InUse(), 2)

	regs[0].State = Free
	assert.Equal(t, p.Select(regs, SelectQuery{}), 0)
	assert.Equal(t, p.InUse(), 2)
}

func TestRingOrdersByWeight(t *testing.T) {
	regs := regsWithWeights(4, 4, 1)
	p := NewRingPolicy(regs)
	assert.Equal(t, p.Select(regs, SelectQuery{}), 2)
}

func TestNewPolicy(t *testing.T) {
	regs := regsWithWeights(1, 1)
	assert.Equal(t, NewPolicy(PolicyRing, regs).Name(), "ring")
	assert.Equal(t, NewPolicy(PolicyDefault, regs).Name(), "anchored")
	k, err := ParsePolicy("rolling")
	assert.NilError(t, err)
	assert.Equal(t, k, PolicyRing)
	_, err = ParsePolicy("random")
	assert.ErrorContains(t, err, "unknown selection policy")
}
