// Completion: 100% - Free register selection policies complete
package ra

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// SelectQuery describes what a free register must satisfy
type SelectQuery struct {
	Interference      *bitset.BitSet // registers the virtual should avoid; may be nil
	ExcludeZero       bool
	ConsiderUnlatched bool
}

// Usable reports whether r may be handed out for q
func (q SelectQuery) Usable(r *RealRegister) bool {
	if q.ExcludeZero && r.Zero {
		return false
	}
	return r.State == Free || (q.ConsiderUnlatched && r.State == Unlatched)
}

// Interferes reports whether r is in the interference set of q
func (q SelectQuery) Interferes(r *RealRegister) bool {
	return q.Interference != nil && q.Interference.Test(r.Index)
}

// SelectionPolicy picks a free register of one kind.
// Select returns an index into regs or -1.
type SelectionPolicy interface {
	Name() string
	Select(regs []RealRegister, q SelectQuery) int
}

// NewPolicy creates the policy of the given kind for a register file
func NewPolicy(kind PolicyKind, regs []RealRegister) SelectionPolicy {
	if kind == PolicyRing {
		return NewRingPolicy(regs)
	}
	return &AnchoredPolicy{}
}

// AnchoredPolicy scans the whole file and prefers non-interfering registers,
// then the lowest weight. The working set stays anchored on the cheapest registers.
type AnchoredPolicy struct{}

// Name returns "anchored"
func (p *AnchoredPolicy) Name() string { return "anchored" }

// Select implements SelectionPolicy
func (p *AnchoredPolicy) Select(regs []RealRegister, q SelectQuery) int {
	best, bestWeight, iOld := -1, 0, false
	for i := range regs {
		r := &regs[i]
		if !q.Usable(r) {
			continue
		}
		iNew := q.Interferes(r)
		if best == -1 || (iOld && !iNew) || ((iOld || !iNew) && r.Weight < bestWeight) {
			best, bestWeight, iOld = i, r.Weight, iNew
		}
	}
	return best
}

// RingPolicy rotates through the registers already in use, ordered by weight,
// starting after the last one it handed out. Only when none of them qualifies
// does the in-use set grow into the remaining registers.
type RingPolicy struct {
	order    []int
	inUseEnd int
	last     int
}

// NewRingPolicy orders regs by weight
func NewRingPolicy(regs []RealRegister) *RingPolicy {
	order := make([]int, len(regs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return regs[order[a]].Weight < regs[order[b]].Weight
	})
	return &RingPolicy{order: order, inUseEnd: -1, last: -1}
}

// Name returns "ring"
func (p *RingPolicy) Name() string { return "ring" }

// Select implements SelectionPolicy
func (p *RingPolicy) Select(regs []RealRegister, q SelectQuery) int {
	best, pos, iOld := -1, -1, false
	if p.inUseEnd >= 0 {
		i := p.last
		for {
			i++
			if i > p.inUseEnd {
				i = 0
			}
			r := &regs[p.order[i]]
			if q.Usable(r) {
				iNew := q.Interferes(r)
				if best == -1 || (iOld && !iNew) {
					best, pos, iOld = p.order[i], i, iNew
				}
			}
			if i == p.last {
				break
			}
		}
		if best != -1 {
			p.last = pos
			return best
		}
	}
	for i := p.inUseEnd + 1; i < len(p.order); i++ {
		r := &regs[p.order[i]]
		if !q.Usable(r) {
			continue
		}
		iNew := q.Interferes(r)
		if best == -1 || !iNew {
			best, pos = p.order[i], i
			if !iNew {
				break
			}
		}
	}
	if best != -1 {
		p.inUseEnd, p.last = pos, pos
	}
	return best
}

// InUse returns how many registers the ring currently rotates through
func (p *RingPolicy) InUse() int {
	return p.inUseEnd + 1
}
