// Completion: 100% - Dependency groups complete
package ra

import (
	"fmt"
	"strings"
)

// DepKind is the placement requirement of one dependency
type DepKind uint8

const (
	// DepFixed requires a specific real register
	DepFixed DepKind = iota
	// DepAny requires some register of the virtual's kind
	DepAny
	// DepNonZero requires a register other than the reserved zero register
	DepNonZero
	// DepSpilled requires the value to be in its backing store
	DepSpilled
)

func (k DepKind) String() string {
	switch k {
	case DepFixed:
		return "fixed"
	case DepAny:
		return "any"
	case DepNonZero:
		return "nonzero"
	case DepSpilled:
		return "spilled"
	default:
		return "unknown"
	}
}

// Dependency pairs a virtual with a placement requirement
type Dependency struct {
	Virt VirtID
	Real RealID // required register for DepFixed, chosen register for DepAny and DepNonZero
	Kind DepKind
}

// DependencyGroup is the set of placements that must hold at one instruction
type DependencyGroup struct {
	Deps []Dependency
}

// NewDependencyGroup creates an empty group
func NewDependencyGroup() *DependencyGroup {
	return &DependencyGroup{}
}

// Add requires v to be in r
func (g *DependencyGroup) Add(v VirtID, r RealID) *DependencyGroup {
	g.Deps = append(g.Deps, Dependency{Virt: v, Real: r, Kind: DepFixed})
	return g
}

// AddAny requires v to be in some register
func (g *DependencyGroup) AddAny(v VirtID) *DependencyGroup {
	g.Deps = append(g.Deps, Dependency{Virt: v, Real: NoReal, Kind: DepAny})
	return g
}

// AddNonZero requires v to be in a register other than the reserved zero register
func (g *DependencyGroup) AddNonZero(v VirtID) *DependencyGroup {
	g.Deps = append(g.Deps, Dependency{Virt: v, Real: NoReal, Kind: DepNonZero})
	return g
}

// AddSpilled requires v to be in its backing store
func (g *DependencyGroup) AddSpilled(v VirtID) *DependencyGroup {
	g.Deps = append(g.Deps, Dependency{Virt: v, Real: NoReal, Kind: DepSpilled})
	return g
}

// Len returns the number of dependencies
func (g *DependencyGroup) Len() int {
	return len(g.Deps)
}

// Search returns the virtual bound to r by a fixed dependency, or NoVirt
func (g *DependencyGroup) Search(r RealID) VirtID {
	for _, d := range g.Deps {
		if d.Kind == DepFixed && d.Real == r {
			return d.Virt
		}
	}
	return NoVirt
}

// Clone returns a deep copy
func (g *DependencyGroup) Clone() *DependencyGroup {
	return &DependencyGroup{Deps: append([]Dependency(nil), g.Deps...)}
}

// Format renders the group with the given name lookups
func (g *DependencyGroup) Format(virtName func(VirtID) string, realName func(RealID) string) string {
	parts := make([]string, 0, len(g.Deps))
	for _, d := range g.Deps {
		switch {
		case d.Kind == DepFixed || d.Real != NoReal:
			parts = append(parts, fmt.Sprintf("%s:%s", virtName(d.Virt), realName(d.Real)))
		default:
			parts = append(parts, fmt.Sprintf("%s:%s", virtName(d.Virt), d.Kind))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
