// Completion: 100% - Machine descriptions complete
package ra

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// PolicyKind selects the free-register selection policy of a register file
type PolicyKind uint8

const (
	PolicyDefault PolicyKind = iota
	PolicyAnchored
	PolicyRing
)

func (p PolicyKind) String() string {
	switch p {
	case PolicyAnchored:
		return "anchored"
	case PolicyRing:
		return "ring"
	default:
		return "default"
	}
}

// ParsePolicy parses a policy name
func ParsePolicy(s string) (PolicyKind, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return PolicyDefault, nil
	case "anchored", "lowest":
		return PolicyAnchored, nil
	case "ring", "rolling":
		return PolicyRing, nil
	default:
		return PolicyDefault, fmt.Errorf("unknown selection policy: %s (supported: anchored, ring)", s)
	}
}

// RegisterSpec describes one real register of a target
type RegisterSpec struct {
	Name      string
	Weight    int
	Preserved bool // callee-saved
	Locked    bool // never allocated
	Zero      bool // reserved zero register, excluded where an operand cannot take it
}

// KindSpec describes the register file of one kind
type KindSpec struct {
	Registers []RegisterSpec
	Exchange  ExchangeCap
	Ops       KindOps
	Policy    PolicyKind
	SaveSize  int // bytes per saved preserved register; 0 means the spill size
}

// MachineConfig is the target description the allocator works against
type MachineConfig struct {
	Name         string
	PointerSize  int
	StackPointer string
	StackAlign   int
	Kinds        [NumKinds]KindSpec
}

// NumRegisters returns the number of real registers over all kinds
func (c *MachineConfig) NumRegisters() int {
	n := 0
	for k := range c.Kinds {
		n += len(c.Kinds[k].Registers)
	}
	return n
}

// RealIDOf returns the arena index of register i of the given kind
func (c *MachineConfig) RealIDOf(kind Kind, i int) RealID {
	base := 0
	for k := Kind(0); k < kind; k++ {
		base += len(c.Kinds[k].Registers)
	}
	return RealID(base + i)
}

// LookupRegister finds a register by name
func (c *MachineConfig) LookupRegister(name string) (RealID, Kind, bool) {
	base := 0
	for k := Kind(0); k < NumKinds; k++ {
		for i, r := range c.Kinds[k].Registers {
			if strings.EqualFold(r.Name, name) {
				return RealID(base + i), k, true
			}
		}
		base += len(c.Kinds[k].Registers)
	}
	return NoReal, 0, false
}

// RegisterName returns the name of a real register
func (c *MachineConfig) RegisterName(r RealID) string {
	if r == NoReal {
		return "-"
	}
	i := int(r)
	for k := range c.Kinds {
		if i < len(c.Kinds[k].Registers) {
			return c.Kinds[k].Registers[i].Name
		}
		i -= len(c.Kinds[k].Registers)
	}
	return fmt.Sprintf("?%d", r)
}

// Options controls one allocation
type Options struct {
	// Log receives the assignment trace; nil discards it
	Log *logrus.Entry
	// Trace logs every assignment, spill, reload, exchange and region transition
	Trace bool
	// Policy overrides the per-kind policy of the target when not PolicyDefault
	Policy PolicyKind
	// AfterInstruction is called after each instruction of the forward pass
	AfterInstruction func(m *Machine, at InstrID)
}
