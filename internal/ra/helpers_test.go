package ra

import (
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
)

var toyOps = KindOps{Store: "st", Load: "ld", Copy: "mov", Exchange: "xchg", Xor: "xor"}

// toyConfig is a machine with n allocatable GPRs r0..r(n-1), a locked sp and
// four FPRs without an exchange instruction
func toyConfig(n int, exch ExchangeCap) *MachineConfig {
	gprs := make([]RegisterSpec, 0, n+1)
	for i := 0; i < n; i++ {
		gprs = append(gprs, RegisterSpec{Name: fmt.Sprintf("r%d", i), Weight: 1})
	}
	gprs = append(gprs, RegisterSpec{Name: "sp", Locked: true})
	fprs := make([]RegisterSpec, 4)
	for i := range fprs {
		fprs[i] = RegisterSpec{Name: fmt.Sprintf("f%d", i), Weight: 1}
	}
	return &MachineConfig{
		Name:         "toy",
		PointerSize:  8,
		StackPointer: "sp",
		StackAlign:   16,
		Kinds: [NumKinds]KindSpec{
			KindGPR: {Registers: gprs, Exchange: exch, Ops: toyOps},
			KindFPR: {Registers: fprs, Exchange: ExchangeNone, Ops: KindOps{Store: "fst", Load: "fld", Copy: "fmov"}, Policy: PolicyRing},
		},
	}
}

func realID(t *testing.T, cfg *MachineConfig, name string) RealID {
	t.Helper()
	r, _, ok := cfg.LookupRegister(name)
	assert.Assert(t, ok, name)
	return r
}

// expectAssertion runs f and returns the assertion it raised
func expectAssertion(t *testing.T, f func()) *AssertionError {
	t.Helper()
	var ae *AssertionError
	func() {
		defer func() {
			if r := recover(); r != nil {
				ae, _ = r.(*AssertionError)
			}
		}()
		f()
	}()
	assert.Assert(t, ae != nil, "expected an assertion")
	return ae
}

func allocate(t *testing.T, m *Method, cfg *MachineConfig) *Result {
	t.Helper()
	res, err := Allocate(m, cfg, Options{AfterInstruction: verifyEach(t)})
	assert.NilError(t, err)
	return res
}

func verifyEach(t *testing.T) func(*Machine, InstrID) {
	return func(m *Machine, at InstrID) {
		if err := m.Verify(); err != nil {
			t.Fatalf("after instruction %d: %v", at, err)
		}
	}
}

// operandReal returns the register given to operand i of instruction id
func operandReal(m *Method, id InstrID, i int) RealID {
	return m.Instructions().Get(id).Operands[i].Real
}

// line is the part of an allocated instruction two runs must agree on
type line struct {
	Op       Opcode
	Mnemonic string
	Reals    []RealID
	Slot     SlotRef
}

func project(m *Method) []line {
	var out []line
	list := m.Instructions()
	for _, id := range list.IDs() {
		in := list.Get(id)
		l := line{Op: in.Op, Mnemonic: in.Mnemonic, Slot: in.Slot}
		for _, op := range in.Operands {
			l.Reals = append(l.Reals, op.Real)
		}
		out = append(out, l)
	}
	return out
}
