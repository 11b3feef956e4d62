package target

import (
	"strings"
	"testing"

	"github.com/xyproto/regalloc/internal/ra"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func unlocked(spec ra.KindSpec) int {
	n := 0
	for _, r := range spec.Registers {
		if !r.Locked {
			n++
		}
	}
	return n
}

func TestLookupAllTargets(t *testing.T) {
	for _, name := range Names() {
		tg, err := Lookup(name)
		assert.NilError(t, err, name)
		assert.Check(t, tg.Config.PointerSize == 8, name)
		assert.Check(t, unlocked(tg.Config.Kinds[ra.KindGPR]) > 8, name)
		assert.Check(t, tg.Config.StackAlign == 16, name)
	}
}

func TestX86Registers(t *testing.T) {
	tg, err := Lookup("x86_64")
	assert.NilError(t, err)
	gpr := tg.Config.Kinds[ra.KindGPR]
	assert.Check(t, is.Len(gpr.Registers, 16))
	assert.Equal(t, unlocked(gpr), 14)
	assert.Equal(t, gpr.Exchange, ra.ExchangeNative)
	assert.Check(t, is.Len(tg.Config.Kinds[ra.KindFPR].Registers, 16))
	assert.Check(t, is.Len(tg.Config.Kinds[ra.KindPredicate].Registers, 0))

	rbx, ok := tg.Register("rbx")
	assert.Assert(t, ok)
	assert.Check(t, gpr.Registers[rbx].Preserved)
	assert.Equal(t, gpr.Registers[rbx].Weight, 4)

	rdi, ok := tg.ArgRegister(ra.KindGPR, 0)
	assert.Assert(t, ok)
	assert.Equal(t, tg.Config.RegisterName(rdi), "rdi")
	ret, ok := tg.ReturnRegister(ra.KindFPR)
	assert.Assert(t, ok)
	assert.Equal(t, tg.Config.RegisterName(ret), "xmm0")
}

func TestAVX512WidensVectorFile(t *testing.T) {
	tg, err := Lookup("amd64-avx512")
	assert.NilError(t, err)
	assert.Check(t, is.Len(tg.Config.Kinds[ra.KindFPR].Registers, 32))
	assert.Equal(t, unlocked(tg.Config.Kinds[ra.KindPredicate]), 7)

	_, err = Lookup("aarch64-avx512")
	assert.ErrorContains(t, err, "only available on x86_64")
}

func TestWindowsPreservesXMM(t *testing.T) {
	tg, err := Lookup("x86_64-windows")
	assert.NilError(t, err)
	r, ok := tg.Register("xmm6")
	assert.Assert(t, ok)
	idx := int(r) - len(tg.Config.Kinds[ra.KindGPR].Registers)
	assert.Check(t, tg.Config.Kinds[ra.KindFPR].Registers[idx].Preserved)
	rdi, _ := tg.Register("rdi")
	assert.Check(t, tg.Config.Kinds[ra.KindGPR].Registers[rdi].Preserved)
}

func TestPPC64ReservedZero(t *testing.T) {
	tg, err := Lookup("ppc64")
	assert.NilError(t, err)
	gpr := tg.Config.Kinds[ra.KindGPR]
	assert.Check(t, gpr.Registers[0].Zero)
	assert.Check(t, !gpr.Registers[0].Locked)
	assert.Check(t, gpr.Registers[1].Locked)
	assert.Equal(t, tg.Config.Kinds[ra.KindPredicate].Exchange, ra.ExchangeNone)
}

func TestPrologueEpilogue(t *testing.T) {
	tg, err := Lookup("aarch64")
	assert.NilError(t, err)
	x19, _ := tg.Register("x19")
	f := ra.Frame{
		SaveSet:   []ra.SavedRegister{{Real: x19, Name: "x19", Kind: ra.KindGPR, Offset: 8, Size: 8}},
		SpillArea: 8,
		SaveArea:  8,
		Size:      16,
	}
	assert.DeepEqual(t, tg.Prologue(f), []string{"sub sp, sp, #16", "str x19, [sp, #8]"})
	assert.DeepEqual(t, tg.Epilogue(f), []string{"ldr x19, [sp, #8]", "add sp, sp, #16"})
	assert.Check(t, is.Len(tg.Prologue(ra.Frame{}), 0))
}

func TestDescribe(t *testing.T) {
	tg, err := Lookup("riscv64")
	assert.NilError(t, err)
	d := tg.Describe()
	assert.Check(t, strings.Contains(d, "locked: zero ra sp gp tp"), d)
	assert.Check(t, strings.Contains(d, "FPR: 32 allocatable, exchange none, policy ring"), d)
}
