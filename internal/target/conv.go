// Completion: 100% - Calling conventions complete
package target

import "strconv"

// CallingConvention describes which registers carry arguments and results
// and which ones a callee has to preserve
type CallingConvention interface {
	// Name of the ABI
	Name() string

	// IntegerArgRegs returns the registers for integer arguments in order
	IntegerArgRegs() []string

	// FloatArgRegs returns the registers for float arguments in order
	FloatArgRegs() []string

	// IntegerReturnReg returns the register for an integer return value
	IntegerReturnReg() string
	FloatReturnReg() string

	// CalleeSavedRegs returns registers that the callee must save/restore
	CalleeSavedRegs() []string

	// ShadowSpaceSize returns the size of shadow space required (Windows: 32, others: 0)
	ShadowSpaceSize() int

	// StackAlignment returns the required stack alignment (usually 16 bytes)
	StackAlignment() int
}

// SystemVAMD64 implements the System V AMD64 calling convention (Linux, macOS, BSD)
type SystemVAMD64 struct{}

func (cc *SystemVAMD64) Name() string { return "sysv" }

func (cc *SystemVAMD64) IntegerArgRegs() []string {
	return []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
}

func (cc *SystemVAMD64) FloatArgRegs() []string {
	return []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}
}

func (cc *SystemVAMD64) IntegerReturnReg() string {
	return "rax"
}

func (cc *SystemVAMD64) FloatReturnReg() string {
	return "xmm0"
}

func (cc *SystemVAMD64) CalleeSavedRegs() []string {
	return []string{"rbx", "rbp", "r12", "r13", "r14", "r15"}
}

func (cc *SystemVAMD64) ShadowSpaceSize() int {
	return 0 // No shadow space required
}

func (cc *SystemVAMD64) StackAlignment() int {
	return 16
}

// MicrosoftX64 implements the Microsoft x64 calling convention (Windows)
type MicrosoftX64 struct{}

func (cc *MicrosoftX64) Name() string { return "win64" }

func (cc *MicrosoftX64) IntegerArgRegs() []string {
	return []string{"rcx", "rdx", "r8", "r9"}
}

func (cc *MicrosoftX64) FloatArgRegs() []string {
	// float args use XMM0-XMM3, sharing slots with integer args
	return []string{"xmm0", "xmm1", "xmm2", "xmm3"}
}

func (cc *MicrosoftX64) IntegerReturnReg() string {
	return "rax"
}

func (cc *MicrosoftX64) FloatReturnReg() string {
	return "xmm0"
}

func (cc *MicrosoftX64) CalleeSavedRegs() []string {
	return []string{"rbx", "rbp", "rdi", "rsi", "r12", "r13", "r14", "r15",
		"xmm6", "xmm7", "xmm8", "xmm9", "xmm10", "xmm11", "xmm12", "xmm13", "xmm14", "xmm15"}
}

func (cc *MicrosoftX64) ShadowSpaceSize() int {
	return 32 // Required 32-byte shadow space
}

func (cc *MicrosoftX64) StackAlignment() int {
	return 16
}

// AAPCS64 implements the ARM64 procedure call standard
type AAPCS64 struct{}

func (cc *AAPCS64) Name() string { return "aapcs64" }

func (cc *AAPCS64) IntegerArgRegs() []string {
	return []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"}
}

func (cc *AAPCS64) FloatArgRegs() []string {
	return []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7"}
}

func (cc *AAPCS64) IntegerReturnReg() string { return "x0" }
func (cc *AAPCS64) FloatReturnReg() string   { return "v0" }

func (cc *AAPCS64) CalleeSavedRegs() []string {
	// only the low 64 bits of v8-v15 are preserved
	return []string{"x19", "x20", "x21", "x22", "x23", "x24", "x25", "x26", "x27", "x28", "x29",
		"v8", "v9", "v10", "v11", "v12", "v13", "v14", "v15"}
}

func (cc *AAPCS64) ShadowSpaceSize() int { return 0 }
func (cc *AAPCS64) StackAlignment() int  { return 16 }

// RISCVLP64D implements the RISC-V LP64D calling convention
type RISCVLP64D struct{}

func (cc *RISCVLP64D) Name() string { return "lp64d" }

func (cc *RISCVLP64D) IntegerArgRegs() []string {
	return []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}
}

func (cc *RISCVLP64D) FloatArgRegs() []string {
	return []string{"fa0", "fa1", "fa2", "fa3", "fa4", "fa5", "fa6", "fa7"}
}

func (cc *RISCVLP64D) IntegerReturnReg() string { return "a0" }
func (cc *RISCVLP64D) FloatReturnReg() string   { return "fa0" }

func (cc *RISCVLP64D) CalleeSavedRegs() []string {
	return []string{"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
		"fs0", "fs1", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7", "fs8", "fs9", "fs10", "fs11"}
}

func (cc *RISCVLP64D) ShadowSpaceSize() int { return 0 }
func (cc *RISCVLP64D) StackAlignment() int  { return 16 }

// PPC64ELFv2 implements the 64-bit PowerPC ELFv2 ABI
type PPC64ELFv2 struct{}

func (cc *PPC64ELFv2) Name() string { return "elfv2" }

func (cc *PPC64ELFv2) IntegerArgRegs() []string {
	return []string{"r3", "r4", "r5", "r6", "r7", "r8", "r9", "r10"}
}

func (cc *PPC64ELFv2) FloatArgRegs() []string {
	return []string{"f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12", "f13"}
}

func (cc *PPC64ELFv2) IntegerReturnReg() string { return "r3" }
func (cc *PPC64ELFv2) FloatReturnReg() string   { return "f1" }

func (cc *PPC64ELFv2) CalleeSavedRegs() []string {
	regs := []string{"cr2", "cr3", "cr4"}
	for i := 14; i <= 31; i++ {
		regs = append(regs, "r"+strconv.Itoa(i), "f"+strconv.Itoa(i))
	}
	return regs
}

func (cc *PPC64ELFv2) ShadowSpaceSize() int { return 0 }
func (cc *PPC64ELFv2) StackAlignment() int  { return 16 }
