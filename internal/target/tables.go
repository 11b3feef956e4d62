// Completion: 100% - Register tables complete
package target

import (
	"github.com/xyproto/regalloc/internal/ra"
)

func x86Tables(avx512 bool) [ra.NumKinds]kindTable {
	gpr := []string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi"}
	gpr = append(gpr, seq("r", 8, 15)...)
	nxmm := 15
	if avx512 {
		nxmm = 31
	}
	var t [ra.NumKinds]kindTable
	t[ra.KindGPR] = kindTable{
		names:    gpr,
		locked:   []string{"rsp", "rbp"},
		exchange: ra.ExchangeNative,
		ops:      ra.KindOps{Store: "mov", Load: "mov", Copy: "mov", Exchange: "xchg", Xor: "xor"},
		policy:   ra.PolicyAnchored,
	}
	t[ra.KindFPR] = kindTable{
		names:    seq("xmm", 0, nxmm),
		exchange: ra.ExchangeXOR,
		ops:      ra.KindOps{Store: "movups", Load: "movups", Copy: "movaps", Xor: "xorps"},
		policy:   ra.PolicyRing,
		saveSize: 16,
	}
	if avx512 {
		// k0 means "no mask" in an encoding and is never allocated
		t[ra.KindPredicate] = kindTable{
			names:    seq("k", 0, 7),
			locked:   []string{"k0"},
			exchange: ra.ExchangeNone,
			ops:      ra.KindOps{Store: "kmovw", Load: "kmovw", Copy: "kmovw"},
			policy:   ra.PolicyAnchored,
		}
	}
	return t
}

func arm64Tables() [ra.NumKinds]kindTable {
	var t [ra.NumKinds]kindTable
	t[ra.KindGPR] = kindTable{
		names:    append(seq("x", 0, 30), "xzr"),
		locked:   []string{"x18", "x29", "x30", "xzr"},
		exchange: ra.ExchangeXOR,
		ops:      ra.KindOps{Store: "str", Load: "ldr", Copy: "mov", Xor: "eor"},
		policy:   ra.PolicyAnchored,
	}
	t[ra.KindFPR] = kindTable{
		names:    seq("v", 0, 31),
		exchange: ra.ExchangeXOR,
		ops:      ra.KindOps{Store: "str", Load: "ldr", Copy: "mov", Xor: "eor"},
		policy:   ra.PolicyRing,
		saveSize: 8,
	}
	t[ra.KindPredicate] = kindTable{
		names:    seq("p", 0, 15),
		exchange: ra.ExchangeNone,
		ops:      ra.KindOps{Store: "str", Load: "ldr", Copy: "mov"},
		policy:   ra.PolicyAnchored,
	}
	return t
}

func riscvTables() [ra.NumKinds]kindTable {
	gpr := []string{"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2", "s0", "s1"}
	gpr = append(gpr, seq("a", 0, 7)...)
	gpr = append(gpr, seq("s", 2, 11)...)
	gpr = append(gpr, seq("t", 3, 6)...)

	fpr := seq("ft", 0, 7)
	fpr = append(fpr, "fs0", "fs1")
	fpr = append(fpr, seq("fa", 0, 7)...)
	fpr = append(fpr, seq("fs", 2, 11)...)
	fpr = append(fpr, seq("ft", 8, 11)...)

	var t [ra.NumKinds]kindTable
	t[ra.KindGPR] = kindTable{
		names:    gpr,
		locked:   []string{"zero", "ra", "sp", "gp", "tp"},
		exchange: ra.ExchangeXOR,
		ops:      ra.KindOps{Store: "sd", Load: "ld", Copy: "mv", Xor: "xor"},
		policy:   ra.PolicyAnchored,
	}
	t[ra.KindFPR] = kindTable{
		names:    fpr,
		exchange: ra.ExchangeNone,
		ops:      ra.KindOps{Store: "fsd", Load: "fld", Copy: "fmv.d"},
		policy:   ra.PolicyRing,
	}
	return t
}

func ppc64Tables() [ra.NumKinds]kindTable {
	var t [ra.NumKinds]kindTable
	// r0 reads as zero in a base register position
	t[ra.KindGPR] = kindTable{
		names:    seq("r", 0, 31),
		locked:   []string{"r1", "r2", "r13"},
		zero:     "r0",
		exchange: ra.ExchangeXOR,
		ops:      ra.KindOps{Store: "std", Load: "ld", Copy: "mr", Xor: "xor"},
		policy:   ra.PolicyAnchored,
	}
	t[ra.KindFPR] = kindTable{
		names:    seq("f", 0, 31),
		exchange: ra.ExchangeNone,
		ops:      ra.KindOps{Store: "stfd", Load: "lfd", Copy: "fmr"},
		policy:   ra.PolicyRing,
	}
	t[ra.KindPredicate] = kindTable{
		names:    seq("cr", 0, 7),
		exchange: ra.ExchangeNone,
		ops:      ra.KindOps{Store: "stw", Load: "lwz", Copy: "mcrf"},
		policy:   ra.PolicyAnchored,
	}
	return t
}
