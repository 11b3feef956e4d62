// Completion: 95% - Target descriptions complete
package target

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/xyproto/regalloc/internal/engine"
	"github.com/xyproto/regalloc/internal/ra"
	"golang.org/x/sys/cpu"
)

// Target is a machine description the allocator can work against
type Target struct {
	Name     string
	Platform engine.Platform
	Conv     CallingConvention
	Config   *ra.MachineConfig
	AVX512   bool
}

// kindTable is the register list of one kind before flags are applied
type kindTable struct {
	names    []string
	locked   []string
	zero     string
	exchange ra.ExchangeCap
	ops      ra.KindOps
	policy   ra.PolicyKind
	saveSize int
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// build turns a register list into a kind description. Caller-saved registers
// are the cheapest, argument registers a little dearer, and callee-saved
// registers cost a save and restore.
func (k kindTable) build(conv CallingConvention) ra.KindSpec {
	callee := conv.CalleeSavedRegs()
	args := append(conv.IntegerArgRegs(), conv.FloatArgRegs()...)
	spec := ra.KindSpec{
		Exchange: k.exchange,
		Ops:      k.ops,
		Policy:   k.policy,
		SaveSize: k.saveSize,
	}
	for _, name := range k.names {
		rs := ra.RegisterSpec{Name: name, Weight: 1}
		switch {
		case contains(callee, name):
			rs.Preserved = true
			rs.Weight = 4
		case contains(args, name):
			rs.Weight = 2
		}
		rs.Locked = contains(k.locked, name)
		rs.Zero = name == k.zero
		spec.Registers = append(spec.Registers, rs)
	}
	return spec
}

func seq(prefix string, from, to int) []string {
	out := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

// New builds the target for a platform
func New(p engine.Platform, avx512 bool) (*Target, error) {
	t := &Target{Platform: p, AVX512: avx512, Name: p.Name()}
	var tables [ra.NumKinds]kindTable
	switch p.Arch {
	case engine.ArchX86_64:
		t.Conv = &SystemVAMD64{}
		if p.OS == engine.OSWindows {
			t.Conv = &MicrosoftX64{}
		}
		tables = x86Tables(avx512)
		if avx512 {
			t.Name += "-avx512"
		}
	case engine.ArchARM64:
		t.Conv = &AAPCS64{}
		tables = arm64Tables()
	case engine.ArchRiscv64:
		t.Conv = &RISCVLP64D{}
		tables = riscvTables()
	case engine.ArchPPC64:
		t.Conv = &PPC64ELFv2{}
		tables = ppc64Tables()
	default:
		return nil, fmt.Errorf("no register description for %s", p.Arch)
	}

	cfg := &ra.MachineConfig{
		Name:         t.Name,
		PointerSize:  p.PointerSize(),
		StackPointer: p.StackPointer(),
		StackAlign:   t.Conv.StackAlignment(),
	}
	for k := range tables {
		cfg.Kinds[k] = tables[k].build(t.Conv)
	}
	t.Config = cfg
	return t, nil
}

// Lookup finds a target by name: an architecture, optionally followed by an
// OS and an "avx512" suffix, e.g. "x86_64-windows" or "amd64-avx512"
func Lookup(name string) (*Target, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "host" {
		return Host(), nil
	}
	avx512 := false
	if strings.HasSuffix(name, "-avx512") {
		avx512 = true
		name = strings.TrimSuffix(name, "-avx512")
	}
	p, err := engine.ParsePlatform(name)
	if err != nil {
		return nil, err
	}
	if avx512 && p.Arch != engine.ArchX86_64 {
		return nil, fmt.Errorf("avx512 is only available on x86_64, not %s", p.Arch)
	}
	return New(p, avx512)
}

// Host returns the description of the machine the program runs on
func Host() *Target {
	p := engine.HostPlatform()
	avx512 := p.Arch == engine.ArchX86_64 && cpu.X86.HasAVX512F && runtime.GOARCH == "amd64"
	t, err := New(p, avx512)
	if err != nil {
		t, _ = New(engine.Platform{Arch: engine.ArchX86_64, OS: engine.OSLinux}, false)
	}
	return t
}

// Names returns the names Lookup understands, sorted
func Names() []string {
	names := []string{"x86_64", "x86_64-avx512", "x86_64-windows", "aarch64", "riscv64", "ppc64"}
	sort.Strings(names)
	return names
}

// Register returns the id of a register by name
func (t *Target) Register(name string) (ra.RealID, bool) {
	r, _, ok := t.Config.LookupRegister(name)
	return r, ok
}

// ArgRegister returns the register carrying argument i of the given kind
func (t *Target) ArgRegister(kind ra.Kind, i int) (ra.RealID, bool) {
	var regs []string
	switch kind {
	case ra.KindGPR:
		regs = t.Conv.IntegerArgRegs()
	case ra.KindFPR:
		regs = t.Conv.FloatArgRegs()
	}
	if i < 0 || i >= len(regs) {
		return ra.NoReal, false
	}
	return t.Register(regs[i])
}

// ReturnRegister returns the register carrying a return value of the given kind
func (t *Target) ReturnRegister(kind ra.Kind) (ra.RealID, bool) {
	switch kind {
	case ra.KindGPR:
		return t.Register(t.Conv.IntegerReturnReg())
	case ra.KindFPR:
		return t.Register(t.Conv.FloatReturnReg())
	}
	return ra.NoReal, false
}

// Describe renders the register files for display
func (t *Target) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s, %s ABI)\n", t.Name, t.Platform.FullString(), t.Conv.Name())
	for k := ra.Kind(0); k < ra.NumKinds; k++ {
		spec := &t.Config.Kinds[k]
		if len(spec.Registers) == 0 {
			continue
		}
		var free, locked, preserved []string
		for _, r := range spec.Registers {
			switch {
			case r.Locked:
				locked = append(locked, r.Name)
			case r.Preserved:
				preserved = append(preserved, r.Name)
				free = append(free, r.Name)
			default:
				free = append(free, r.Name)
			}
		}
		policy := spec.Policy
		if policy == ra.PolicyDefault {
			policy = ra.PolicyAnchored
		}
		fmt.Fprintf(&sb, "  %s: %d allocatable, exchange %s, policy %s\n", k, len(free), spec.Exchange, policy)
		fmt.Fprintf(&sb, "    %s\n", strings.Join(free, " "))
		if len(preserved) > 0 {
			fmt.Fprintf(&sb, "    preserved: %s\n", strings.Join(preserved, " "))
		}
		if len(locked) > 0 {
			fmt.Fprintf(&sb, "    locked: %s\n", strings.Join(locked, " "))
		}
	}
	return sb.String()
}
