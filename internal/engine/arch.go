// Completion: 100% - Platform descriptions complete
package engine

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch is a processor family with a register description
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchARM64
	ArchRiscv64
	ArchPPC64
)

// archInfo holds what the allocator needs to know about an architecture
// before its register tables are built
type archInfo struct {
	name         string
	aliases      []string
	stackPointer string
	pointerSize  int
}

var arches = map[Arch]archInfo{
	ArchX86_64:  {"x86_64", []string{"amd64", "x86-64"}, "rsp", 8},
	ArchARM64:   {"aarch64", []string{"arm64"}, "sp", 8},
	ArchRiscv64: {"riscv64", []string{"riscv", "rv64"}, "sp", 8},
	ArchPPC64:   {"ppc64", []string{"ppc64le", "power"}, "r1", 8},
}

func (a Arch) String() string {
	if info, ok := arches[a]; ok {
		return info.name
	}
	return "unknown"
}

// ParseArch accepts the canonical names and the GOARCH spellings
func ParseArch(s string) (Arch, error) {
	s = strings.ToLower(s)
	for a, info := range arches {
		if s == info.name {
			return a, nil
		}
		for _, alias := range info.aliases {
			if s == alias {
				return a, nil
			}
		}
	}
	return ArchUnknown, fmt.Errorf("unsupported architecture: %s (supported: amd64, arm64, riscv64, ppc64le)", s)
}

// OS only changes the calling convention and the target name
type OS int

const (
	OSLinux OS = iota
	OSDarwin
	OSFreeBSD
	OSWindows
)

var osNames = [...][]string{
	OSLinux:   {"linux"},
	OSDarwin:  {"darwin", "macos"},
	OSFreeBSD: {"freebsd"},
	OSWindows: {"windows", "win", "wine"},
}

func (o OS) String() string {
	if o >= 0 && int(o) < len(osNames) {
		return osNames[o][0]
	}
	return "unknown"
}

// ParseOS accepts the GOOS spellings and a few common aliases
func ParseOS(s string) (OS, error) {
	s = strings.ToLower(s)
	for o, names := range osNames {
		for _, n := range names {
			if s == n {
				return OS(o), nil
			}
		}
	}
	return 0, fmt.Errorf("unsupported OS: %s (supported: linux, darwin, freebsd, windows)", s)
}

// Platform is the architecture and OS a method is allocated for
type Platform struct {
	Arch Arch
	OS   OS
}

func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.Arch, p.OS)
}

// FullString is the form shown by the targets command
func (p Platform) FullString() string {
	return fmt.Sprintf("%s on %s", p.Arch, p.OS)
}

// Name is the target name: the architecture, with "-windows" when the
// Microsoft convention applies
func (p Platform) Name() string {
	if p.Arch == ArchX86_64 && p.OS == OSWindows {
		return p.Arch.String() + "-windows"
	}
	return p.Arch.String()
}

// StackPointer names the register spill slots are addressed from
func (p Platform) StackPointer() string {
	return arches[p.Arch].stackPointer
}

// PointerSize is the size of a machine word in bytes, 0 when unknown
func (p Platform) PointerSize() int {
	return arches[p.Arch].pointerSize
}

// ParsePlatform parses "arch" or "arch-os"; the OS defaults to linux
func ParsePlatform(s string) (Platform, error) {
	s = strings.ToLower(s)
	if strings.HasPrefix(s, "x86-64") {
		s = "x86_64" + strings.TrimPrefix(s, "x86-64")
	}
	archPart, osPart, found := strings.Cut(s, "-")
	arch, err := ParseArch(archPart)
	if err != nil {
		return Platform{}, err
	}
	p := Platform{Arch: arch, OS: OSLinux}
	if found {
		if p.OS, err = ParseOS(osPart); err != nil {
			return Platform{}, err
		}
	}
	return p, nil
}

// HostPlatform describes the running machine, falling back to x86_64 linux
// for what has no register description
func HostPlatform() Platform {
	p := Platform{Arch: ArchX86_64, OS: OSLinux}
	if a, err := ParseArch(runtime.GOARCH); err == nil {
		p.Arch = a
	}
	if o, err := ParseOS(runtime.GOOS); err == nil {
		p.OS = o
	}
	return p
}
