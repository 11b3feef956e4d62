// Completion: 90% - Prologue and epilogue text complete
package target

import (
	"fmt"

	"github.com/xyproto/regalloc/internal/engine"
	"github.com/xyproto/regalloc/internal/ra"
)

// slot renders a stack address for the target
func (t *Target) slot(off int) string {
	sp := t.Config.StackPointer
	switch t.Platform.Arch {
	case engine.ArchX86_64:
		return fmt.Sprintf("[%s+%d]", sp, off)
	case engine.ArchARM64:
		return fmt.Sprintf("[%s, #%d]", sp, off)
	default:
		return fmt.Sprintf("%d(%s)", off, sp)
	}
}

// SlotAddress renders the address of a spill slot
func (t *Target) SlotAddress(ref ra.SlotRef, slots []ra.BackingStore) string {
	return t.slot(slots[ref.Slot].Offset + ref.Offset)
}

func saveOp(t *Target, s ra.SavedRegister, store bool) string {
	spec := &t.Config.Kinds[s.Kind]
	if store {
		return spec.Ops.Store
	}
	return spec.Ops.Load
}

// Prologue returns the instructions that allocate the frame and save the
// preserved registers the method uses
func (t *Target) Prologue(f ra.Frame) []string {
	if f.Size == 0 {
		return nil
	}
	var out []string
	sp := t.Config.StackPointer
	switch t.Platform.Arch {
	case engine.ArchX86_64:
		out = append(out, fmt.Sprintf("sub %s, %d", sp, f.Size))
	case engine.ArchARM64:
		out = append(out, fmt.Sprintf("sub %s, %s, #%d", sp, sp, f.Size))
	case engine.ArchRiscv64:
		out = append(out, fmt.Sprintf("addi %s, %s, -%d", sp, sp, f.Size))
	case engine.ArchPPC64:
		out = append(out, fmt.Sprintf("stdu %s, -%d(%s)", sp, f.Size, sp))
	}
	for _, s := range f.SaveSet {
		out = append(out, t.saveLine(s, true))
	}
	return out
}

// Epilogue restores the preserved registers and releases the frame
func (t *Target) Epilogue(f ra.Frame) []string {
	if f.Size == 0 {
		return nil
	}
	var out []string
	for _, s := range f.SaveSet {
		out = append(out, t.saveLine(s, false))
	}
	sp := t.Config.StackPointer
	switch t.Platform.Arch {
	case engine.ArchX86_64:
		out = append(out, fmt.Sprintf("add %s, %d", sp, f.Size))
	case engine.ArchARM64:
		out = append(out, fmt.Sprintf("add %s, %s, #%d", sp, sp, f.Size))
	case engine.ArchRiscv64:
		out = append(out, fmt.Sprintf("addi %s, %s, %d", sp, sp, f.Size))
	case engine.ArchPPC64:
		out = append(out, fmt.Sprintf("addi %s, %s, %d", sp, sp, f.Size))
	}
	return out
}

func (t *Target) saveLine(s ra.SavedRegister, store bool) string {
	op := saveOp(t, s, store)
	addr := t.slot(s.Offset)
	if t.Platform.Arch == engine.ArchX86_64 {
		if store {
			return fmt.Sprintf("%s %s, %s", op, addr, s.Name)
		}
		return fmt.Sprintf("%s %s, %s", op, s.Name, addr)
	}
	return fmt.Sprintf("%s %s, %s", op, s.Name, addr)
}
