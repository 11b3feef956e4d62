// Completion: 90% - Allocated listing printer complete
package listing

import (
	"fmt"
	"io"
	"strings"

	"github.com/xyproto/regalloc/internal/engine"
	"github.com/xyproto/regalloc/internal/ra"
	"github.com/xyproto/regalloc/internal/target"
)

// Printer renders allocated methods with real register names
type Printer struct {
	t *target.Target

	// Frame adds the prologue after the method header and the epilogue before end
	Frame bool
	// Deps appends dependency groups with the registers that satisfied them
	Deps bool
}

// NewPrinter creates a printer for the target
func NewPrinter(t *target.Target) *Printer {
	return &Printer{t: t, Deps: true}
}

// Format renders one allocated method
func (p *Printer) Format(res *ra.Result) string {
	var b strings.Builder
	p.write(&b, res)
	return b.String()
}

// Print writes one allocated method to w
func (p *Printer) Print(w io.Writer, res *ra.Result) error {
	_, err := io.WriteString(w, p.Format(res))
	return err
}

func (p *Printer) x86() bool {
	return p.t.Platform.Arch == engine.ArchX86_64
}

func (p *Printer) realName(r ra.RealID) string {
	return p.t.Config.RegisterName(r)
}

func (p *Printer) write(b *strings.Builder, res *ra.Result) {
	method := res.Method
	virtName := func(v ra.VirtID) string { return method.Virtual(v).String() }
	slots := res.Machine.Spills().Slots()
	list := method.Instructions()

	for _, id := range list.IDs() {
		in := list.Get(id)
		var line string
		switch in.Op {
		case ra.OpProc:
			fmt.Fprintf(b, "method %s\n", in.Label)
			if res.Frame.Size > 0 {
				fmt.Fprintf(b, "  ; frame %d bytes, spill area %d", res.Frame.Size, res.Frame.SpillArea)
				if names := res.Frame.SaveNames(); len(names) > 0 {
					fmt.Fprintf(b, ", saves %s", strings.Join(names, " "))
				}
				b.WriteString("\n")
			}
			if p.Frame {
				for _, s := range p.t.Prologue(res.Frame) {
					fmt.Fprintf(b, "  %s\n", s)
				}
			}
			continue
		case ra.OpLabel:
			line = in.Label + ":"
		case ra.OpRegionBranch:
			line = "  ool " + in.Label + p.operandTail(in.Operands, "")
		case ra.OpRegionMerge:
			line = "merge " + in.Label
		case ra.OpColdEntry:
			line = "cold " + in.Label
		case ra.OpColdExit:
			line = "  endcold " + in.Label
		case ra.OpInstr:
			line = "  " + p.instruction(in)
		case ra.OpStore:
			addr := p.t.SlotAddress(in.Slot, slots)
			reg := p.realName(in.Operands[0].Real)
			if p.x86() {
				line = fmt.Sprintf("  %s %s, %s", in.Mnemonic, addr, reg)
			} else {
				line = fmt.Sprintf("  %s %s, %s", in.Mnemonic, reg, addr)
			}
			line += "  ; spill " + virtName(in.Virt)
		case ra.OpLoad:
			line = fmt.Sprintf("  %s %s, %s  ; reload %s", in.Mnemonic, p.realName(in.Operands[0].Real), p.t.SlotAddress(in.Slot, slots), virtName(in.Virt))
		case ra.OpCopy, ra.OpExchange:
			line = fmt.Sprintf("  %s %s, %s  ; %s", in.Mnemonic, p.realName(in.Operands[0].Real), p.realName(in.Operands[1].Real), in.Op)
		case ra.OpXor:
			dst, src := p.realName(in.Operands[0].Real), p.realName(in.Operands[1].Real)
			if p.x86() {
				line = fmt.Sprintf("  %s %s, %s  ; exchange", in.Mnemonic, dst, src)
			} else {
				line = fmt.Sprintf("  %s %s, %s, %s  ; exchange", in.Mnemonic, dst, dst, src)
			}
		}
		if p.Deps && in.Deps != nil && in.Deps.Len() > 0 {
			line += " " + in.Deps.Format(virtName, p.realName)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if p.Frame {
		for _, s := range p.t.Epilogue(res.Frame) {
			fmt.Fprintf(b, "  %s\n", s)
		}
	}
	b.WriteString("end\n")
}

// operandTail renders uses and a literal after a mnemonic
func (p *Printer) operandTail(ops []ra.Operand, literal string) string {
	var parts []string
	for _, op := range ops {
		if !op.Def {
			parts = append(parts, p.realName(op.Real))
		}
	}
	if literal != "" {
		parts = append(parts, literal)
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, ", ")
}

func (p *Printer) instruction(in *ra.Instruction) string {
	var defs []string
	for _, op := range in.Operands {
		if op.Def {
			defs = append(defs, p.realName(op.Real))
		}
	}
	s := in.Mnemonic + p.operandTail(in.Operands, in.Label)
	if len(defs) > 0 {
		s = strings.Join(defs, ", ") + " = " + s
	}
	return s
}

// Render formats every result in order, separated by blank lines
func Render(t *target.Target, results []*ra.Result, frame bool) string {
	p := NewPrinter(t)
	p.Frame = frame
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		p.write(&b, res)
	}
	return b.String()
}
