// Completion: 100% - Indexed instruction list complete
package ra

// InstrID indexes the instruction arena of an InstrList
type InstrID int32

// NoInstr marks the end of the list
const NoInstr InstrID = -1

// Opcode classifies an instruction for the allocator
type Opcode uint8

const (
	OpInstr Opcode = iota
	OpLabel
	OpProc
	OpRegionBranch
	OpRegionMerge
	OpColdEntry
	OpColdExit
	OpStore
	OpLoad
	OpCopy
	OpExchange
	OpXor
)

func (o Opcode) String() string {
	switch o {
	case OpInstr:
		return "instr"
	case OpLabel:
		return "label"
	case OpProc:
		return "proc"
	case OpRegionBranch:
		return "ool"
	case OpRegionMerge:
		return "merge"
	case OpColdEntry:
		return "cold"
	case OpColdExit:
		return "endcold"
	case OpStore:
		return "store"
	case OpLoad:
		return "load"
	case OpCopy:
		return "copy"
	case OpExchange:
		return "exchange"
	case OpXor:
		return "xor"
	default:
		return "unknown"
	}
}

// Inserted reports whether the opcode is only ever produced by the allocator
func (o Opcode) Inserted() bool {
	return o >= OpStore
}

// Operand is a register reference of an instruction
type Operand struct {
	Virt    VirtID
	Real    RealID
	Def     bool
	NonZero bool   // may not be given the reserved zero register
	Pair    VirtID // the pair this half was expanded from
}

// Use returns a use operand of v
func Use(v VirtID) Operand {
	return Operand{Virt: v, Real: NoReal, Pair: NoVirt}
}

// Def returns a def operand of v
func Def(v VirtID) Operand {
	return Operand{Virt: v, Real: NoReal, Def: true, Pair: NoVirt}
}

// UseNonZero returns a use operand that must avoid the reserved zero register
func UseNonZero(v VirtID) Operand {
	op := Use(v)
	op.NonZero = true
	return op
}

// Instruction is one entry of the instruction list
type Instruction struct {
	ID       InstrID
	Op       Opcode
	Mnemonic string
	Label    string
	Operands []Operand
	Deps     *DependencyGroup
	Region   RegionID
	Cold     bool

	// Filled in for inserted instructions
	Kind Kind
	Slot SlotRef
	Size int
	Virt VirtID

	prev, next InstrID
}

// IsBoundary reports whether the forward scans stop at this instruction
func (in *Instruction) IsBoundary() bool {
	switch in.Op {
	case OpLabel, OpProc, OpRegionMerge, OpColdEntry, OpColdExit:
		return true
	}
	return false
}

// InstrList is a doubly linked list of instructions stored in a slice
type InstrList struct {
	instrs     []Instruction
	head, tail InstrID
	n          int
}

// NewInstrList creates an empty list
func NewInstrList() *InstrList {
	return &InstrList{head: NoInstr, tail: NoInstr}
}

// Len returns the number of linked instructions
func (l *InstrList) Len() int {
	return l.n
}

// Head returns the first instruction
func (l *InstrList) Head() InstrID {
	return l.head
}

// Tail returns the last instruction
func (l *InstrList) Tail() InstrID {
	return l.tail
}

// Get returns the instruction with the given id.
// The pointer is invalidated by the next insertion.
func (l *InstrList) Get(id InstrID) *Instruction {
	return &l.instrs[id]
}

// Next returns the instruction following id
func (l *InstrList) Next(id InstrID) InstrID {
	return l.instrs[id].next
}

// Prev returns the instruction preceding id
func (l *InstrList) Prev(id InstrID) InstrID {
	return l.instrs[id].prev
}

func (l *InstrList) alloc(in Instruction) InstrID {
	id := InstrID(len(l.instrs))
	in.ID = id
	in.prev, in.next = NoInstr, NoInstr
	l.instrs = append(l.instrs, in)
	l.n++
	return id
}

// Append adds in at the end of the list
func (l *InstrList) Append(in Instruction) InstrID {
	id := l.alloc(in)
	if l.tail == NoInstr {
		l.head, l.tail = id, id
		return id
	}
	l.instrs[id].prev = l.tail
	l.instrs[l.tail].next = id
	l.tail = id
	return id
}

// InsertBefore links in immediately before at
func (l *InstrList) InsertBefore(at InstrID, in Instruction) InstrID {
	id := l.alloc(in)
	prev := l.instrs[at].prev
	l.instrs[id].prev = prev
	l.instrs[id].next = at
	l.instrs[at].prev = id
	if prev == NoInstr {
		l.head = id
	} else {
		l.instrs[prev].next = id
	}
	return id
}

// IDs returns the linked instructions in list order
func (l *InstrList) IDs() []InstrID {
	ids := make([]InstrID, 0, l.n)
	for id := l.head; id != NoInstr; id = l.instrs[id].next {
		ids = append(ids, id)
	}
	return ids
}

// clone returns a deep copy of the list
func (l *InstrList) clone() InstrList {
	c := InstrList{head: l.head, tail: l.tail, n: l.n}
	c.instrs = make([]Instruction, len(l.instrs))
	copy(c.instrs, l.instrs)
	for i := range c.instrs {
		in := &c.instrs[i]
		if in.Operands != nil {
			in.Operands = append([]Operand(nil), in.Operands...)
		}
		if in.Deps != nil {
			in.Deps = in.Deps.Clone()
		}
	}
	return c
}

// references reports whether the instruction reads, writes or binds v
func (in *Instruction) references(v VirtID) bool {
	for _, op := range in.Operands {
		if op.Virt == v || op.Pair == v {
			return true
		}
	}
	if in.Deps != nil {
		for _, d := range in.Deps.Deps {
			if d.Virt == v {
				return true
			}
		}
	}
	return false
}
