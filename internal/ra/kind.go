// Completion: 100% - Register kinds and per-kind dispatch tables complete
package ra

import (
	"fmt"
	"strings"
)

// Kind is a register class
type Kind uint8

const (
	KindGPR Kind = iota
	KindFPR
	KindPredicate
	NumKinds
)

// kindInfo is the per-kind lookup entry
type kindInfo struct {
	name      string
	prefix    string
	spillSize int // 0 means the target's pointer size
}

var kindTable = [NumKinds]kindInfo{
	KindGPR:       {name: "GPR", prefix: "r", spillSize: 0},
	KindFPR:       {name: "FPR", prefix: "f", spillSize: 8},
	KindPredicate: {name: "CCR", prefix: "p", spillSize: 4},
}

func (k Kind) String() string {
	if k >= NumKinds {
		return "unknown"
	}
	return kindTable[k].name
}

// Prefix returns the short prefix used when printing unnamed virtuals
func (k Kind) Prefix() string {
	if k >= NumKinds {
		return "?"
	}
	return kindTable[k].prefix
}

// ParseKind parses a declaration keyword from a listing
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "gpr", "int":
		return KindGPR, nil
	case "fpr", "float", "vec", "vector":
		return KindFPR, nil
	case "pred", "ccr", "mask":
		return KindPredicate, nil
	default:
		return 0, fmt.Errorf("unknown register kind: %s (supported: gpr, fpr, vec, pred)", s)
	}
}

// ExchangeCap describes how a target swaps two registers of one kind
type ExchangeCap uint8

const (
	// ExchangeNone needs a spare register and three copies
	ExchangeNone ExchangeCap = iota
	// ExchangeXOR swaps with three xor instructions
	ExchangeXOR
	// ExchangeNative has a single exchange instruction
	ExchangeNative
)

func (c ExchangeCap) String() string {
	switch c {
	case ExchangeNative:
		return "native"
	case ExchangeXOR:
		return "xor"
	default:
		return "none"
	}
}

// KindOps holds the mnemonics the allocator uses when it inserts code
type KindOps struct {
	Store    string
	Load     string
	Copy     string
	Exchange string
	Xor      string
}

// spillSizeFor returns the backing store size for a value of the given kind and width
func spillSizeFor(kind Kind, width, pointerSize int) int {
	switch kind {
	case KindGPR:
		if width > pointerSize {
			return width
		}
		return pointerSize
	case KindFPR:
		switch {
		case width <= 0:
			return kindTable[kind].spillSize
		case width <= 4:
			return 4
		case width <= 8:
			return 8
		default:
			return 16
		}
	default:
		return kindTable[kind].spillSize
	}
}
