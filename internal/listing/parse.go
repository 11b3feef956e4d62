// Completion: 95% - Listing parser complete
package listing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xyproto/regalloc/internal/engine"
	"github.com/xyproto/regalloc/internal/ra"
	"github.com/xyproto/regalloc/internal/target"
)

// token is a word of a listing line with its 1-based column
type token struct {
	text string
	col  int
}

func fields(s string, base int) []token {
	var toks []token
	start := -1
	for i, ch := range s {
		sep := ch == ' ' || ch == '\t' || ch == ',' || ch == '\r'
		if sep && start >= 0 {
			toks = append(toks, token{s[start:i], base + start + 1})
			start = -1
		} else if !sep && start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{s[start:], base + start + 1})
	}
	return toks
}

type parser struct {
	file    string
	t       *target.Target
	ec      *ErrorCollector
	methods []*ra.Method

	m       *ra.Method
	names   map[string]ra.VirtID
	regions map[string]ra.RegionID
	line    int
}

// Parse reads every method of a listing. Register names in dependency groups
// are resolved against t.
func Parse(file, src string, t *target.Target) ([]*ra.Method, error) {
	ec := NewErrorCollector(0)
	ec.SetSourceCode(src)
	p := &parser{file: file, t: t, ec: ec}
	for i, raw := range strings.Split(src, "\n") {
		p.line = i + 1
		p.parseLine(raw)
		if ec.ShouldStop() {
			break
		}
	}
	if p.m != nil && !ec.ShouldStop() {
		p.errorf(token{col: 1}, "method %s is missing its end", p.m.Name)
	}
	return p.methods, ec.Err()
}

func (p *parser) loc(tok token) Location {
	return Location{File: p.file, Line: p.line, Column: tok.col, Length: len(tok.text)}
}

func (p *parser) errorf(tok token, format string, args ...interface{}) {
	p.ec.Add(SyntaxError(fmt.Sprintf(format, args...), p.loc(tok)))
}

func (p *parser) parseLine(raw string) {
	line := raw
	if i := strings.IndexAny(line, "#;"); i >= 0 {
		line = line[:i]
	}

	var deps *token
	if i := strings.IndexByte(line, '{'); i >= 0 {
		j := strings.IndexByte(line[i:], '}')
		if j < 0 {
			p.errorf(token{"{", i + 1}, "unterminated dependency group")
			return
		}
		if rest := strings.TrimSpace(line[i+j+1:]); rest != "" {
			p.errorf(token{rest, i + j + 2}, "unexpected %q after dependency group", rest)
			return
		}
		deps = &token{line[i+1 : i+j], i + 2}
		line = line[:i]
	}

	toks := fields(line, 0)
	if len(toks) == 0 {
		if deps != nil {
			p.errorf(*deps, "dependency group without an instruction")
		}
		return
	}

	kw := toks[0]
	switch kw.text {
	case "method":
		if p.m != nil {
			p.errorf(kw, "method %s is missing its end", p.m.Name)
			return
		}
		if len(toks) != 2 {
			p.errorf(kw, "expected: method <name>")
			return
		}
		p.m = ra.NewMethod(toks[1].text)
		p.names = make(map[string]ra.VirtID)
		p.regions = make(map[string]ra.RegionID)
		return
	case "end":
		if p.m == nil {
			p.errorf(kw, "end outside of a method")
			return
		}
		p.methods = append(p.methods, p.m)
		p.m = nil
		return
	}
	if p.m == nil {
		p.errorf(kw, "%s outside of a method", kw.text)
		return
	}

	switch kw.text {
	case "gpr", "fpr", "vec", "pred":
		p.declare(kw, toks[1:])
	case "pair":
		p.pair(kw, toks)
	case "label":
		if len(toks) != 2 {
			p.errorf(kw, "expected: label <name>")
			return
		}
		if deps != nil {
			p.m.LabelDeps(toks[1].text, p.group(*deps))
			return
		}
		p.m.Label(toks[1].text)
	case "ool", "merge", "cold", "endcold":
		p.region(kw, toks[1:])
	default:
		p.instruction(toks, deps)
	}
}

func (p *parser) declare(kw token, names []token) {
	if len(names) == 0 {
		p.errorf(kw, "%s declares nothing", kw.text)
		return
	}
	kind, _ := ra.ParseKind(kw.text)
	for _, tok := range names {
		name, width := tok.text, 0
		if kw.text == "vec" {
			width = 16
		}
		if i := strings.IndexByte(name, '/'); i >= 0 {
			w, err := strconv.Atoi(name[i+1:])
			if err != nil || (w != 4 && w != 8 && w != 16) {
				p.errorf(tok, "width must be 4, 8 or 16 bytes")
				continue
			}
			name, width = name[:i], w
		}
		if _, dup := p.names[name]; dup {
			p.ec.Add(Diagnostic{Level: LevelError, Category: CategorySemantic, Message: fmt.Sprintf("'%s' declared twice", name), Location: p.loc(tok)})
			continue
		}
		p.names[name] = p.m.NewVirtualWidth(kind, name, width)
	}
}

func (p *parser) pair(kw token, toks []token) {
	if len(toks) != 5 || toks[2].text != "=" {
		p.errorf(kw, "expected: pair <name> = <low> <high>")
		return
	}
	lo, ok1 := p.virtual(toks[3])
	hi, ok2 := p.virtual(toks[4])
	if !ok1 || !ok2 {
		return
	}
	id, err := p.m.NewPair(toks[1].text, lo, hi)
	if err != nil {
		p.errorf(toks[1], "%v", err)
		return
	}
	p.names[toks[1].text] = id
}

func (p *parser) virtual(tok token) (ra.VirtID, bool) {
	if v, ok := p.names[tok.text]; ok {
		return v, true
	}
	known := make([]string, 0, len(p.names))
	for n := range p.names {
		known = append(known, n)
	}
	p.ec.Add(UndeclaredRegisterError(tok.text, p.loc(tok), engine.FindSimilar(tok.text, known, 1)))
	return ra.NoVirt, false
}

func isLiteral(s string) bool {
	if s == "" {
		return false
	}
	switch ch := s[0]; {
	case ch == '@' || ch == '$' || ch == '[' || ch == '-' || ch == '.':
		return true
	case ch >= '0' && ch <= '9':
		return true
	}
	return false
}

func (p *parser) operands(toks []token, def bool) ([]ra.Operand, []string, bool) {
	var ops []ra.Operand
	var literals []string
	ok := true
	for _, tok := range toks {
		if !def && isLiteral(tok.text) {
			literals = append(literals, tok.text)
			continue
		}
		nonZero := strings.HasSuffix(tok.text, "!")
		name := token{strings.TrimSuffix(tok.text, "!"), tok.col}
		v, found := p.virtual(name)
		if !found {
			ok = false
			continue
		}
		op := ra.Use(v)
		if def {
			op = ra.Def(v)
		}
		op.NonZero = nonZero
		ops = append(ops, op)
	}
	return ops, literals, ok
}

func (p *parser) instruction(toks []token, deps *token) {
	var defs []token
	for i, tok := range toks {
		if tok.text != "=" {
			continue
		}
		if i == 0 {
			p.errorf(tok, "missing definitions before '='")
			return
		}
		if i == len(toks)-1 {
			p.errorf(tok, "missing mnemonic after '='")
			return
		}
		defs, toks = toks[:i], toks[i+1:]
		break
	}
	mnemonic := toks[0]
	if isLiteral(mnemonic.text) {
		p.errorf(mnemonic, "expected a mnemonic, got %q", mnemonic.text)
		return
	}
	defOps, _, ok1 := p.operands(defs, true)
	useOps, literals, ok2 := p.operands(toks[1:], false)
	var g *ra.DependencyGroup
	if deps != nil {
		g = p.group(*deps)
	}
	if !ok1 || !ok2 {
		return
	}
	ops := append(defOps, useOps...)
	var id ra.InstrID
	if g != nil {
		id = p.m.EmitDeps(mnemonic.text, g, ops...)
	} else {
		id = p.m.Emit(mnemonic.text, ops...)
	}
	if len(literals) > 0 {
		p.m.Instructions().Get(id).Label = strings.Join(literals, " ")
	}
}

// group parses "v1:rdi, v2:any, v3:nonzero, v4:arg0, v5:ret"
func (p *parser) group(tok token) *ra.DependencyGroup {
	g := ra.NewDependencyGroup()
	seen := make(map[ra.VirtID]bool)
	bound := make(map[ra.RealID]string)
	for _, part := range fields(tok.text, tok.col-1) {
		name, spec, found := strings.Cut(part.text, ":")
		if !found {
			p.errorf(part, "expected <virtual>:<register>")
			continue
		}
		v, ok := p.virtual(token{name, part.col})
		if !ok {
			continue
		}
		if seen[v] {
			p.errorf(part, "%s appears twice in one dependency group", name)
			continue
		}
		seen[v] = true
		specTok := token{spec, part.col + len(name) + 1}
		fixed := func(r ra.RealID) {
			if other, dup := bound[r]; dup {
				p.errorf(specTok, "%s is required by both %s and %s", p.t.Config.RegisterName(r), other, name)
				return
			}
			bound[r] = name
			g.Add(v, r)
		}
		kind := p.m.Virtual(v).Kind
		switch {
		case spec == "any":
			g.AddAny(v)
		case spec == "nonzero":
			g.AddNonZero(v)
		case spec == "ret":
			r, ok := p.t.ReturnRegister(kind)
			if !ok {
				p.errorf(specTok, "%s has no %s return register", p.t.Name, kind)
				continue
			}
			fixed(r)
		case strings.HasPrefix(spec, "arg"):
			i, err := strconv.Atoi(spec[3:])
			r, ok := p.t.ArgRegister(kind, i)
			if err != nil || !ok {
				p.errorf(specTok, "%s has no %s argument register %q", p.t.Name, kind, spec)
				continue
			}
			fixed(r)
		default:
			r, rkind, ok := p.t.Config.LookupRegister(spec)
			if !ok {
				p.ec.Add(UnknownRealError(spec, p.t.Name, p.loc(specTok), engine.FindSimilar(spec, p.registerNames(kind), 1)))
				continue
			}
			if rkind != kind {
				p.errorf(specTok, "%s is a %s register but %s is %s", spec, rkind, name, kind)
				continue
			}
			fixed(r)
		}
	}
	return g
}

func (p *parser) registerNames(kind ra.Kind) []string {
	var names []string
	for _, r := range p.t.Config.Kinds[kind].Registers {
		names = append(names, r.Name)
	}
	return names
}

func (p *parser) region(kw token, args []token) {
	if len(args) == 0 {
		p.errorf(kw, "expected: %s <region>", kw.text)
		return
	}
	name := args[0]
	if kw.text == "ool" {
		if _, dup := p.regions[name.text]; dup {
			p.errorf(name, "region %s declared twice", name.text)
			return
		}
		ops, _, ok := p.operands(args[1:], false)
		if !ok {
			return
		}
		id, err := p.m.BeginRegion(name.text, ops...)
		if err != nil {
			p.errorf(kw, "%v", err)
			return
		}
		p.regions[name.text] = id
		return
	}
	if len(args) != 1 {
		p.errorf(args[1], "unexpected operand of %s", kw.text)
		return
	}
	id, ok := p.regions[name.text]
	if !ok {
		p.errorf(name, "unknown region %s", name.text)
		return
	}
	var err error
	switch kw.text {
	case "merge":
		err = p.m.MergeRegion(id)
	case "cold":
		err = p.m.BeginCold(id)
	case "endcold":
		err = p.m.EndCold(id)
	}
	if err != nil {
		p.errorf(kw, "%v", err)
	}
}
