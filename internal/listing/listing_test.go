package listing

import (
	"context"
	"strings"
	"testing"

	"github.com/xyproto/regalloc/internal/ra"
	"github.com/xyproto/regalloc/internal/target"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const addListing = `# two arguments, one result
method add
  gpr a b c
  label entry {a:arg0, b:arg1}
  c = add a b
  ret c {c:ret}
end
`

func x86(t *testing.T) *target.Target {
	t.Helper()
	tg, err := target.Lookup("x86_64")
	assert.NilError(t, err)
	return tg
}

func parseOne(t *testing.T, src string, tg *target.Target) *ra.Method {
	t.Helper()
	methods, err := Parse("test.ra", src, tg)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(methods, 1))
	return methods[0]
}

func TestParseDeclarations(t *testing.T) {
	src := `method decl
  gpr lo hi
  fpr f/4 d
  vec x
  pred k
  pair p = lo hi
  lo, hi = split 42
  use p x f d k
end`
	m := parseOne(t, src, x86(t))
	assert.Equal(t, m.Name, "decl")
	assert.Equal(t, m.NumVirtuals(), 7)
	assert.Equal(t, m.Virtual(2).Width, 4)
	assert.Equal(t, m.Virtual(2).Kind, ra.KindFPR)
	assert.Equal(t, m.Virtual(4).Width, 16)
	assert.Equal(t, m.Virtual(5).Kind, ra.KindPredicate)
	p := m.Virtual(6)
	assert.Check(t, p.IsPair())
	assert.Equal(t, p.Low, ra.VirtID(0))
	assert.Equal(t, p.High, ra.VirtID(1))

	list := m.Instructions()
	ids := list.IDs()
	assert.Assert(t, is.Len(ids, 3))
	split := list.Get(ids[1])
	assert.Equal(t, split.Mnemonic, "split")
	assert.Equal(t, split.Label, "42")
	assert.Check(t, split.Operands[0].Def && split.Operands[1].Def)
	use := list.Get(ids[2])
	// the pair operand expands into its halves
	assert.Assert(t, is.Len(use.Operands, 6))
	assert.Equal(t, use.Operands[0].Pair, ra.VirtID(6))
	assert.Equal(t, use.Operands[1].Virt, ra.VirtID(1))
}

func TestParseNonZeroAndDeps(t *testing.T) {
	src := `method nz
  gpr a b
  a, b = def2
  st a! b {a:nonzero, b:any}
end`
	m := parseOne(t, src, x86(t))
	list := m.Instructions()
	st := list.Get(list.Tail())
	assert.Check(t, st.Operands[0].NonZero)
	assert.Check(t, !st.Operands[1].NonZero)
	assert.Assert(t, st.Deps != nil)
	assert.Equal(t, st.Deps.Deps[0].Kind, ra.DepNonZero)
	assert.Equal(t, st.Deps.Deps[1].Kind, ra.DepAny)
}

func TestParseRegions(t *testing.T) {
	src := `method guarded
  gpr a
  a = load @p
  ool slow a
  inc a
  merge slow
  ret a
  cold slow
  call @helper a
  endcold slow
end`
	m := parseOne(t, src, x86(t))
	assert.NilError(t, m.Validate())
	regions := m.Regions()
	assert.Assert(t, is.Len(regions, 1))
	r := regions[0]
	assert.Equal(t, r.Name, "slow")
	list := m.Instructions()
	assert.Equal(t, list.Get(r.Branch).Op, ra.OpRegionBranch)
	assert.Equal(t, list.Get(r.Merge).Op, ra.OpRegionMerge)
	assert.Equal(t, list.Get(r.Entry).Op, ra.OpColdEntry)
	assert.Equal(t, list.Get(r.Exit).Op, ra.OpColdExit)
	call := list.Prev(r.Exit)
	assert.Check(t, list.Get(call).Cold)
}

func TestParseUndeclaredSuggests(t *testing.T) {
	src := `method typo
  gpr count
  count = zero
  inc cuont
end`
	_, err := Parse("typo.ra", src, x86(t))
	assert.Assert(t, err != nil)
	perr, ok := err.(*ParseError)
	assert.Assert(t, ok)
	errs := perr.Collector.Errors()
	assert.Assert(t, is.Len(errs, 1))
	assert.Equal(t, errs[0].Location.Line, 4)
	assert.Equal(t, errs[0].Location.Column, 7)
	assert.Check(t, is.Contains(errs[0].Context.Suggestion, "count"))
	assert.Check(t, is.Contains(err.Error(), "typo.ra:4:7"))
}

func TestParseUnknownRealRegister(t *testing.T) {
	src := `method bad
  gpr a
  a = zero
  out a {a:rdx1}
end`
	_, err := Parse("bad.ra", src, x86(t))
	perr, ok := err.(*ParseError)
	assert.Assert(t, ok)
	d := perr.Collector.Errors()[0]
	assert.Check(t, is.Contains(d.Message, "rdx1"))
	assert.Equal(t, d.Context.Suggestion, "did you mean 'rdx'?")
}

func TestParseLoneEqualsReportsPosition(t *testing.T) {
	_, err := Parse("eq.ra", "method m\n  =\nend\n", x86(t))
	perr, ok := err.(*ParseError)
	assert.Assert(t, ok)
	d := perr.Collector.Errors()[0]
	assert.Equal(t, d.Location.Line, 2)
	assert.Equal(t, d.Location.Column, 3)
	assert.Check(t, is.Contains(d.Message, "missing definitions before '='"))
}

func TestParseRegisterRequiredTwice(t *testing.T) {
	src := `method clash
  gpr a b
  a = zero
  b = zero
  call {a:rdi, b:rdi}
end`
	_, err := Parse("clash.ra", src, x86(t))
	perr, ok := err.(*ParseError)
	assert.Assert(t, ok)
	errs := perr.Collector.Errors()
	assert.Assert(t, is.Len(errs, 1))
	assert.Equal(t, errs[0].Location.Line, 5)
	assert.Equal(t, errs[0].Location.Column, 18)
	assert.Check(t, is.Contains(errs[0].Message, "rdi is required by both a and b"))
}

func TestParseKindMismatch(t *testing.T) {
	src := `method mix
  fpr f
  f = zero
  out f {f:rax}
end`
	_, err := Parse("mix.ra", src, x86(t))
	assert.ErrorContains(t, err, "rax is a GPR register")
}

func TestParseStructureErrors(t *testing.T) {
	cases := map[string]string{
		"missing end":      "method m\n  gpr a\n",
		"outside method":   "gpr a\n",
		"unknown region":   "method m\n  merge nowhere\nend\n",
		"bad width":        "method m\n  fpr f/3\nend\n",
		"duplicate":        "method m\n  gpr a a\nend\n",
		"unterminated dep": "method m\n  gpr a\n  a = z {a:any\nend\n",
		"lone equals":      "method m\n  =\nend\n",
		"no mnemonic":      "method m\n  gpr a\n  a =\nend\n",
		"twice in group":   "method m\n  gpr a\n  a = z\n  out a {a:rdi, a:rsi}\nend\n",
	}
	for name, src := range cases {
		_, err := Parse(name, src, x86(t))
		assert.Check(t, err != nil, name)
	}
}

func TestPrintAllocatedMethod(t *testing.T) {
	tg := x86(t)
	m := parseOne(t, addListing, tg)
	res, err := ra.Allocate(m, tg.Config, ra.Options{})
	assert.NilError(t, err)

	want := `method add
entry: {a:rdi, b:rsi}
  rax = add rdi, rsi
  ret rax {c:rax}
end
`
	assert.Equal(t, NewPrinter(tg).Format(res), want)
}

func TestFingerprintIsStable(t *testing.T) {
	run := func(name string) string {
		tg, err := target.Lookup(name)
		assert.NilError(t, err)
		methods, err := Parse("add.ra", addListing, tg)
		assert.NilError(t, err)
		results, err := AllocateAll(context.Background(), methods, tg, ra.Options{}, 2)
		assert.NilError(t, err)
		return Fingerprint(Render(tg, results, true))
	}
	first := run("x86_64")
	assert.Equal(t, len(first), 64)
	assert.Equal(t, run("x86_64"), first)
	assert.Check(t, run("aarch64") != first)
}

func TestAllocateAllKeepsOrder(t *testing.T) {
	tg := x86(t)
	var src strings.Builder
	for _, name := range []string{"one", "two", "three", "four"} {
		src.WriteString(strings.Replace(addListing, "method add", "method "+name, 1))
	}
	methods, err := Parse("many.ra", src.String(), tg)
	assert.NilError(t, err)
	results, err := AllocateAll(context.Background(), methods, tg, ra.Options{}, 3)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(results, 4))
	for i, res := range results {
		assert.Equal(t, res.Method, methods[i])
	}
}

func TestAllocateAllReportsFailure(t *testing.T) {
	tg := x86(t)
	src := `method usebeforedef
  gpr a
  inc a
end`
	methods, err := Parse("ubd.ra", src, tg)
	assert.NilError(t, err)
	_, err = AllocateAll(context.Background(), methods, tg, ra.Options{}, 1)
	assert.ErrorContains(t, err, "used before any definition")
	ae, ok := ra.AsAssertion(err)
	assert.Assert(t, ok)
	assert.Equal(t, ae.Kind, ra.ProtocolViolation)
}
