// Package builtins is the predefined registry of __builtin_* and
// __atomic_* names lowering consults before emitting a normal call.
package builtins

import (
	"github.com/Masterminds/semver/v3"

	"github.com/coilc/coilc/internal/ir"
	"github.com/coilc/coilc/internal/target"
)

// Builtin describes one entry: its C-level signature shape (arity only —
// the frontend stub already resolved argument types) and how lowering
// should turn a call into IR.
type Builtin struct {
	Name string
	// MinABI gates whether this builtin lowers to a true IR intrinsic
	// call (OpCallIntrinsic, kept opaque to the optimizer's purity
	// analysis except where explicitly marked pure below) or falls back
	// to a real out-of-line call against a runtime-provided symbol, for
	// targets whose ABI predates the intrinsic.
	MinABI *semver.Constraints
	// FallbackSymbol is the real function called when the target's ABI
	// version does not satisfy MinABI.
	FallbackSymbol string
	// Pure marks intrinsics with no observable side effect other than
	// producing their result, making them GVN/DCE-eligible exactly like
	// any other pure instruction.
	Pure bool
}

var registry = map[string]*Builtin{}

func register(b *Builtin) { registry[b.Name] = b }

func init() {
	always := mustConstraint(">=0.0.0")
	atomicsSince := mustConstraint(">=1.1.0")

	register(&Builtin{Name: "__builtin_memcpy", MinABI: always, FallbackSymbol: "memcpy", Pure: false})
	register(&Builtin{Name: "__builtin_bswap16", MinABI: always, FallbackSymbol: "__coilc_bswap16", Pure: true})
	register(&Builtin{Name: "__builtin_bswap32", MinABI: always, FallbackSymbol: "__coilc_bswap32", Pure: true})
	register(&Builtin{Name: "__builtin_bswap64", MinABI: always, FallbackSymbol: "__coilc_bswap64", Pure: true})
	register(&Builtin{Name: "__builtin_clz", MinABI: always, FallbackSymbol: "__coilc_clz", Pure: true})
	register(&Builtin{Name: "__builtin_clzl", MinABI: always, FallbackSymbol: "__coilc_clzl", Pure: true})
	register(&Builtin{Name: "__builtin_ctz", MinABI: always, FallbackSymbol: "__coilc_ctz", Pure: true})
	register(&Builtin{Name: "__builtin_ctzl", MinABI: always, FallbackSymbol: "__coilc_ctzl", Pure: true})
	register(&Builtin{Name: "__builtin_popcount", MinABI: always, FallbackSymbol: "__coilc_popcount", Pure: true})
	register(&Builtin{Name: "__builtin_popcountl", MinABI: always, FallbackSymbol: "__coilc_popcountl", Pure: true})
	register(&Builtin{Name: "__builtin_parity", MinABI: always, FallbackSymbol: "__coilc_parity", Pure: true})
	register(&Builtin{Name: "__builtin_expect", MinABI: always, FallbackSymbol: "", Pure: true})
	register(&Builtin{Name: "__builtin_unreachable", MinABI: always, FallbackSymbol: "", Pure: false})
	register(&Builtin{Name: "__builtin_prefetch", MinABI: always, FallbackSymbol: "", Pure: false})
	register(&Builtin{Name: "__builtin_va_start", MinABI: always, FallbackSymbol: "", Pure: false})
	register(&Builtin{Name: "__builtin_va_arg", MinABI: always, FallbackSymbol: "", Pure: false})
	register(&Builtin{Name: "__builtin_va_copy", MinABI: always, FallbackSymbol: "", Pure: false})
	register(&Builtin{Name: "__builtin_va_end", MinABI: always, FallbackSymbol: "", Pure: false})

	// __atomic_* family requires ABI 1.1.0+: earlier target descriptors
	// fall back to a real libc-style call so old targets still link
	// (spec's builtin table gates intrinsic exposure by target version).
	for _, name := range []string{
		"__atomic_load_n", "__atomic_store_n", "__atomic_exchange_n",
		"__atomic_compare_exchange_n", "__atomic_fetch_add", "__atomic_fetch_sub",
	} {
		register(&Builtin{Name: name, MinABI: atomicsSince, FallbackSymbol: "__coilc_atomic_" + name, Pure: false})
	}
}

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the builtin entry for name, or (nil, false) for an
// ordinary function call.
func Lookup(name string) (*Builtin, bool) {
	b, ok := registry[name]
	return b, ok
}

// ResolveCallee decides, for the given target, whether a call to b should
// lower as an IR intrinsic (returns the intrinsic name, ok=true) or as a
// real call against the fallback symbol (ok=false).
func (b *Builtin) ResolveCallee(d *target.Descriptor) (string, bool) {
	if d.SupportsBuiltinIntrinsic(b.MinABI) {
		return b.Name, true
	}
	return b.FallbackSymbol, false
}

// EmitCall lowers a resolved builtin call at the IR level: either an
// OpCallIntrinsic (fast path) or an OpCallDirect against the fallback
// symbol, matching the boundary contract's "lowering consults this table
// before emitting a normal call."
func (b *Builtin) EmitCall(bd *ir.Builder, d *target.Descriptor, t ir.Type, sig ir.Signature, args []ir.Value) ir.Value {
	name, isIntrinsic := b.ResolveCallee(d)
	if isIntrinsic {
		return bd.CallIntrinsicPure(t, name, args, b.Pure)
	}
	return bd.CallDirect(t, name, sig, args)
}
