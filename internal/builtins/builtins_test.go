package builtins

import (
	"testing"

	"github.com/Masterminds/semver/v3"

	"github.com/coilc/coilc/internal/target"
)

func TestLookupKnownAndUnknown(t *testing.T) {
	if _, ok := Lookup("__builtin_clz"); !ok {
		t.Fatal("__builtin_clz should be registered")
	}
	if _, ok := Lookup("not_a_builtin"); ok {
		t.Fatal("an ordinary function name resolved as a builtin")
	}
}

func TestResolveCalleeIntrinsicAlwaysAvailable(t *testing.T) {
	b, ok := Lookup("__builtin_popcount")
	if !ok {
		t.Fatal("missing __builtin_popcount")
	}
	x86, err := target.Describe(target.X86_64)
	if err != nil {
		t.Fatal(err)
	}
	name, isIntrinsic := b.ResolveCallee(x86)
	if !isIntrinsic || name != "__builtin_popcount" {
		t.Fatalf("ResolveCallee = (%q, %v), want (__builtin_popcount, true)", name, isIntrinsic)
	}
}

func TestResolveCalleeAtomicFallsBackBelowMinABI(t *testing.T) {
	b, ok := Lookup("__atomic_fetch_add")
	if !ok {
		t.Fatal("missing __atomic_fetch_add")
	}
	d := &target.Descriptor{Arch: target.X86_64, PointerWidth: 64}
	d.ABIVersion = semver.MustParse("1.0.0")
	name, isIntrinsic := b.ResolveCallee(d)
	if isIntrinsic {
		t.Fatalf("ResolveCallee reported an intrinsic for an ABI below MinABI: %q", name)
	}
	if name != b.FallbackSymbol {
		t.Fatalf("ResolveCallee fallback = %q, want %q", name, b.FallbackSymbol)
	}
}

func TestResolveCalleeAtomicIntrinsicAtMinABI(t *testing.T) {
	b, ok := Lookup("__atomic_load_n")
	if !ok {
		t.Fatal("missing __atomic_load_n")
	}
	x86, err := target.Describe(target.X86_64)
	if err != nil {
		t.Fatal(err)
	}
	name, isIntrinsic := b.ResolveCallee(x86)
	if !isIntrinsic || name != "__atomic_load_n" {
		t.Fatalf("ResolveCallee at ABI 1.1.0 = (%q, %v), want an intrinsic", name, isIntrinsic)
	}
}
