package target

import (
	"runtime"
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestDescribeKnownArchs(t *testing.T) {
	cases := []struct {
		arch      Arch
		wantWidth int
		wantABI   string
	}{
		{X86_64, 64, "sysv-amd64"},
		{I686, 32, "sysv-i386"},
		{AArch64, 64, "aapcs64"},
		{RISCV64, 64, "lp64d"},
	}
	for _, c := range cases {
		d, err := Describe(c.arch)
		if err != nil {
			t.Fatalf("Describe(%s) returned error: %v", c.arch, err)
		}
		if d.PointerWidth != c.wantWidth {
			t.Errorf("%s: PointerWidth = %d, want %d", c.arch, d.PointerWidth, c.wantWidth)
		}
		if d.ABI != c.wantABI {
			t.Errorf("%s: ABI = %q, want %q", c.arch, d.ABI, c.wantABI)
		}
		if !d.Caps.HasHWDivide {
			t.Errorf("%s: expected HasHWDivide", c.arch)
		}
	}
}

func TestDescribeUnknownArch(t *testing.T) {
	if _, err := Describe(Arch("mips")); err == nil {
		t.Fatal("Describe accepted an unknown arch without error")
	}
}

func TestHostMatchesRuntimeGOARCH(t *testing.T) {
	d, err := Host()
	switch runtime.GOARCH {
	case "amd64", "386", "arm64", "riscv64":
		if err != nil {
			t.Fatalf("Host() returned error on a supported arch: %v", err)
		}
		if string(d.Arch) == "" {
			t.Fatal("Host() returned an empty Arch")
		}
	default:
		if err == nil {
			t.Fatal("Host() should fail on an unsupported GOARCH")
		}
	}
}

func TestSupportsBuiltinIntrinsicNilConstraintAlwaysTrue(t *testing.T) {
	d := &Descriptor{ABIVersion: semver.MustParse("1.0.0")}
	if !d.SupportsBuiltinIntrinsic(nil) {
		t.Fatal("a nil constraint should always be satisfied")
	}
}

func TestSupportsBuiltinIntrinsicVersionGate(t *testing.T) {
	c, err := semver.NewConstraint(">=1.1.0")
	if err != nil {
		t.Fatal(err)
	}
	below := &Descriptor{ABIVersion: semver.MustParse("1.0.0")}
	if below.SupportsBuiltinIntrinsic(c) {
		t.Fatal("ABI 1.0.0 satisfied a >=1.1.0 constraint")
	}
	at := &Descriptor{ABIVersion: semver.MustParse("1.1.0")}
	if !at.SupportsBuiltinIntrinsic(c) {
		t.Fatal("ABI 1.1.0 failed to satisfy a >=1.1.0 constraint")
	}
}

func TestDescriptorStringIncludesArchAndABI(t *testing.T) {
	d, err := Describe(X86_64)
	if err != nil {
		t.Fatal(err)
	}
	s := d.String()
	if s == "" {
		t.Fatal("String() returned empty")
	}
}
