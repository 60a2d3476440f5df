// Package target describes the four ELF targets this compiler can
// produce code for and the capability flags the optimizer consults
// before enabling target-sensitive strength reductions.
package target

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sys/cpu"
)

// Arch names the four supported architectures.
type Arch string

const (
	X86_64  Arch = "x86_64"
	I686    Arch = "i686"
	AArch64 Arch = "aarch64"
	RISCV64 Arch = "riscv64"
)

// Capabilities are hardware/ABI facts the optimizer may consult. They are
// conservative by default (false) and only set true when known.
type Capabilities struct {
	HasHWDivide     bool // integer divide instruction exists
	HasWideMultiply bool // widening multiply (e.g. mul producing hi:lo)
	VectorBytes     int  // widest natural SIMD register in bytes, 0 if none known/used
}

// Descriptor is the target descriptor threaded through lowering and the
// optimizer: pointer width, endianness, ABI tag, and capability flags.
type Descriptor struct {
	Arch         Arch
	PointerWidth int // 32 or 64
	BigEndian    bool
	ABI          string
	Caps         Capabilities

	// ABIVersion gates which builtins are exposed as true intrinsics vs.
	// lowered to a real call; see internal/builtins.
	ABIVersion *semver.Version
}

var abiV1 = semver.MustParse("1.1.0")

// Describe returns the static descriptor for a known target triple name.
// Unknown names return an error rather than a zero descriptor, since a
// silently-wrong pointer width would corrupt every downstream layout
// decision.
func Describe(name Arch) (*Descriptor, error) {
	switch name {
	case X86_64:
		return &Descriptor{
			Arch: X86_64, PointerWidth: 64, ABI: "sysv-amd64",
			Caps:       Capabilities{HasHWDivide: true, HasWideMultiply: true},
			ABIVersion: abiV1,
		}, nil
	case I686:
		return &Descriptor{
			Arch: I686, PointerWidth: 32, ABI: "sysv-i386",
			Caps:       Capabilities{HasHWDivide: true, HasWideMultiply: true},
			ABIVersion: abiV1,
		}, nil
	case AArch64:
		return &Descriptor{
			Arch: AArch64, PointerWidth: 64, ABI: "aapcs64",
			Caps:       Capabilities{HasHWDivide: true, HasWideMultiply: true},
			ABIVersion: abiV1,
		}, nil
	case RISCV64:
		return &Descriptor{
			Arch: RISCV64, PointerWidth: 64, ABI: "lp64d",
			Caps:       Capabilities{HasHWDivide: true, HasWideMultiply: true},
			ABIVersion: abiV1,
		}, nil
	default:
		return nil, fmt.Errorf("target: unknown arch %q", name)
	}
}

// Host returns the descriptor for the machine coilc itself is running on,
// with capability flags probed from real hardware via golang.org/x/sys/cpu
// where supported (amd64, arm64). Cross-compiling targets always use the
// static Describe table instead: capability probing only makes sense when
// target == host.
func Host() (*Descriptor, error) {
	var arch Arch
	switch runtime.GOARCH {
	case "amd64":
		arch = X86_64
	case "386":
		arch = I686
	case "arm64":
		arch = AArch64
	case "riscv64":
		arch = RISCV64
	default:
		return nil, fmt.Errorf("target: unsupported host arch %q", runtime.GOARCH)
	}
	d, err := Describe(arch)
	if err != nil {
		return nil, err
	}
	switch runtime.GOARCH {
	case "amd64":
		d.Caps.HasHWDivide = true
		if cpu.X86.HasAVX2 {
			d.Caps.VectorBytes = 32
		} else if cpu.X86.HasSSE2 {
			d.Caps.VectorBytes = 16
		}
	case "arm64":
		d.Caps.HasHWDivide = true
		if cpu.ARM64.HasASIMD {
			d.Caps.VectorBytes = 16
		}
	}
	return d, nil
}

// SupportsBuiltinIntrinsic reports whether the target's ABI version meets
// the constraint required to expose name as a true compiler intrinsic
// (rather than lowering it to a real out-of-line call).
func (d *Descriptor) SupportsBuiltinIntrinsic(constraint *semver.Constraints) bool {
	if constraint == nil || d.ABIVersion == nil {
		return true
	}
	return constraint.Check(d.ABIVersion)
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (ptr%d, abi=%s, v%s)", d.Arch, d.PointerWidth, d.ABI, d.ABIVersion)
}
