package ir

import (
	"fmt"
	"strings"
)

// Linkage mirrors the linkage a global variable carries.
type Linkage uint8

const (
	LinkageExternal Linkage = iota
	LinkageInternal         // static storage duration, file scope
	LinkageWeak
)

// Global is a module-level variable: linkage, alignment, initializer
// bytes (with relocations for symbol references), and a type.
type Global struct {
	Name    string
	Type    Type
	Size    int64
	Align   int64
	Linkage Linkage
	// Init holds the byte-level initializer; nil means zero-initialized
	// (.bss). Relocs names the symbols referenced at given byte offsets
	// within Init (e.g. a pointer field initialized to another global's
	// address).
	Init   []byte
	Relocs []Reloc

	AddressTaken bool // keeps an internal global alive in dead_statics; false unless the producer sets it
}

// Reloc is one relocation entry inside a global initializer's byte image.
type Reloc struct {
	Offset int64
	Symbol string
	Addend int64
}

// ExternFunc is an external function declaration: name + signature, no
// body. Kept distinct from Function-with-no-blocks so the module's public
// surface is easy to enumerate for dead_statics' root set.
type ExternFunc struct {
	Name string
	Sig  Signature
}

// StringPool is a content-addressed string-literal pool; equal byte
// sequences share one symbol.
type StringPool struct {
	bySym  map[string]string // content -> symbol name
	order  []string          // symbol names, insertion order
	values map[string][]byte // symbol name -> bytes
	next   int
}

func NewStringPool() *StringPool {
	return &StringPool{bySym: map[string]string{}, values: map[string][]byte{}}
}

// Intern returns the symbol name for the given byte content, creating a
// fresh symbol on first use.
func (p *StringPool) Intern(content []byte) string {
	key := string(content)
	if sym, ok := p.bySym[key]; ok {
		return sym
	}
	sym := fmt.Sprintf(".L.str.%d", p.next)
	p.next++
	p.bySym[key] = sym
	p.values[sym] = content
	p.order = append(p.order, sym)
	return sym
}

func (p *StringPool) Entries() []string { return p.order }
func (p *StringPool) Bytes(sym string) []byte { return p.values[sym] }

// TargetInfo is the subset of the target descriptor (see internal/target)
// the IR module itself needs to carry: pointer width, endianness, and an
// ABI tag. The full capability-flag descriptor lives in internal/target
// and is threaded through passes separately to avoid an import cycle
// between ir and target (target descriptors describe IR lowering choices,
// not vice versa).
type TargetInfo struct {
	PointerWidth int // 32 or 64
	BigEndian    bool
	ABI          string
}

// Module is a unit of compilation: functions, globals, a string pool,
// external declarations, and a target descriptor.
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*Global
	Externs   []*ExternFunc
	Strings   *StringPool
	Target    TargetInfo
}

func NewModule(name string, target TargetInfo) *Module {
	return &Module{Name: name, Strings: NewStringPool(), Target: target}
}

func (m *Module) AddFunction(f *Function) { m.Functions = append(m.Functions, f) }
func (m *Module) AddGlobal(g *Global)     { m.Globals = append(m.Globals, g) }
func (m *Module) AddExtern(e *ExternFunc) { m.Externs = append(m.Externs, e) }

// FindFunction returns the function named name, or nil.
func (m *Module) FindFunction(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// RemoveFunction deletes the named function, used by dead_statics.
func (m *Module) RemoveFunction(name string) {
	for i, f := range m.Functions {
		if f.Name == name {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			return
		}
	}
}

// RemoveGlobal deletes the named global, used by dead_statics.
func (m *Module) RemoveGlobal(name string) {
	for i, g := range m.Globals {
		if g.Name == name {
			m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
			return
		}
	}
}

func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s (ptr%d)\n", m.Name, m.Target.PointerWidth)
	for _, g := range m.Globals {
		fmt.Fprintf(&b, "global %s %s size=%d align=%d\n", g.Name, g.Type, g.Size, g.Align)
	}
	for _, e := range m.Externs {
		fmt.Fprintf(&b, "declare %s %s%s\n", e.Sig.Ret, e.Name, paramsString(e.Sig.Params, e.Sig.Variadic))
	}
	for _, f := range m.Functions {
		b.WriteString(f.String())
		b.WriteByte('\n')
	}
	return b.String()
}
