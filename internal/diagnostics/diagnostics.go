// Package diagnostics is the sink lowering and the core's invariant
// checks report through. It distinguishes the three error classes the
// middle end must tell apart: recoverable per-function frontend errors,
// fatal internal invariant violations, and progress-limiting warnings
// that still leave the pipeline's output correct.
package diagnostics

import "fmt"

type Level int

const (
	Error Level = iota
	Warning
	Info
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic is one reported condition, optionally scoped to a function
// and block for internal-invariant reports.
type Diagnostic struct {
	Level    Level
	Message  string
	Function string
	Block    string
}

func (d Diagnostic) String() string {
	loc := ""
	if d.Function != "" {
		loc = " in " + d.Function
		if d.Block != "" {
			loc += "/" + d.Block
		}
	}
	return fmt.Sprintf("%s%s: %s", d.Level, loc, d.Message)
}

// Bag collects diagnostics across an entire module lowering/optimization
// run. Unlike a single returned error, a Bag lets "skip this function,
// continue the module" (spec class 1) coexist with a later fatal check.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) { b.items = append(b.items, d) }

func (b *Bag) Errorf(fn, format string, args ...interface{}) {
	b.Add(Diagnostic{Level: Error, Function: fn, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) Warnf(fn, format string, args ...interface{}) {
	b.Add(Diagnostic{Level: Warning, Function: fn, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Level == Error {
			return true
		}
	}
	return false
}

func (b *Bag) Items() []Diagnostic { return b.items }

// Fault is the panic value used for class-2 internal invariant violations:
// a terminator missing at block close, a phi operand of the
// wrong type, an unreachable block surviving to emission. These are bugs
// by construction and are never silently recovered; callers at the
// per-function boundary may recover a Fault to downgrade it to a
// diagnostic plus non-zero exit, matching the "finish current function,
// then check for fatal diagnostic" abort granularity.
type Fault struct {
	Function string
	Block    string
	Message  string
}

func (f Fault) Error() string {
	loc := f.Function
	if f.Block != "" {
		loc += "/" + f.Block
	}
	return fmt.Sprintf("internal invariant violated in %s: %s", loc, f.Message)
}

// Raise panics with a Fault. Callers pass the function/block currently
// being processed so the panic carries precise location context.
func Raise(function, block, format string, args ...interface{}) {
	panic(Fault{Function: function, Block: block, Message: fmt.Sprintf(format, args...)})
}

// Recover should be deferred at the top of per-function processing. It
// converts a Fault panic into a diagnostic appended to bag and swallows
// it; any other panic is re-raised, since only Fault represents a known,
// intentionally-fatal invariant violation.
func Recover(bag *Bag) {
	if r := recover(); r != nil {
		if f, ok := r.(Fault); ok {
			bag.Add(Diagnostic{Level: Error, Function: f.Function, Block: f.Block, Message: f.Message})
			return
		}
		panic(r)
	}
}
