package diagnostics

import "testing"

func TestBagHasErrorsOnlyOnErrorLevel(t *testing.T) {
	b := &Bag{}
	if b.HasErrors() {
		t.Fatal("empty bag reports errors")
	}
	b.Warnf("f", "just a warning")
	if b.HasErrors() {
		t.Fatal("a warning alone counted as an error")
	}
	b.Errorf("f", "something is wrong: %d", 42)
	if !b.HasErrors() {
		t.Fatal("bag with an Error-level diagnostic reports no errors")
	}
	if len(b.Items()) != 2 {
		t.Fatalf("Items() = %d entries, want 2", len(b.Items()))
	}
}

func TestRecoverConvertsFaultToDiagnostic(t *testing.T) {
	b := &Bag{}
	func() {
		defer Recover(b)
		Raise("myfunc", "bb0", "terminator missing")
	}()
	if !b.HasErrors() {
		t.Fatal("Recover did not record the Fault as an error diagnostic")
	}
	items := b.Items()
	if items[0].Function != "myfunc" || items[0].Block != "bb0" {
		t.Fatalf("diagnostic location = %+v, want myfunc/bb0", items[0])
	}
}

func TestRecoverRepanicsOnNonFault(t *testing.T) {
	b := &Bag{}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("Recover swallowed a non-Fault panic")
		}
	}()
	func() {
		defer Recover(b)
		panic("not a Fault")
	}()
}

func TestFaultErrorFormatsLocation(t *testing.T) {
	f := Fault{Function: "fn", Block: "bb2", Message: "bad thing"}
	got := f.Error()
	want := "internal invariant violated in fn/bb2: bad thing"
	if got != want {
		t.Fatalf("Fault.Error() = %q, want %q", got, want)
	}
}
