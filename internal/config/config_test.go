package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coilc/coilc/internal/ir/opt"
	"github.com/coilc/coilc/internal/target"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    opt.Level
		wantErr bool
	}{
		{"0", opt.O0, false},
		{"O0", opt.O0, false},
		{"1", opt.O1, false},
		{"2", opt.O2, false},
		{"", opt.O2, false},
		{"3", opt.O3, false},
		{"O3", opt.O3, false},
		{"4", 0, true},
		{"garbage", 0, true},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q): expected an error, got level %v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLoadProjectFileRejectsTOML(t *testing.T) {
	c := Default()
	if err := LoadProjectFile(c, "project.toml"); err == nil {
		t.Fatal("expected an error loading a .toml project file, got nil")
	}
}

func TestLoadProjectFileMissingIsNoop(t *testing.T) {
	c := Default()
	before := *c
	if err := LoadProjectFile(c, filepath.Join(t.TempDir(), "does-not-exist.json")); err != nil {
		t.Fatalf("missing project file should be a no-op, got: %v", err)
	}
	if c.Arch != before.Arch || c.Level != before.Level || c.Watch != before.Watch ||
		c.OutDir != before.OutDir || c.EmitStub != before.EmitStub {
		t.Fatalf("missing project file mutated the config: %+v vs %+v", *c, before)
	}
}

func TestLoadProjectFileMergesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coilc.json")
	body := `{"arch":"aarch64","opt":"3","watch":true,"out_dir":"build","emit_stub":true}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c := Default()
	if err := LoadProjectFile(c, path); err != nil {
		t.Fatalf("LoadProjectFile: %v", err)
	}
	if c.Arch != target.AArch64 {
		t.Errorf("Arch = %q, want %q", c.Arch, target.AArch64)
	}
	if c.Level != opt.O3 {
		t.Errorf("Level = %v, want O3", c.Level)
	}
	if !c.Watch {
		t.Error("Watch = false, want true")
	}
	if c.OutDir != "build" {
		t.Errorf("OutDir = %q, want build", c.OutDir)
	}
	if !c.EmitStub {
		t.Error("EmitStub = false, want true")
	}
}

func TestLoadProjectFileRejectsBadOptLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coilc.json")
	if err := os.WriteFile(path, []byte(`{"opt":"9"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c := Default()
	if err := LoadProjectFile(c, path); err == nil {
		t.Fatal("expected an error for an invalid opt level in the project file")
	}
}

func TestResolveArchExplicit(t *testing.T) {
	c := Default()
	c.Arch = target.RISCV64
	d, err := c.ResolveArch()
	if err != nil {
		t.Fatal(err)
	}
	if d.Arch != target.RISCV64 {
		t.Errorf("ResolveArch() = %v, want riscv64", d.Arch)
	}
}

func TestResolveArchUnknown(t *testing.T) {
	c := Default()
	c.Arch = "made-up-arch"
	if _, err := c.ResolveArch(); err == nil {
		t.Fatal("expected an error for an unknown architecture")
	}
}

func TestOutputPath(t *testing.T) {
	c := Default()
	got := c.OutputPath("/src/prog.c", ".stub.x86_64.s")
	want := filepath.Join("/src", "prog.stub.x86_64.s")
	if got != want {
		t.Errorf("OutputPath (no OutDir) = %q, want %q", got, want)
	}

	c.OutDir = "/out"
	got = c.OutputPath("/src/prog.c", ".stub.x86_64.s")
	want = filepath.Join("/out", "prog.stub.x86_64.s")
	if got != want {
		t.Errorf("OutputPath (with OutDir) = %q, want %q", got, want)
	}
}
