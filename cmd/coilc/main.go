// Command coilc drives the middle-end pipeline: frontend stub -> lowering
// -> mem2reg -> optimizer -> phi-elimination -> stack layout -> backend
// stub, over one or more translation units, optionally in a filesystem
// watch loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/coilc/coilc/internal/backend/stub"
	"github.com/coilc/coilc/internal/config"
	"github.com/coilc/coilc/internal/diagnostics"
	"github.com/coilc/coilc/internal/ir/layout"
	"github.com/coilc/coilc/internal/ir/lower"
	"github.com/coilc/coilc/internal/ir/opt"
	"github.com/coilc/coilc/internal/ir/phielim"
	"github.com/coilc/coilc/internal/target"
	"github.com/coilc/coilc/internal/watch"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "coilc:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("coilc", flag.ContinueOnError)
	optLevel := fs.String("O", "2", "optimization level: 0, 1, 2, or 3")
	archName := fs.String("target", "", "target architecture: x86_64, i686, aarch64, riscv64 (default: host)")
	watchMode := fs.Bool("watch", false, "recompile on source change")
	outDir := fs.String("o", "", "output directory (default: alongside input)")
	projectPath := fs.String("project", "", "path to a coilc.json project file")
	emitStub := fs.Bool("stub", false, "emit the backend-stub textual listing")
	selftest := fs.Bool("selftest", false, "compile a named built-in self-test program instead of parsing a file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*selftest {
		return errors.New("no C frontend is implemented; pass -selftest and a program name from cmd/coilc/selftest.go")
	}

	cfg := config.Default()
	if *projectPath != "" {
		if err := config.LoadProjectFile(cfg, *projectPath); err != nil {
			return err
		}
	}
	lvl, err := config.ParseLevel(*optLevel)
	if err != nil {
		return err
	}
	cfg.Level = lvl
	if *archName != "" {
		cfg.Arch = target.Arch(*archName)
	}
	cfg.Watch = cfg.Watch || *watchMode
	cfg.EmitStub = cfg.EmitStub || *emitStub
	if *outDir != "" {
		cfg.OutDir = *outDir
	}
	cfg.Inputs = fs.Args()
	if len(cfg.Inputs) == 0 {
		return errors.New("no input programs given")
	}

	tgt, err := cfg.ResolveArch()
	if err != nil {
		return err
	}

	compileOne := func(name string) error {
		return compileSelftest(cfg, tgt, name)
	}

	if cfg.Watch {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		return watch.Run(ctx, cfg.Inputs, compileOne, watch.Options{
			OnRecompile: func(path string) { fmt.Fprintln(os.Stderr, "coilc: recompiling", path) },
			OnError:     func(path string, err error) { fmt.Fprintf(os.Stderr, "coilc: %s: %v\n", path, err) },
		})
	}

	var g errgroup.Group
	for _, name := range cfg.Inputs {
		name := name
		g.Go(func() error { return compileOne(name) })
	}
	return g.Wait()
}

// compileSelftest runs the whole pipeline over one built-in program,
// owning its own ir.Module exclusively for the run's duration so that
// concurrent goroutines driven from run's errgroup never share mutable
// IR state.
func compileSelftest(cfg *config.Config, tgt *target.Descriptor, name string) (err error) {
	build, ok := selftestPrograms[name]
	if !ok {
		return fmt.Errorf("%s: no such self-test program", name)
	}

	bag := &diagnostics.Bag{}
	defer func() {
		diagnostics.Recover(bag)
		if bag.HasErrors() && err == nil {
			err = fmt.Errorf("%s: compilation failed, see diagnostics above", name)
		}
	}()

	tu := build()
	m := lower.LowerTranslationUnit(tu, tgt, bag)
	if bag.HasErrors() {
		for _, d := range bag.Items() {
			fmt.Fprintln(os.Stderr, "coilc:", d)
		}
		return fmt.Errorf("%s: lowering failed", name)
	}

	opt.RunModule(m, tgt, cfg.Level)
	for _, f := range m.Functions {
		phielim.Run(f)
	}

	if cfg.EmitStub {
		listing := stub.RenderModule(tgt, m)
		out := cfg.OutputPath(name, ".stub."+string(tgt.Arch)+".s")
		if err := os.WriteFile(out, []byte(listing), 0o644); err != nil {
			return fmt.Errorf("%s: writing stub listing: %w", name, err)
		}
	} else {
		for _, f := range m.Functions {
			layout.Compute(f, tgt.PointerWidth) // exercised even without -stub, to catch layout faults early
		}
	}

	for _, d := range bag.Items() {
		fmt.Fprintln(os.Stderr, "coilc:", d)
	}
	return nil
}
