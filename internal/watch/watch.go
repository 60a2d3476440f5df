// Package watch recompiles translation units in place as their source
// files change on disk, using the same fsnotify backend the teacher
// wires up for its virtual filesystem watcher.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// CompileFunc runs the whole pipeline (frontend stub, lowering, mem2reg,
// optimizer, phi-elimination, stack layout, backend stub) for one input
// file. Watch never inspects the result; a non-nil error is reported to
// the caller's OnError hook and watching continues.
type CompileFunc func(path string) error

// Options configures one watch run.
type Options struct {
	OnError     func(path string, err error)
	OnRecompile func(path string)
}

// Run watches every directory containing an input file and re-invokes
// compile on the affected file whenever fsnotify reports a Write or
// Create event for it. It blocks until ctx is canceled.
func Run(ctx context.Context, inputs []string, compile CompileFunc, opts Options) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	watched := map[string]bool{}
	interesting := map[string]bool{}
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("watch: %s: %w", in, err)
		}
		interesting[abs] = true
		dir := filepath.Dir(abs)
		if !watched[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("watch: %s: %w", dir, err)
			}
			watched[dir] = true
		}
	}

	// Compile every input once up front, matching a normal (non-watch)
	// invocation's behavior before the first file-change event arrives.
	for _, in := range inputs {
		runOne(in, compile, opts)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !interesting[abs] {
				continue
			}
			runOne(abs, compile, opts)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if opts.OnError != nil {
				opts.OnError("", err)
			}
		}
	}
}

func runOne(path string, compile CompileFunc, opts Options) {
	if opts.OnRecompile != nil {
		opts.OnRecompile(path)
	}
	if err := compile(path); err != nil && opts.OnError != nil {
		opts.OnError(path, err)
	}
}
