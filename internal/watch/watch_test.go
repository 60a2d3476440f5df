package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestRunCompilesOnceUpFront(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.c")
	if err := os.WriteFile(path, []byte("int main() { return 0; }"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var calls []string
	compile := func(p string) error {
		mu.Lock()
		calls = append(calls, p)
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, []string{path}, compile, Options{}) }()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(calls)
		mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatal("Run never compiled the input up front")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestRunRecompilesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.c")
	if err := os.WriteFile(path, []byte("int main() { return 0; }"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	count := 0
	compile := func(p string) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, []string{path}, compile, Options{}) }()

	waitForCount := func(min int, timeout time.Duration) bool {
		deadline := time.After(timeout)
		for {
			mu.Lock()
			n := count
			mu.Unlock()
			if n >= min {
				return true
			}
			select {
			case <-deadline:
				return false
			case <-time.After(10 * time.Millisecond):
			}
		}
	}

	if !waitForCount(1, 2*time.Second) {
		t.Fatal("initial compile never ran")
	}

	if err := os.WriteFile(path, []byte("int main() { return 1; }"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitForCount(2, 2*time.Second) {
		t.Fatal("write to the watched file did not trigger a recompile")
	}
}

func TestRunReportsCompileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.c")
	if err := os.WriteFile(path, []byte("broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var gotErr error
	compile := func(p string) error { return os.ErrInvalid }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, []string{path}, compile, Options{
			OnError: func(p string, err error) {
				mu.Lock()
				gotErr = err
				mu.Unlock()
			},
		})
	}()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		e := gotErr
		mu.Unlock()
		if e != nil {
			break
		}
		select {
		case <-deadline:
			cancel()
			t.Fatal("OnError was never called for a failing compile")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
