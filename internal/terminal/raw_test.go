//go:build unix

package terminal

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"
	"testing"
	"time"
)

// pipeInput returns a RawInput reading the non-blocking end of a pipe.
func pipeInput(t *testing.T) (*RawInput, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	fd := int(r.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		t.Fatal(err)
	}
	return &RawInput{fd: fd}, w
}

func TestRawInput_ReadsThenReportsEOF(t *testing.T) {
	in, w := pipeInput(t)
	if _, err := w.Write([]byte("+")); err != nil {
		t.Fatal(err)
	}
	w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := in.ReadKey(ctx)
	if err != nil || b != KEY_UP {
		t.Fatalf("ReadKey = %q, %v", b, err)
	}
	if _, err := in.ReadKey(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("ReadKey after writer closed = %v, want io.EOF", err)
	}
}

func TestRawInput_WaitsForKeyUntilCancelled(t *testing.T) {
	in, _ := pipeInput(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := in.ReadKey(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ReadKey on idle input = %v, want deadline exceeded", err)
	}
}

func TestController_ExitsWhenInputCloses(t *testing.T) {
	_, m := newControlled(t, 120)
	in, w := pipeInput(t)
	w.Close()

	done := make(chan error, 1)
	go func() { done <- NewController(m, io.Discard, nil).Run(context.Background(), in) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept polling a closed input")
	}
}
