package transport

import (
	"io"
	"testing"
	"time"
)

// endlessReader produces output forever, like a chatty device that keeps
// writing after we stop reading.
type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestPumpExitsOnCloseWithFullBuffer(t *testing.T) {
	sh := &Shell{
		chunks: make(chan []byte, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	finished := make(chan struct{})
	go func() {
		sh.pump(endlessReader{})
		close(finished)
	}()

	// Let the pump fill the chunk buffer and block on the next send.
	deadline := time.After(2 * time.Second)
	for len(sh.chunks) < cap(sh.chunks) {
		select {
		case <-deadline:
			t.Fatal("pump never filled the chunk buffer")
		case <-time.After(time.Millisecond):
		}
	}

	sh.closeOne.Do(func() { close(sh.done) })

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("pump still running after close with full buffer and no reader")
	}
}

func TestPumpDeliversErrorAfterEOF(t *testing.T) {
	sh := &Shell{
		chunks: make(chan []byte, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	finished := make(chan struct{})
	go func() {
		sh.pump(io.MultiReader()) // immediate EOF
		close(finished)
	}()

	select {
	case err := <-sh.errs:
		if err != io.EOF {
			t.Fatalf("got %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump never reported EOF")
	}
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return after EOF")
	}
}
