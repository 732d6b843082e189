package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerRendersMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "Generating")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(out.String(), "Generating") {
		t.Errorf("spinner output %q lacks message", out.String())
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
}

func TestSpinnerContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) }},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			s := newSpinner(ctx, &syncBuffer{}, "Working")
			cancel()
			time.Sleep(50 * time.Millisecond)
			s.Stop()
			if !s.Cancelled() {
				t.Error("spinner should report cancellation")
			}
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), &syncBuffer{}, "Working")
	s.SetMessage("Still working")
	s.Stop()
	s.Stop()
}
