package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a progress line on w until stopped or ctx ends.
type Spinner struct {
	w       io.Writer
	message string
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	mu      sync.Mutex
}

// newSpinner starts a spinner writing to w.
func newSpinner(ctx context.Context, w io.Writer, message string) *Spinner {
	sctx, cancel := context.WithCancel(ctx)
	s := &Spinner{w: w, message: message, parent: ctx, ctx: sctx, cancel: cancel, stopped: make(chan struct{})}
	go s.run()
	return s
}

func (s *Spinner) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clearLine()
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), StyleDim.Render(s.message))
			s.mu.Unlock()
		}
	}
}

// SetMessage replaces the text shown next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. It is idempotent.
func (s *Spinner) Stop() {
	s.once.Do(s.cancel)
	<-s.stopped
}

// Cancelled reports whether the parent context ended, as opposed to a
// plain Stop.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}
