package generate

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/matzehuels/figura/pkg/errors"
)

// Live coordinates generate requests from an interactive editor. Every
// Submit gets a larger request id and cancels the one before it; only the
// newest request may update Latest. Last request wins, not first response.
type Live struct {
	runner *Runner

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	latest  Response
	applied bool
}

// NewLive wraps a runner.
func NewLive(r *Runner) *Live {
	return &Live{runner: r}
}

// Submit runs req as the newest request. If a later Submit arrives before
// this one completes, Submit returns an error matching ErrStale and
// ErrAborted and the Document is discarded.
func (l *Live) Submit(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	l.seq++
	id := l.seq
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	l.mu.Unlock()

	req.ID = id
	resp, err := l.runner.Generate(ctx, req)

	l.mu.Lock()
	defer l.mu.Unlock()
	if id != l.seq {
		return Response{}, staleError(id)
	}
	l.cancel = nil
	if err != nil {
		return Response{}, err
	}
	l.latest = resp
	l.applied = true
	return resp, nil
}

// Cancel aborts the in-flight request, if any.
func (l *Live) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Latest returns the most recently applied response.
func (l *Live) Latest() (Response, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest, l.applied
}

// Seq returns the id of the newest submitted request.
func (l *Live) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

func staleError(id uint64) error {
	return stderrors.Join(ErrStale, errors.Aborted(context.Canceled, "request %d superseded", id))
}
