package generate

import (
	"context"

	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
)

// OffloadThreshold is the input size above which any parse runs on a
// worker goroutine. Entity (SQL) parsing is always offloaded.
const OffloadThreshold = 64 << 10

func shouldOffload(req Request) bool {
	return req.Kind == diagram.KindEntity || len(req.Input) > OffloadThreshold
}

type result[T any] struct {
	v   T
	err error
}

// offload runs fn on its own goroutine and waits for it or for ctx. When
// ctx wins, the worker's eventual result is discarded.
func offload[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	ch := make(chan result[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				var zero T
				ch <- result[T]{zero, errors.New(errors.ErrCodeInternal, "worker panicked: %v", p)}
			}
		}()
		v, err := fn()
		ch <- result[T]{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Aborted(ctx.Err(), "worker abandoned")
	}
}
