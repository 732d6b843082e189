// Package fallback runs a remote call and degrades to a local one when the
// remote fails.
//
// Generate, draft sync and any other path with an optional remote
// collaborator share this one combinator: the caller always receives a
// value plus the Source that produced it, and remote failures become a
// human-readable notice instead of an error. Cancellation is the exception
// and is returned as is.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/matzehuels/figura/pkg/observability"
)

// Source names the path that produced a value.
type Source string

// Sources.
const (
	Local  Source = "local"
	Remote Source = "remote"
)

// Func produces a value.
type Func[T any] func(ctx context.Context) (T, error)

// Outcome is the result of Run.
type Outcome[T any] struct {
	Value   T
	Source  Source
	Message string // empty unless the remote path failed
	Err     error  // the remote error that caused the fallback, if any
}

// Fallback reports whether the local path replaced a failed remote one.
func (o Outcome[T]) Fallback() bool { return o.Err != nil }

// Notice formats the message attached to a fallback outcome.
type Notice func(err error) string

// DefaultNotice is used when Run is given a nil Notice.
func DefaultNotice(err error) string {
	return "remote unavailable, used local result: " + err.Error()
}

// Run calls remote and returns its value on success. On failure it calls
// local and attaches notice(err). A nil remote goes straight to local
// without a notice. Context cancellation, from either path, is returned as
// an error and never downgraded.
//
// op names the operation for observability hooks.
func Run[T any](ctx context.Context, op string, remote, local Func[T], notice Notice) (Outcome[T], error) {
	if remote != nil {
		start := time.Now()
		v, err := remote(ctx)
		if err == nil {
			observability.Sync().OnRemote(ctx, op, time.Since(start))
			return Outcome[T]{Value: v, Source: Remote}, nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return Outcome[T]{}, cerr
		}
		if isCanceled(err) {
			return Outcome[T]{}, err
		}
		observability.Sync().OnFallback(ctx, op, err)
		if notice == nil {
			notice = DefaultNotice
		}
		v, lerr := local(ctx)
		if lerr != nil {
			return Outcome[T]{}, lerr
		}
		return Outcome[T]{Value: v, Source: Local, Message: notice(err), Err: err}, nil
	}

	v, err := local(ctx)
	if err != nil {
		return Outcome[T]{}, err
	}
	return Outcome[T]{Value: v, Source: Local}, nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
