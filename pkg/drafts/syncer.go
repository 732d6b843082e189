package drafts

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/fallback"
)

// Syncer stores drafts remotely and falls back to a local ring.
type Syncer struct {
	Remote Remote // nil stores locally only
	Ring   *Ring  // nil means there is no local store
	Logger *log.Logger
	Now    func() time.Time
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// Sync stores req and reports where it went. It never fails: remote
// errors, malformed receipts and even local write errors are reported in
// the message.
func (s *Syncer) Sync(ctx context.Context, req Request) Response {
	if req.SyncedAt.IsZero() {
		req.SyncedAt = s.now()
	}
	req.SyncedAt = req.SyncedAt.UTC()
	if err := req.Validate(); err != nil {
		return Response{Source: fallback.Local, SyncedAt: req.SyncedAt, Message: "draft not stored: " + err.Error()}
	}

	var remote fallback.Func[Receipt]
	if s.Remote != nil {
		remote = func(ctx context.Context) (Receipt, error) {
			rc, err := s.Remote.Push(ctx, req)
			if err != nil {
				return Receipt{}, err
			}
			if err := rc.Validate(); err != nil {
				return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
			return rc, nil
		}
	}
	local := func(ctx context.Context) (Receipt, error) {
		if s.Ring == nil {
			return Receipt{}, errors.New(errors.ErrCodeUnsupported, "no local draft store")
		}
		e := Entry{SyncID: "local-" + uuid.NewString(), ToolID: req.ToolID, SyncedAt: req.SyncedAt, Payload: req.Payload}
		if err := s.Ring.Append(ctx, e); err != nil {
			return Receipt{}, err
		}
		return Receipt{SyncID: e.SyncID, SyncedAt: e.SyncedAt}, nil
	}
	notice := func(err error) string {
		return fmt.Sprintf("remote sync failed (%v); saved locally, keeping the last %d drafts", err, s.capacity())
	}

	out, err := fallback.Run(ctx, "drafts", remote, local, notice)
	l := s.logger().With("tool", req.ToolID)
	if err != nil {
		if ctx.Err() != nil {
			l.Debug("draft sync cancelled")
			return Response{Source: fallback.Local, SyncedAt: req.SyncedAt, Message: "sync cancelled; nothing was stored"}
		}
		l.Warn("draft not stored", "err", err)
		return Response{Source: fallback.Local, SyncedAt: req.SyncedAt, Message: fmt.Sprintf("sync failed and the local store is unavailable (%v); nothing was stored", err)}
	}

	if out.Fallback() {
		l.Warn("draft sync fell back to local store", "err", out.Err)
	} else {
		l.Debug("draft synced", "source", out.Source, "sync_id", out.Value.SyncID)
	}
	msg := out.Message
	if msg == "" {
		msg = "saved " + string(out.Source)
	}
	return Response{
		Source:   out.Source,
		SyncID:   out.Value.SyncID,
		SyncedAt: out.Value.SyncedAt,
		Message:  msg,
		Stored:   true,
	}
}

func (s *Syncer) capacity() int {
	if s.Ring == nil {
		return 0
	}
	return s.Ring.Capacity()
}
