// Package drafts synchronizes tool drafts with a remote store.
//
// A [Syncer] sends each draft to a [Remote] (HTTP endpoint, Redis or
// MongoDB). When the remote fails or answers with something that is not a
// well-formed sync receipt, the same payload is written to a bounded local
// [Ring] instead, and the response says so in its message. Sync never
// returns an error.
package drafts

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/fallback"
)

// ErrInvalidPayload is returned when a remote answers with a malformed
// receipt.
var ErrInvalidPayload = stderrors.New("invalid sync payload")

// Request is one draft to store.
type Request struct {
	ToolID   string          `json:"toolId" bson:"tool_id"`
	SyncedAt time.Time       `json:"syncedAt" bson:"synced_at"`
	Payload  json.RawMessage `json:"payload" bson:"-"`
}

// Validate checks that the request names a tool and carries JSON.
func (r Request) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.ToolID, validation.Required, validation.By(identifier)),
		validation.Field(&r.Payload, validation.Required, validation.By(validJSON)),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid draft")
	}
	return nil
}

func identifier(v any) error {
	s, _ := v.(string)
	return errors.ValidateIdentifier(s)
}

func validJSON(v any) error {
	raw, _ := v.(json.RawMessage)
	if !json.Valid(raw) {
		return stderrors.New("must be valid JSON")
	}
	return nil
}

// Response reports where a draft was stored.
type Response struct {
	Source   fallback.Source `json:"source"`
	SyncID   string          `json:"syncId"`
	SyncedAt time.Time       `json:"syncedAt"`
	Message  string          `json:"message"`
	Stored   bool            `json:"stored"`
}

// Receipt is a remote's acknowledgement of a stored draft.
type Receipt struct {
	SyncID   string    `json:"syncId" bson:"sync_id"`
	SyncedAt time.Time `json:"syncedAt" bson:"synced_at"`
}

// Validate checks the receipt structure.
func (r Receipt) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SyncID, validation.Required),
		validation.Field(&r.SyncedAt, validation.Required),
	)
}

// Remote stores drafts out of process.
type Remote interface {
	Push(ctx context.Context, req Request) (Receipt, error)
}

// Entry is one draft held by a store.
type Entry struct {
	SyncID   string          `json:"syncId" bson:"sync_id"`
	ToolID   string          `json:"toolId" bson:"tool_id"`
	SyncedAt time.Time       `json:"syncedAt" bson:"synced_at"`
	Payload  json.RawMessage `json:"payload" bson:"payload"`
}
