package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/figura/pkg/errors"
)

// DefaultCapacity is the number of drafts kept per tool.
const DefaultCapacity = 48

// Ring is a bounded local draft store. Each tool's drafts live in one JSON
// file under the ring directory; appending past the capacity evicts the
// oldest entries.
type Ring struct {
	mu       sync.Mutex
	dir      string
	capacity int
}

// NewRing creates a ring in dir. If dir is empty, defaults to
// the user cache directory (e.g. ~/.cache/figura/drafts). A capacity of
// 0 or less uses DefaultCapacity.
func NewRing(dir string, capacity int) (*Ring, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		dir = filepath.Join(base, "figura", "drafts")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{dir: dir, capacity: capacity}, nil
}

// Capacity returns the per-tool entry limit.
func (r *Ring) Capacity() int { return r.capacity }

// Path returns the ring directory.
func (r *Ring) Path() string { return r.dir }

func (r *Ring) file(toolID string) (string, error) {
	if err := errors.ValidateIdentifier(toolID); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, toolID+".json"), nil
}

// Append stores e, evicting the oldest entries beyond the capacity.
func (r *Ring) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.file(e.ToolID)
	if err != nil {
		return err
	}
	entries, err := r.read(path)
	if err != nil {
		return err
	}
	entries = append(entries, e)
	if over := len(entries) - r.capacity; over > 0 {
		entries = entries[over:]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal drafts: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write drafts: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace drafts: %w", err)
	}
	return nil
}

// List returns the drafts of a tool, oldest first.
func (r *Ring) List(ctx context.Context, toolID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.file(toolID)
	if err != nil {
		return nil, err
	}
	return r.read(path)
}

// Latest returns the newest draft of a tool.
func (r *Ring) Latest(ctx context.Context, toolID string) (Entry, bool, error) {
	entries, err := r.List(ctx, toolID)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[len(entries)-1], true, nil
}

// Len returns the number of drafts held for a tool.
func (r *Ring) Len(ctx context.Context, toolID string) int {
	entries, _ := r.List(ctx, toolID)
	return len(entries)
}

// read loads a tool file. A missing file is an empty ring; a corrupt one is
// discarded.
func (r *Ring) read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read drafts: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		_ = os.Remove(path)
		return nil, nil
	}
	return entries, nil
}
