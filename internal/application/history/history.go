package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/notifeed/pkg/ports"
)

const (
	// DefaultMax is the default history capacity
	DefaultMax = 5

	// DefaultKey is the default store key
	DefaultKey = "notifications"
)

var (
	// ErrReadFailed wraps store read failures
	ErrReadFailed = errors.New("history read failed")

	// ErrWriteFailed wraps store write failures
	ErrWriteFailed = errors.New("history write failed")
)

// Status describes where a loaded history came from
type Status string

const (
	StatusLoaded       Status = "loaded"
	StatusAbsent       Status = "absent"
	StatusDecodeFailed Status = "decode_failed"
)

// LoadResult is the outcome of reading the stored history.
// Entries is never nil.
type LoadResult struct {
	Entries []string
	Status  Status

	// Err holds the decode error when Status is StatusDecodeFailed
	Err error
}

// History reads and writes the notification history in a KVStore
type History struct {
	store ports.KVStore
	key   string
	max   int
}

// New creates a History stored under key and capped at max entries.
// Empty key and non-positive max fall back to the defaults.
func New(store ports.KVStore, key string, max int) *History {
	if key == "" {
		key = DefaultKey
	}
	if max <= 0 {
		max = DefaultMax
	}

	return &History{
		store: store,
		key:   key,
		max:   max,
	}
}

// Key returns the store key
func (h *History) Key() string {
	return h.key
}

// Max returns the history capacity
func (h *History) Max() int {
	return h.max
}

// Load reads the stored history
func (h *History) Load(ctx context.Context) (LoadResult, error) {
	raw, found, err := h.store.Get(ctx, h.key)
	if err != nil {
		return LoadResult{Entries: []string{}}, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if !found {
		return LoadResult{Entries: []string{}, Status: StatusAbsent}, nil
	}

	entries, err := Decode(raw)
	if err != nil {
		return LoadResult{Entries: []string{}, Status: StatusDecodeFailed, Err: err}, nil
	}

	return LoadResult{Entries: truncate(entries, h.max), Status: StatusLoaded}, nil
}

// Append inserts entry at the front of the stored history, drops entries past
// the capacity and writes the result back. It returns the new history as
// stored: invalid UTF-8 in entry is replaced with U+FFFD, as JSON encoding does.
func (h *History) Append(ctx context.Context, entry string) ([]string, error) {
	entry = strings.ToValidUTF8(entry, "\uFFFD")

	current, err := h.Load(ctx)
	if err != nil {
		return nil, err
	}

	next := make([]string, 0, len(current.Entries)+1)
	next = append(next, entry)
	next = append(next, current.Entries...)
	next = truncate(next, h.max)

	if err := h.write(ctx, next); err != nil {
		return nil, err
	}

	return next, nil
}

// Clear replaces the stored history with an empty one
func (h *History) Clear(ctx context.Context) error {
	return h.write(ctx, []string{})
}

func (h *History) write(ctx context.Context, entries []string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := h.store.Set(ctx, h.key, string(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	return nil
}

// Decode parses a stored history value. JSON null is rejected along with
// anything that is not an array of strings.
func Decode(raw string) ([]string, error) {
	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("stored history is null")
	}

	return entries, nil
}

func truncate(entries []string, max int) []string {
	if len(entries) > max {
		return entries[:max]
	}
	return entries
}
