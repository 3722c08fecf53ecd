// Package history keeps a bounded, append-only audit trail of executed
// tool calls. The tracker is the single owner of its buffer: entries are
// deep-copied on the way in and snapshotted on the way out, so nothing
// outside the package can mutate a recorded action.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the buffer bound when none is configured.
const DefaultCapacity = 50

// Entry is an immutable record of one executed tool call. Params are
// stored already masked by the caller.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp float64        `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	Params    map[string]any `json:"params"`
	Result    map[string]any `json:"result"`
	Success   bool           `json:"success"`
}

// Tracker is a bounded FIFO of log entries. Append+evict runs as one
// critical section and reads snapshot under the same lock, so concurrent
// transport requests never observe a half-evicted buffer.
type Tracker struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
	now     func() time.Time
}

// NewTracker creates a tracker bounded to capacity entries. Non-positive
// capacities fall back to DefaultCapacity.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{cap: capacity, now: time.Now}
}

// Log appends an entry for a completed call. Success is derived from the
// result's "success" field; a missing or non-boolean value counts as
// failure. Once the buffer exceeds capacity the oldest entries are
// evicted.
func (t *Tracker) Log(toolName string, params, result map[string]any) {
	success, _ := result["success"].(bool)
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: float64(t.now().UnixNano()) / float64(time.Second),
		ToolName:  toolName,
		Params:    copyMap(params),
		Result:    copyMap(result),
		Success:   success,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if overflow := len(t.entries) - t.cap; overflow > 0 {
		t.entries = append([]Entry(nil), t.entries[overflow:]...)
	}
}

// Recent returns at most limit entries, newest first. A limit larger than
// the buffer returns everything; a non-positive limit returns nothing.
func (t *Tracker) Recent(limit int) []Entry {
	if limit <= 0 {
		return []Entry{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.entries)
	if limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, snapshot(t.entries[i]))
	}
	return out
}

// Last returns the most recent entry, if any.
func (t *Tracker) Last() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return snapshot(t.entries[len(t.entries)-1]), true
}

// snapshot detaches an entry's maps from the buffer so readers cannot
// mutate a recorded action.
func snapshot(e Entry) Entry {
	e.Params = copyMap(e.Params)
	e.Result = copyMap(e.Result)
	return e
}

// Len reports the current buffer size.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
