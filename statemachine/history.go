package statemachine

import "time"

// DefaultHistorySize is the default cap of the transition history ring.
const DefaultHistorySize = 100

// HistoryEntry records one completed transition. Entries are immutable
// once recorded.
type HistoryEntry struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// history is a bounded FIFO ring of transition records.
type history struct {
	entries []HistoryEntry
	limit   int
}

func newHistory(limit int) *history {
	if limit < 1 {
		limit = DefaultHistorySize
	}
	return &history{limit: limit}
}

// append records an entry, evicting the oldest when over capacity.
func (h *history) append(entry HistoryEntry) {
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// snapshot returns a copy of the recorded entries, oldest first.
func (h *history) snapshot() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
