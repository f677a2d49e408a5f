package tradeescrow

import (
	"unicode/utf8"

	"github.com/iov-one/weave"
)

const (
	// maxHistoryEntries is the number of most recent entries kept on an
	// order. Older entries are dropped.
	maxHistoryEntries = 10
	// maxHistoryDescription is the byte length limit of a history entry
	// description.
	maxHistoryDescription = 100
	// maxNoteLength limits the dispute reason and resolution included in
	// a history description.
	maxNoteLength = 80
)

// AppendHistory records a new entry in the order history. When the history
// is full, the oldest entry is dropped first. The description is truncated
// to fit the size limit.
func (o *Order) AppendHistory(at weave.UnixTime, state OrderState, description string) {
	entry := &HistoryEntry{
		Timestamp:   at,
		State:       state,
		Description: truncate(description, maxHistoryDescription),
	}
	if len(o.History) >= maxHistoryEntries {
		// Copy into a new slice so that the backing array does not grow
		// and no snapshot sharing it is modified.
		kept := make([]*HistoryEntry, 0, maxHistoryEntries)
		kept = append(kept, o.History[len(o.History)-maxHistoryEntries+1:]...)
		o.History = kept
	}
	o.History = append(o.History, entry)
	o.LastUpdated = at
}

// truncate returns the longest prefix of s that is at most max bytes long
// and does not split a multi-byte character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
