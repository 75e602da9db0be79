package domain

import "time"

// HistoryEntry records the outcome of one matrix run.
type HistoryEntry struct {
	Timestamp  time.Time            `json:"timestamp"`
	Commit     string               `json:"commit,omitempty"`
	Branch     string               `json:"branch,omitempty"`
	Overall    float64              `json:"overall"`
	Cells      map[string]CellEntry `json:"cells"`
	Incomplete bool                 `json:"incomplete,omitempty"`
}

// CellEntry records one cell's outcome at a point in time.
type CellEntry struct {
	Cell    string     `json:"cell"`
	Status  ExitStatus `json:"status"`
	Percent float64    `json:"percent,omitempty"`
}

// History contains all recorded run entries.
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// LatestEntry returns the most recent entry, or nil if empty.
func (h *History) LatestEntry() *HistoryEntry {
	if len(h.Entries) == 0 {
		return nil
	}
	latestIndex := 0
	latestTime := h.Entries[0].Timestamp
	for i := 1; i < len(h.Entries); i++ {
		if h.Entries[i].Timestamp.After(latestTime) {
			latestIndex = i
			latestTime = h.Entries[i].Timestamp
		}
	}
	return &h.Entries[latestIndex]
}

// EntriesAfter returns all entries after the given time.
func (h *History) EntriesAfter(t time.Time) []HistoryEntry {
	var result []HistoryEntry
	for _, e := range h.Entries {
		if e.Timestamp.After(t) {
			result = append(result, e)
		}
	}
	return result
}

// Delta returns the overall coverage change from the previous run, and
// whether a previous run exists to compare against.
func (h *History) Delta(current float64) (float64, bool) {
	latest := h.LatestEntry()
	if latest == nil {
		return 0, false
	}
	return Round1(current - latest.Overall), true
}
