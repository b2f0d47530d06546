package status

import (
	"fmt"
	"strings"

	"github.com/loykin/shiprun"
)

// Status display constants
const (
	defaultHistoryLimit = 10 // Default number of history entries to show
)

// HistoryItem is a single pipeline run record. Timestamps are RFC3339
// strings in UTC; FinishedAt is empty while a run is still in flight.
type HistoryItem struct {
	BuildNumber int
	SourceRef   string
	ImageRef    string
	Status      string
	StartedAt   string
	FinishedAt  string
}

// Info aggregates status information: the latest build number and run history.
type Info struct {
	LatestBuild int
	History     []HistoryItem
}

// FromStore collects status information from an opened store.
func FromStore(st *shiprun.Store) (Info, error) {
	runs, err := st.ListRuns(0)
	if err != nil {
		return Info{}, err
	}
	items := make([]HistoryItem, 0, len(runs))
	latest := 0
	for _, r := range runs {
		if r.BuildNumber > latest {
			latest = r.BuildNumber
		}
		items = append(items, HistoryItem{
			BuildNumber: r.BuildNumber,
			SourceRef:   r.SourceRef,
			ImageRef:    r.ImageRef,
			Status:      r.Status,
			StartedAt:   r.StartedAt,
			FinishedAt:  r.FinishedAt,
		})
	}
	return Info{LatestBuild: latest, History: items}, nil
}

// FormatHuman renders the status for the console. When withHistory is true,
// the default history limit applies.
func (i Info) FormatHuman(withHistory bool) string {
	return i.FormatHumanWithLimit(withHistory, defaultHistoryLimit, false)
}

// FormatHumanWithLimit renders the status with an explicit history limit.
// History is newest-first; all=true ignores the limit.
func (i Info) FormatHumanWithLimit(withHistory bool, limit int, all bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "latest build: %d\n", i.LatestBuild)
	if !withHistory {
		return b.String()
	}
	b.WriteString("history:\n")
	n := len(i.History)
	if !all && limit > 0 && n > limit {
		n = limit
	}
	for idx := 0; idx < n; idx++ {
		h := i.History[idx]
		ref := h.ImageRef
		if ref == "" {
			ref = "-"
		}
		fmt.Fprintf(&b, "#%d %s ref=%s image=%s started=%s finished=%s\n",
			h.BuildNumber, h.Status, h.SourceRef, ref, h.StartedAt, h.FinishedAt)
	}
	return b.String()
}
