package aggregator

import (
	"strings"

	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
)

// CatalogPerformance returns one aggregate per catalogue work, in catalogue
// order. Works that were never selected appear with zero counts; selections
// of works outside the catalogue are ignored.
func CatalogPerformance(works []logsheet.Work, result Result) []WorkAggregate {
	out := make([]WorkAggregate, 0, len(works))
	seen := make(map[int64]bool, len(works))

	for _, work := range works {
		id := int64(work.ID)
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true

		agg := WorkAggregate{
			ID:        id,
			Title:     strings.TrimSpace(work.Title),
			OwnerID:   work.OwnerID(),
			ByCompany: map[string]int{},
			ByDate:    map[string]int{},
		}
		if agg.Title == "" {
			agg.Title = placeholderTitle(id)
		}

		if counted, ok := result.ByWork[id]; ok {
			agg.TotalSelections = counted.TotalSelections
			for company, n := range counted.ByCompany {
				agg.ByCompany[company] = n
			}
			for date, n := range counted.ByDate {
				agg.ByDate[date] = n
			}
		}

		out = append(out, agg)
	}

	return out
}

// Summarize computes the dashboard counters for a catalogue. TotalPlays
// counts every reference, across all records, to a work in works.
// TotalDownloads stays zero because downloads are not recorded.
func Summarize(works []logsheet.Work, records []logsheet.UsageRecord) Dashboard {
	d := Dashboard{TotalUploads: len(works)}

	catalogue := make(map[int64]bool, len(works))
	for _, work := range works {
		if id := int64(work.ID); id != 0 {
			catalogue[id] = true
		}

		switch work.Status.Name() {
		case logsheet.StatusApproved:
			d.Approved++
		case logsheet.StatusRejected:
			d.Rejected++
		case logsheet.StatusPending:
			d.Pending++
		}
	}

	for _, record := range records {
		for _, ref := range record.SelectedMusic {
			if catalogue[int64(ref.ID)] {
				d.TotalPlays++
			}
		}
	}

	return d
}
