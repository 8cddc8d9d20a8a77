package aggregator

import (
	"sort"
	"strings"
)

// TopWorks returns works sorted by total selections, highest first. Ties are
// broken by work id so the ranking is stable across runs.
//
// n <= 0 returns every work.
func (r Result) TopWorks(n int) []WorkAggregate {
	works := make([]WorkAggregate, 0, len(r.ByWork))
	for _, w := range r.ByWork {
		works = append(works, w)
	}

	sort.Slice(works, func(i, j int) bool {
		if works[i].TotalSelections != works[j].TotalSelections {
			return works[i].TotalSelections > works[j].TotalSelections
		}
		return works[i].ID < works[j].ID
	})

	return truncate(works, n)
}

// TopCompanies returns companies sorted by selections, highest first.
func (r Result) TopCompanies(n int) []Count {
	return rank(r.ByCompany, n)
}

// TopArtists returns artists sorted by selections, highest first.
func (r Result) TopArtists(n int) []Count {
	return rank(r.ByArtist, n)
}

// Breakdown returns the per-company counts of one work. Unknown works yield
// an empty slice.
func (r Result) Breakdown(workID int64) []Count {
	w, ok := r.ByWork[workID]
	if !ok {
		return []Count{}
	}
	return rank(w.ByCompany, 0)
}

// Timeline returns the per-date counts in ascending date order, keeping the
// last window dates. Dates that could not be parsed sort first.
//
// window <= 0 uses DefaultTimelineWindow.
func (r Result) Timeline(window int) []DateCount {
	if window <= 0 {
		window = DefaultTimelineWindow
	}

	points := make([]DateCount, 0, len(r.ByDate))
	for date, count := range r.ByDate {
		points = append(points, DateCount{Date: date, Count: count})
	}

	sort.Slice(points, func(i, j int) bool {
		a, b := points[i].Date, points[j].Date
		if a == UnknownDate || b == UnknownDate {
			return a == UnknownDate && b != UnknownDate
		}
		return a < b
	})

	if len(points) > window {
		points = points[len(points)-window:]
	}
	return points
}

// Tracks lists every counted work sorted by title. A non-blank query keeps
// only titles containing it, ignoring case.
func (r Result) Tracks(query string) []Track {
	query = strings.ToLower(strings.TrimSpace(query))

	tracks := make([]Track, 0, len(r.ByWork))
	for _, w := range r.ByWork {
		if query != "" && !strings.Contains(strings.ToLower(w.Title), query) {
			continue
		}
		tracks = append(tracks, Track{ID: w.ID, Title: w.Title})
	}

	sort.Slice(tracks, func(i, j int) bool {
		a, b := strings.ToLower(tracks[i].Title), strings.ToLower(tracks[j].Title)
		if a != b {
			return a < b
		}
		return tracks[i].ID < tracks[j].ID
	})

	return tracks
}

func rank(counts map[string]int, n int) []Count {
	result := make([]Count, 0, len(counts))
	for name, count := range counts {
		result = append(result, Count{Name: name, Count: count})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})

	return truncate(result, n)
}

func truncate[T any](items []T, n int) []T {
	if n > 0 && n < len(items) {
		return items[:n]
	}
	return items
}
