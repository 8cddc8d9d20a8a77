// Package aggregator computes performance analytics from log sheets.
//
// Aggregation is a pure function: Aggregate takes an immutable slice of
// usage records and returns a fresh Result. Nothing is cached between calls
// and inputs are never modified, so a Result can be recomputed whenever the
// inputs or the scope change.
//
// Example usage:
//
//	res := aggregator.Aggregate(sheets, aggregator.Options{ScopeUserID: 7})
//	if res.Empty() {
//	    fmt.Println("No performance data available yet.")
//	    return
//	}
//	for _, w := range res.TopWorks(10) {
//	    fmt.Printf("%s: %d selections\n", w.Title, w.TotalSelections)
//	}
package aggregator

import "time"

const (
	// UnknownCompany labels log sheets without a company.
	UnknownCompany = "Unknown"

	// UnknownArtist labels selections whose work has no artist information.
	UnknownArtist = "Unknown Artist"

	// UnknownDate keys selections whose log sheet date cannot be parsed.
	UnknownDate = "unknown"

	// DateLayout is the calendar-date key format.
	DateLayout = "2006-01-02"

	// DefaultTimelineWindow is the number of distinct dates kept by Timeline.
	DefaultTimelineWindow = 30
)

// Options controls a single aggregation.
type Options struct {
	// ScopeUserID restricts counting to works owned by this user.
	// Zero counts every work.
	ScopeUserID int64

	// Location is the calendar used to derive date keys.
	// Default: time.Local.
	Location *time.Location
}

// WorkAggregate summarises the selections of one work.
//
// Invariant: TotalSelections equals the sum of ByCompany and the sum of
// ByDate.
type WorkAggregate struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	OwnerID         int64          `json:"owner_id,omitempty"`
	TotalSelections int            `json:"total_selections"`
	ByCompany       map[string]int `json:"by_company"`
	ByDate          map[string]int `json:"by_date"`
}

// Result is the output of one aggregation.
//
// Invariant: TotalSelections equals the sum of every map's values and the
// sum of TotalSelections over ByWork.
type Result struct {
	ByWork          map[int64]WorkAggregate `json:"by_work"`
	ByCompany       map[string]int          `json:"by_company"`
	ByDate          map[string]int          `json:"by_date"`
	ByArtist        map[string]int          `json:"by_artist"`
	TotalSelections int                     `json:"total_selections"`
}

// Empty reports whether nothing was counted. Views render an empty state
// rather than treating this as an error.
func (r Result) Empty() bool {
	return r.TotalSelections == 0
}

// Count is a named counter used by company, artist and breakdown rankings.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DateCount is one point of the selection timeline.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Track is an entry of the track picker.
type Track struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Dashboard summarises an artist's catalogue.
type Dashboard struct {
	TotalUploads   int `json:"total_uploads"`
	Approved       int `json:"approved"`
	Pending        int `json:"pending"`
	Rejected       int `json:"rejected"`
	TotalPlays     int `json:"total_plays"`
	TotalDownloads int `json:"total_downloads"`
}
