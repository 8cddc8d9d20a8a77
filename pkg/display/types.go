// Package display provides output formatting for performance data.
//
// It supports multiple output formats (table, JSON, simple text). Table
// output is styled with lipgloss and prints numbers with thousands
// separators.
package display

import (
	"io"
	"time"

	"github.com/0xmhha/royalty-monitor/pkg/aggregator"
	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
	"github.com/0xmhha/royalty-monitor/pkg/media"
)

// EmptyMessage is printed instead of a summary when nothing was counted.
const EmptyMessage = "No performance data available yet."

// Format represents an output format.
type Format string

const (
	// FormatTable displays data in aligned tables.
	FormatTable Format = "table"

	// FormatJSON displays data as JSON.
	FormatJSON Format = "json"

	// FormatSimple displays data in simple text format.
	FormatSimple Format = "simple"
)

// ParseFormat validates a format name. Empty selects FormatTable.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(s); f {
	case "":
		return FormatTable, true
	case FormatTable, FormatJSON, FormatSimple:
		return f, true
	default:
		return "", false
	}
}

// Formatter formats and displays performance data.
type Formatter interface {
	// FormatSummary formats the headline totals of an aggregation, or
	// EmptyMessage when nothing was counted.
	FormatSummary(w io.Writer, summary Summary) error

	// FormatTopWorks formats a work ranking.
	FormatTopWorks(w io.Writer, title string, works []aggregator.WorkAggregate) error

	// FormatCounts formats a name ranking such as companies or artists.
	// label names the first column.
	FormatCounts(w io.Writer, title, label string, counts []aggregator.Count) error

	// FormatTimeline formats selections per date.
	FormatTimeline(w io.Writer, timeline []aggregator.DateCount) error

	// FormatTracks formats a track listing.
	FormatTracks(w io.Writer, tracks []TrackRow) error

	// FormatDashboard formats catalogue counters.
	FormatDashboard(w io.Writer, dashboard aggregator.Dashboard) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format.
	// Default: FormatTable.
	Format Format

	// Color enables styled table headers.
	// Default: false.
	Color bool

	// Compact enables compact output (less whitespace).
	// Default: false.
	Compact bool
}

// Summary holds the headline totals of one aggregation.
type Summary struct {
	Title           string    `json:"title"`
	TotalSelections int       `json:"total_selections"`
	Works           int       `json:"works"`
	Companies       int       `json:"companies"`
	Dates           int       `json:"dates"`
	FetchedAt       time.Time `json:"fetched_at,omitempty"`
	Degraded        bool      `json:"degraded,omitempty"`
}

// NewSummary summarises result.
func NewSummary(title string, result aggregator.Result, fetchedAt time.Time, degraded bool) Summary {
	return Summary{
		Title:           title,
		TotalSelections: result.TotalSelections,
		Works:           len(result.ByWork),
		Companies:       len(result.ByCompany),
		Dates:           len(result.ByDate),
		FetchedAt:       fetchedAt,
		Degraded:        degraded,
	}
}

// TrackRow is one line of a track listing.
type TrackRow struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Media      media.Type `json:"media"`
	Selections int        `json:"selections"`
}

// NewTrackRows joins tracks with their catalogue entry (for the media type)
// and their selection count in result.
func NewTrackRows(tracks []aggregator.Track, works []logsheet.Work, result aggregator.Result) []TrackRow {
	catalogue := make(map[int64]logsheet.Work, len(works))
	for _, w := range works {
		catalogue[int64(w.ID)] = w
	}

	rows := make([]TrackRow, 0, len(tracks))
	for _, t := range tracks {
		row := TrackRow{
			ID:         t.ID,
			Title:      t.Title,
			Media:      media.Unknown,
			Selections: result.ByWork[t.ID].TotalSelections,
		}
		if w, ok := catalogue[t.ID]; ok {
			row.Media = media.Detect(w.FileType, w.FileURL)
		}
		rows = append(rows, row)
	}

	return rows
}
