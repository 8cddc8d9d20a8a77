package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/royalty-monitor/pkg/aggregator"
)

// simpleFormatter formats output as simple text.
type simpleFormatter struct {
	config Config
}

// FormatSummary implements Formatter.FormatSummary.
func (f *simpleFormatter) FormatSummary(w io.Writer, summary Summary) error {
	if summary.TotalSelections == 0 {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	_, err := fmt.Fprintf(w, "Selections: %s | Works: %d | Companies: %d | Dates: %d\n",
		formatNumber(summary.TotalSelections),
		summary.Works,
		summary.Companies,
		summary.Dates)
	return err
}

// FormatTopWorks implements Formatter.FormatTopWorks.
func (f *simpleFormatter) FormatTopWorks(w io.Writer, title string, works []aggregator.WorkAggregate) error {
	for i, work := range works {
		if _, err := fmt.Fprintf(w, "#%d: %s (%d) - %s selections by %d companies\n",
			i+1,
			work.Title,
			work.ID,
			formatNumber(work.TotalSelections),
			len(work.ByCompany)); err != nil {
			return err
		}
	}

	return nil
}

// FormatCounts implements Formatter.FormatCounts.
func (f *simpleFormatter) FormatCounts(w io.Writer, title, label string, counts []aggregator.Count) error {
	for _, c := range counts {
		if _, err := fmt.Fprintf(w, "%s: %s\n", c.Name, formatNumber(c.Count)); err != nil {
			return err
		}
	}

	return nil
}

// FormatTimeline implements Formatter.FormatTimeline.
func (f *simpleFormatter) FormatTimeline(w io.Writer, timeline []aggregator.DateCount) error {
	for _, point := range timeline {
		if _, err := fmt.Fprintf(w, "%s: %s\n", point.Date, formatNumber(point.Count)); err != nil {
			return err
		}
	}

	return nil
}

// FormatTracks implements Formatter.FormatTracks.
func (f *simpleFormatter) FormatTracks(w io.Writer, tracks []TrackRow) error {
	for _, t := range tracks {
		if _, err := fmt.Fprintf(w, "%d: %s [%s] - %s selections\n",
			t.ID,
			t.Title,
			t.Media.Label(),
			formatNumber(t.Selections)); err != nil {
			return err
		}
	}

	return nil
}

// FormatDashboard implements Formatter.FormatDashboard.
func (f *simpleFormatter) FormatDashboard(w io.Writer, d aggregator.Dashboard) error {
	_, err := fmt.Fprintf(w, "Uploads: %d | Approved: %d | Pending: %d | Rejected: %d | Plays: %s | Downloads: %s\n",
		d.TotalUploads,
		d.Approved,
		d.Pending,
		d.Rejected,
		formatNumber(d.TotalPlays),
		formatNumber(d.TotalDownloads))
	return err
}
