package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/0xmhha/royalty-monitor/pkg/aggregator"
)

// barWidth is the length of the longest timeline bar.
const barWidth = 30

// tableFormatter formats output as tables.
type tableFormatter struct {
	config Config
}

// FormatSummary implements Formatter.FormatSummary.
func (f *tableFormatter) FormatSummary(w io.Writer, summary Summary) error {
	title := summary.Title
	if title == "" {
		title = "Performance Summary"
	}
	if err := writeHeader(w, f.config, title); err != nil {
		return err
	}

	if summary.TotalSelections == 0 {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	rows := [][]string{
		{"Total Selections", formatNumber(summary.TotalSelections)},
		{"Works", formatNumber(summary.Works)},
		{"Companies", formatNumber(summary.Companies)},
		{"Dates", formatNumber(summary.Dates)},
	}

	if !summary.FetchedAt.IsZero() {
		rows = append(rows, []string{"Fetched", humanize.Time(summary.FetchedAt)})
	}
	if summary.Degraded {
		rows = append(rows, []string{"Status", "degraded (showing cached or partial data)"})
	}

	return f.writeTable(w, []string{"Metric", "Value"}, rows)
}

// FormatTopWorks implements Formatter.FormatTopWorks.
func (f *tableFormatter) FormatTopWorks(w io.Writer, title string, works []aggregator.WorkAggregate) error {
	if err := writeHeader(w, f.config, title); err != nil {
		return err
	}

	header := []string{"Rank", "Work ID", "Title", "Selections", "Companies"}

	rows := make([][]string, len(works))
	for i, work := range works {
		rows[i] = []string{
			fmt.Sprintf("#%d", i+1),
			strconv.FormatInt(work.ID, 10),
			work.Title,
			formatNumber(work.TotalSelections),
			formatNumber(len(work.ByCompany)),
		}
	}

	return f.writeTable(w, header, rows)
}

// FormatCounts implements Formatter.FormatCounts.
func (f *tableFormatter) FormatCounts(w io.Writer, title, label string, counts []aggregator.Count) error {
	if err := writeHeader(w, f.config, title); err != nil {
		return err
	}

	total := 0
	for _, c := range counts {
		total += c.Count
	}

	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{
			fmt.Sprintf("#%d", i+1),
			c.Name,
			formatNumber(c.Count),
			formatShare(c.Count, total),
		}
	}

	return f.writeTable(w, []string{"Rank", label, "Selections", "Share"}, rows)
}

// FormatTimeline implements Formatter.FormatTimeline.
func (f *tableFormatter) FormatTimeline(w io.Writer, timeline []aggregator.DateCount) error {
	if err := writeHeader(w, f.config, "Selections Over Time"); err != nil {
		return err
	}

	peak := 0
	for _, point := range timeline {
		if point.Count > peak {
			peak = point.Count
		}
	}

	header := []string{"Date", "Selections"}
	if !f.config.Compact {
		header = append(header, "")
	}

	rows := make([][]string, len(timeline))
	for i, point := range timeline {
		rows[i] = []string{point.Date, formatNumber(point.Count)}
		if !f.config.Compact {
			rows[i] = append(rows[i], render(f.config, styleBar, bar(point.Count, peak)))
		}
	}

	return f.writeTable(w, header, rows)
}

// FormatTracks implements Formatter.FormatTracks.
func (f *tableFormatter) FormatTracks(w io.Writer, tracks []TrackRow) error {
	if err := writeHeader(w, f.config, "Tracks"); err != nil {
		return err
	}

	rows := make([][]string, len(tracks))
	for i, t := range tracks {
		rows[i] = []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			t.Media.Label(),
			formatNumber(t.Selections),
		}
	}

	return f.writeTable(w, []string{"ID", "Title", "Type", "Selections"}, rows)
}

// FormatDashboard implements Formatter.FormatDashboard.
func (f *tableFormatter) FormatDashboard(w io.Writer, d aggregator.Dashboard) error {
	if err := writeHeader(w, f.config, "Artist Dashboard"); err != nil {
		return err
	}

	rows := [][]string{
		{"Total Uploads", formatNumber(d.TotalUploads)},
		{"Approved", formatNumber(d.Approved)},
		{"Pending", formatNumber(d.Pending)},
		{"Rejected", formatNumber(d.Rejected)},
		{"Total Plays", formatNumber(d.TotalPlays)},
		{"Total Downloads", formatNumber(d.TotalDownloads)},
	}

	return f.writeTable(w, []string{"Metric", "Value"}, rows)
}

// bar renders count as a bar scaled to peak.
func bar(count, peak int) string {
	if peak <= 0 || count <= 0 {
		return ""
	}
	n := count * barWidth / peak
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// writeTable writes a formatted table.
func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	// Calculate column widths by visible width.
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	// Write header.
	styled := make([]string, len(header))
	for i, h := range header {
		styled[i] = render(f.config, styleHeader, h)
	}
	if err := f.writeRow(w, styled, widths); err != nil {
		return err
	}

	// Write separator.
	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = render(f.config, styleDim, strings.Repeat("-", width))
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	// Write rows.
	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	// Add spacing.
	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}

	return nil
}

// writeRow writes a single table row.
func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(gap)
		}
		b.WriteString(cell)

		// The last column is not padded.
		if i < len(cells)-1 {
			if pad := widths[i] - lipgloss.Width(cell); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
	}

	_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	return err
}
