package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/royalty-monitor/pkg/aggregator"
)

// jsonFormatter formats output as JSON.
type jsonFormatter struct {
	config Config
}

// FormatSummary implements Formatter.FormatSummary.
func (f *jsonFormatter) FormatSummary(w io.Writer, summary Summary) error {
	return f.encode(w, summary)
}

// FormatTopWorks implements Formatter.FormatTopWorks.
func (f *jsonFormatter) FormatTopWorks(w io.Writer, title string, works []aggregator.WorkAggregate) error {
	if works == nil {
		works = []aggregator.WorkAggregate{}
	}
	return f.encode(w, struct {
		Title string                     `json:"title"`
		Works []aggregator.WorkAggregate `json:"works"`
	}{title, works})
}

// FormatCounts implements Formatter.FormatCounts.
func (f *jsonFormatter) FormatCounts(w io.Writer, title, label string, counts []aggregator.Count) error {
	if counts == nil {
		counts = []aggregator.Count{}
	}
	return f.encode(w, struct {
		Title  string             `json:"title"`
		Counts []aggregator.Count `json:"counts"`
	}{title, counts})
}

// FormatTimeline implements Formatter.FormatTimeline.
func (f *jsonFormatter) FormatTimeline(w io.Writer, timeline []aggregator.DateCount) error {
	if timeline == nil {
		timeline = []aggregator.DateCount{}
	}
	return f.encode(w, timeline)
}

// FormatTracks implements Formatter.FormatTracks.
func (f *jsonFormatter) FormatTracks(w io.Writer, tracks []TrackRow) error {
	if tracks == nil {
		tracks = []TrackRow{}
	}
	return f.encode(w, tracks)
}

// FormatDashboard implements Formatter.FormatDashboard.
func (f *jsonFormatter) FormatDashboard(w io.Writer, dashboard aggregator.Dashboard) error {
	return f.encode(w, dashboard)
}

func (f *jsonFormatter) encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(v)
}
