package discovery

import (
	"context"
	"fmt"

	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
)

// Source serves discovered exports to the refresh loader.
//
// A kind with no export files, or whose export files all fail to parse,
// yields ErrNoExportsFound so the loader degrades to its cached copy
// instead of treating the data as empty.
//
// Exports are merged oldest first. A log sheet or work id seen in a later
// export replaces the earlier copy, so re-exporting the same data never
// double counts it. Records without an id are always kept.
type Source struct {
	discoverer  Discoverer
	parser      logsheet.Parser
	scopeUserID int64
	logger      Logger
}

// NewSource creates a Source. A non-zero scopeUserID keeps only works owned
// by that user.
func NewSource(d Discoverer, p logsheet.Parser, scopeUserID int64, logger Logger) *Source {
	return &Source{
		discoverer:  d,
		parser:      p,
		scopeUserID: scopeUserID,
		logger:      logger,
	}
}

// LogSheets implements refresh.Source.
func (s *Source) LogSheets(ctx context.Context) ([]logsheet.UsageRecord, error) {
	files, err := s.files(ctx, KindLogSheets)
	if err != nil {
		return nil, err
	}

	merged := newMerger[logsheet.UsageRecord]()
	parsed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sheets, skipped, err := s.parser.ParseLogSheets(f.Path)
		if err != nil {
			s.logger.Warn("skipping unreadable export", "path", f.Path, "error", err)
			continue
		}
		if skipped > 0 {
			s.logger.Warn("export contained malformed lines", "path", f.Path, "skipped", skipped)
			if len(sheets) == 0 {
				continue
			}
		}
		parsed++

		for _, sheet := range sheets {
			merged.add(int64(sheet.ID), sheet)
		}
	}

	if parsed == 0 {
		return nil, fmt.Errorf("%w: every %s export was unreadable", ErrNoExportsFound, KindLogSheets)
	}

	return merged.items(), nil
}

// Works implements refresh.Source.
func (s *Source) Works(ctx context.Context) ([]logsheet.Work, error) {
	files, err := s.files(ctx, KindWorks)
	if err != nil {
		return nil, err
	}

	merged := newMerger[logsheet.Work]()
	parsed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		works, skipped, err := s.parser.ParseWorks(f.Path)
		if err != nil {
			s.logger.Warn("skipping unreadable export", "path", f.Path, "error", err)
			continue
		}
		if skipped > 0 {
			s.logger.Warn("export contained malformed lines", "path", f.Path, "skipped", skipped)
			if len(works) == 0 {
				continue
			}
		}
		parsed++

		for _, w := range works {
			if s.scopeUserID != 0 && w.OwnerID() != s.scopeUserID {
				continue
			}
			merged.add(int64(w.ID), w)
		}
	}

	if parsed == 0 {
		return nil, fmt.Errorf("%w: every %s export was unreadable", ErrNoExportsFound, KindWorks)
	}

	return merged.items(), nil
}

func (s *Source) files(ctx context.Context, kind Kind) ([]ExportFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all, err := s.discoverer.Discover()
	if err != nil {
		return nil, fmt.Errorf("failed to discover exports: %w", err)
	}

	files := make([]ExportFile, 0, len(all))
	for _, f := range all {
		if f.Kind == kind {
			files = append(files, f)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: kind %s", ErrNoExportsFound, kind)
	}

	return files, nil
}

// merger keeps insertion order while letting later items replace earlier
// ones with the same non-zero id.
type merger[T any] struct {
	index map[int64]int
	list  []T
}

func newMerger[T any]() *merger[T] {
	return &merger[T]{index: make(map[int64]int), list: []T{}}
}

func (m *merger[T]) add(id int64, item T) {
	if id != 0 {
		if i, ok := m.index[id]; ok {
			m.list[i] = item
			return
		}
		m.index[id] = len(m.list)
	}
	m.list = append(m.list, item)
}

func (m *merger[T]) items() []T {
	return m.list
}
