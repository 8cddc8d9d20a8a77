package logsheet

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
)

const (
	// MaxFileSize is the maximum accepted export size (100MB).
	MaxFileSize = 100 * 1024 * 1024

	// MaxLineLength is the maximum JSONL line length (1MB).
	MaxLineLength = 1024 * 1024
)

// Parser reads exported log sheets and works from disk.
//
// An export is either a JSON array or JSONL (one object per line). Malformed
// JSONL lines are logged and skipped; a malformed JSON array fails the file.
type Parser interface {
	// ParseLogSheets returns the usage records in path and the number of
	// skipped lines.
	ParseLogSheets(path string) ([]UsageRecord, int, error)

	// ParseWorks returns the catalogue works in path and the number of
	// skipped lines.
	ParseWorks(path string) ([]Work, int, error)
}

type fileParser struct {
	logger logger.Logger
}

// NewParser creates a Parser that reports skipped lines to log.
func NewParser(log logger.Logger) Parser {
	return &fileParser{logger: log}
}

// ParseLogSheets implements Parser.ParseLogSheets.
func (p *fileParser) ParseLogSheets(path string) ([]UsageRecord, int, error) {
	return parseFile[UsageRecord](p.logger, path)
}

// ParseWorks implements Parser.ParseWorks.
func (p *fileParser) ParseWorks(path string) ([]Work, int, error) {
	return parseFile[Work](p.logger, path)
}

// DecodeLogSheets decodes a JSON array or JSONL stream of log sheets.
func DecodeLogSheets(r io.Reader) ([]UsageRecord, []error, error) {
	return decode[UsageRecord](r)
}

// DecodeWorks decodes a JSON array or JSONL stream of works.
func DecodeWorks(r io.Reader) ([]Work, []error, error) {
	return decode[Work](r)
}

func parseFile[T any](log logger.Logger, path string) ([]T, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, 0, fmt.Errorf("%w: size=%d, max=%d", ErrFileTooLarge, info.Size(), MaxFileSize)
	}

	// #nosec G304: path comes from export discovery
	f, err := os.Open(path) // nolint:gosec
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn("failed to close export file", "path", path, "error", closeErr)
		}
	}()

	items, lineErrs, err := decode[T](f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	for _, lineErr := range lineErrs {
		log.Warn("skipping malformed line", "path", path, "error", lineErr)
	}

	return items, len(lineErrs), nil
}

func decode[T any](r io.Reader) ([]T, []error, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	first, err := peekNonSpace(br)
	if err == io.EOF {
		return []T{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if first == '[' {
		var items []T
		if err := json.NewDecoder(br).Decode(&items); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil, nil
	}

	return decodeLines[T](br)
}

func decodeLines[T any](r io.Reader) ([]T, []error, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)

	items := make([]T, 0, 64)
	var lineErrs []error

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			lineErrs = append(lineErrs, &ParseError{
				Line: lineNum,
				Data: string(line),
				Err:  fmt.Errorf("%w: %v", ErrMalformedJSON, err),
			})
			continue
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return items, lineErrs, fmt.Errorf("scanner error at line %d: %w", lineNum, err)
	}

	return items, lineErrs, nil
}

// peekNonSpace discards leading whitespace and returns the next byte
// without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
