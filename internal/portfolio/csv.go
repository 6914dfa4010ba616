package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	techstackColumn = "Techstack"
	linksColumn     = "Links"
)

// ErrMissingTechstack is returned when the dataset header has no Techstack column.
var ErrMissingTechstack = errors.New("portfolio: missing Techstack column")

// Entry is a single portfolio row.
type Entry struct {
	Techstack string
	Reference string
}

// ReadCSV loads entries from the CSV file at path.
func ReadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open portfolio: %w", err)
	}
	defer f.Close()

	entries, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read portfolio %s: %w", path, err)
	}
	return entries, nil
}

// ParseCSV reads entries from r. Rows keep their original order; blank
// techstack rows are kept here and skipped when the index is loaded.
func ParseCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingTechstack
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	techIdx, linkIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case strings.EqualFold(name, techstackColumn):
			techIdx = i
		case strings.EqualFold(name, linksColumn):
			linkIdx = i
		}
	}
	if techIdx < 0 {
		return nil, ErrMissingTechstack
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		entries = append(entries, Entry{
			Techstack: strings.TrimSpace(field(record, techIdx)),
			Reference: strings.TrimSpace(field(record, linkIdx)),
		})
	}

	return entries, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
