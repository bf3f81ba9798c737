package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParseCSV reads header-keyed rows from CSV text. The first row supplies the
// column names, lower-cased and trimmed so later lookups are
// case-insensitive. Rows with fewer cells than the header simply leave the
// trailing columns unset.
//
// Returns the parsed rows plus a count of lines the CSV reader rejected
// outright (bad quoting); those still count toward the upload's row total.
// ErrEmptyInput is returned when the file holds no data rows at all.
func ParseCSV(data []byte) ([]RawRow, int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, ErrEmptyInput
	}
	if err != nil {
		return nil, 0, fmt.Errorf("ParseCSV: reading header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var rows []RawRow
	malformed := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A quoting error poisons only the affected line.
			malformed++
			continue
		}

		row := make(RawRow, len(columns))
		for i, value := range record {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			row[columns[i]] = strings.TrimSpace(value)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 && malformed == 0 {
		return nil, 0, ErrEmptyInput
	}

	return rows, malformed, nil
}
