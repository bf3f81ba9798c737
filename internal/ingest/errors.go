package ingest

import "errors"

var (
	// ErrEmptyInput reports a CSV with no data rows at all.
	ErrEmptyInput = errors.New("uploaded CSV file is empty")

	// ErrNoValidRows reports that parsing succeeded but every row was
	// dropped by validation, coercion, or in-batch deduplication.
	ErrNoValidRows = errors.New("no valid rows found in CSV")
)
