// Package ingest implements the billing CSV ingestion pipeline: parse,
// normalize, validate, deduplicate, persist.
package ingest

import "github.com/mzeman/cloudspend/internal/spend"

// RawRow is one parsed CSV row keyed by lower-cased, trimmed header name.
type RawRow map[string]string

// NormalizedRow holds the six raw values pulled out of a RawRow, before
// validation and before defaulting. Empty string means the source had no
// value under any accepted column name.
type NormalizedRow struct {
	Date             string
	AccountOrProject string
	Service          string
	Team             string
	Env              string
	Cost             string
}

// Result summarizes one completed upload.
//
// Skipped is always TotalRows minus Inserted: it folds together rows that
// failed validation or coercion, in-batch duplicates, and rows the store
// rejected as cross-batch duplicates. Callers cannot tell the causes apart.
type Result struct {
	Cloud     spend.Cloud `json:"cloud"`
	TotalRows int         `json:"totalRows"`
	Inserted  int         `json:"inserted"`
	Skipped   int         `json:"skipped"`
}
