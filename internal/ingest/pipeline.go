package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mzeman/cloudspend/internal/spend"
)

// RecordStore is the narrow persistence surface the pipeline needs.
type RecordStore interface {
	// InsertSkipDuplicates persists records in one bulk operation, skipping
	// rows whose dedupe key is already stored, and returns how many were
	// actually inserted.
	InsertSkipDuplicates(ctx context.Context, records []*spend.Record) (int64, error)
}

// Pipeline ingests one billing CSV export at a time. It is safe for
// concurrent use; all per-upload state lives on the stack.
type Pipeline struct {
	store RecordStore
	log   zerolog.Logger
}

// NewPipeline creates a pipeline backed by the given store.
func NewPipeline(store RecordStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store: store,
		log:   log.With().Str("component", "ingest").Logger(),
	}
}

// Ingest runs the end-to-end upload: parse the CSV, infer the cloud from
// the filename, normalize and validate each row, drop in-batch duplicates,
// then persist the survivors in one bulk skip-on-duplicate insert.
//
// ErrEmptyInput and ErrNoValidRows are user-facing; anything else is a
// persistence failure the caller should treat as internal.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename string) (*Result, error) {
	rows, malformed, err := ParseCSV(data)
	if err != nil {
		return nil, err
	}

	cloud := InferCloud(filename)
	totalRows := len(rows) + malformed

	seen := make(map[string]struct{}, len(rows))
	records := make([]*spend.Record, 0, len(rows))

	for _, row := range rows {
		normalized := NormalizeRow(row)
		if !ValidRow(normalized) {
			continue
		}

		record, err := buildRecord(normalized, cloud)
		if err != nil {
			p.log.Debug().Err(err).Str("filename", filename).Msg("Dropping row that failed coercion")
			continue
		}

		if _, dup := seen[record.DedupeKey]; dup {
			continue
		}
		seen[record.DedupeKey] = struct{}{}

		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, ErrNoValidRows
	}

	inserted, err := p.store.InsertSkipDuplicates(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("Ingest: persisting %d records: %w", len(records), err)
	}

	result := &Result{
		Cloud:     cloud,
		TotalRows: totalRows,
		Inserted:  int(inserted),
		Skipped:   totalRows - int(inserted),
	}

	p.log.Info().
		Str("filename", filename).
		Str("cloud", string(cloud)).
		Int("total_rows", result.TotalRows).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Msg("Ingested billing export")

	return result, nil
}
