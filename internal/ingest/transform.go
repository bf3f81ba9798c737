package ingest

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/mzeman/cloudspend/internal/spend"
)

// buildRecord applies type coercion and defaulting to a validated row. The
// dedupe key is computed from the raw values before defaults are filled in.
// A date or cost that cannot be coerced fails the row, not the upload.
func buildRecord(row NormalizedRow, cloud spend.Cloud) (*spend.Record, error) {
	date, err := parseUsageDate(row.Date)
	if err != nil {
		return nil, err
	}

	cost, err := decimal.NewFromString(row.Cost)
	if err != nil {
		return nil, fmt.Errorf("buildRecord: invalid cost %q: %w", row.Cost, err)
	}

	record := &spend.Record{
		Date:             date,
		Cloud:            cloud,
		AccountOrProject: row.AccountOrProject,
		Service:          row.Service,
		Team:             row.Team,
		Env:              row.Env,
		CostUSD:          cost,
		DedupeKey:        Fingerprint(row, cloud),
	}

	if record.AccountOrProject == "" {
		record.AccountOrProject = DefaultAccountOrProject
	}
	if record.Team == "" {
		record.Team = DefaultTeam
	}
	if record.Env == "" {
		record.Env = DefaultEnv
	}

	return record, nil
}

// parseUsageDate tries the accepted layouts in order and truncates the
// first match to a calendar date.
func parseUsageDate(raw string) (civil.Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("parseUsageDate: unrecognized date %q", raw)
}
