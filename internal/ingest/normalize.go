package ingest

import (
	"strings"

	"github.com/mzeman/cloudspend/internal/spend"
)

// NormalizeRow maps provider-specific column names onto the canonical field
// set. Pure function; nothing is rejected here, that is ValidRow's job.
func NormalizeRow(row RawRow) NormalizedRow {
	return NormalizedRow{
		Date:             firstNonEmpty(row, dateColumns),
		AccountOrProject: firstNonEmpty(row, accountColumns),
		Service:          firstNonEmpty(row, serviceColumns),
		Team:             firstNonEmpty(row, teamColumns),
		Env:              firstNonEmpty(row, envColumns),
		Cost:             firstNonEmpty(row, costColumns),
	}
}

func firstNonEmpty(row RawRow, candidates []string) string {
	for _, name := range candidates {
		if v := row[name]; v != "" {
			return v
		}
	}
	return ""
}

// ValidRow reports whether a normalized row carries the three mandatory
// fields. Date parseability and cost numeric-ness are deliberately not
// checked here; malformed values fail later at coercion.
func ValidRow(row NormalizedRow) bool {
	return row.Date != "" && row.Service != "" && row.Cost != ""
}

// InferCloud decides the provider for a whole upload from its filename.
// The match is case-insensitive; "gcp" anywhere wins, otherwise AWS is the
// default. The result applies uniformly to every row in the file.
func InferCloud(filename string) spend.Cloud {
	if strings.Contains(strings.ToLower(filename), "gcp") {
		return spend.CloudGCP
	}
	return spend.CloudAWS
}

// Fingerprint derives the dedupe key for one row by joining the raw
// pre-default values with the file-level cloud, in fixed field order. Two
// rows with identical raw components collide regardless of how defaulting
// would later fill the optional fields.
func Fingerprint(row NormalizedRow, cloud spend.Cloud) string {
	return strings.Join([]string{
		row.Date,
		string(cloud),
		row.AccountOrProject,
		row.Service,
		row.Team,
		row.Env,
		row.Cost,
	}, fingerprintSep)
}
