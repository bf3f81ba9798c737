package ingest

import "time"

// Sentinel values substituted for absent optional fields. Substitution
// happens after the dedupe key is computed, so the key always reflects the
// raw source values.
const (
	DefaultAccountOrProject = "unknown"
	DefaultTeam             = "unassigned"
	DefaultEnv              = "prod"
)

// fingerprintSep joins the dedupe key components.
const fingerprintSep = "|"

// Accepted source column names per canonical field, in priority order.
// Both AWS-style and GCP-style headers are tried for every row; the first
// column present with a non-empty value wins.
var (
	dateColumns    = []string{"date", "usage_start_time", "usage_date"}
	accountColumns = []string{"account_id", "project_id", "billing_account_id"}
	serviceColumns = []string{"service", "service_description", "sku_description"}
	teamColumns    = []string{"team", "owner", "department"}
	envColumns     = []string{"env", "environment", "stage"}
	costColumns    = []string{"cost_usd", "cost", "cost_amount"}
)

// dateLayouts are the usage-date formats accepted at coercion, tried in
// order. AWS exports carry RFC3339 timestamps, GCP exports plain dates or
// "2006-01-02 15:04:05 UTC" style strings.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
}
