package ingest

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/mzeman/cloudspend/internal/spend"
)

func TestParseUsageDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    civil.Date
		wantErr bool
	}{
		{"plain date", "2024-01-01", civil.Date{Year: 2024, Month: 1, Day: 1}, false},
		{"rfc3339", "2024-01-01T00:00:00Z", civil.Date{Year: 2024, Month: 1, Day: 1}, false},
		{"datetime without zone", "2024-03-15T10:30:00", civil.Date{Year: 2024, Month: 3, Day: 15}, false},
		{"datetime with zone abbreviation", "2024-03-15 10:30:00 UTC", civil.Date{Year: 2024, Month: 3, Day: 15}, false},
		{"datetime with space", "2024-03-15 10:30:00", civil.Date{Year: 2024, Month: 3, Day: 15}, false},
		{"us style rejected", "01/15/2024", civil.Date{}, true},
		{"garbage rejected", "not-a-date", civil.Date{}, true},
		{"empty rejected", "", civil.Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUsageDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseUsageDate(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseUsageDate(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseUsageDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildRecord(t *testing.T) {
	row := NormalizedRow{
		Date:             "2024-01-01",
		AccountOrProject: "123456789012",
		Service:          "AmazonEC2",
		Team:             "platform",
		Env:              "staging",
		Cost:             "100.50",
	}

	rec, err := buildRecord(row, spend.CloudAWS)
	if err != nil {
		t.Fatalf("buildRecord failed: %v", err)
	}
	if rec.Date != (civil.Date{Year: 2024, Month: 1, Day: 1}) {
		t.Errorf("Unexpected date: %v", rec.Date)
	}
	if rec.Cloud != spend.CloudAWS {
		t.Errorf("Unexpected cloud: %q", rec.Cloud)
	}
	if rec.AccountOrProject != "123456789012" || rec.Service != "AmazonEC2" {
		t.Errorf("Unexpected identity fields: %+v", rec)
	}
	if rec.Team != "platform" || rec.Env != "staging" {
		t.Errorf("Unexpected dimensions: %+v", rec)
	}
	if !rec.CostUSD.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("Unexpected cost: %s", rec.CostUSD)
	}
}

func TestBuildRecord_AppliesDefaults(t *testing.T) {
	row := NormalizedRow{Date: "2024-01-01", Service: "EC2", Cost: "100.50"}

	rec, err := buildRecord(row, spend.CloudAWS)
	if err != nil {
		t.Fatalf("buildRecord failed: %v", err)
	}
	if rec.AccountOrProject != DefaultAccountOrProject {
		t.Errorf("Expected default account %q, got %q", DefaultAccountOrProject, rec.AccountOrProject)
	}
	if rec.Team != DefaultTeam {
		t.Errorf("Expected default team %q, got %q", DefaultTeam, rec.Team)
	}
	if rec.Env != DefaultEnv {
		t.Errorf("Expected default env %q, got %q", DefaultEnv, rec.Env)
	}
}

func TestBuildRecord_DedupeKeyIgnoresDefaults(t *testing.T) {
	// The key is computed from raw values, so a filled-in team must not
	// change identity relative to the same row without one.
	row := NormalizedRow{Date: "2024-01-01", Service: "EC2", Cost: "100.50"}

	rec, err := buildRecord(row, spend.CloudAWS)
	if err != nil {
		t.Fatalf("buildRecord failed: %v", err)
	}
	want := "2024-01-01|aws||EC2|||100.50"
	if rec.DedupeKey != want {
		t.Errorf("DedupeKey = %q, want %q", rec.DedupeKey, want)
	}
}

func TestBuildRecord_CoercionFailures(t *testing.T) {
	tests := []struct {
		name string
		row  NormalizedRow
	}{
		{"bad date", NormalizedRow{Date: "yesterday", Service: "EC2", Cost: "1.00"}},
		{"bad cost", NormalizedRow{Date: "2024-01-01", Service: "EC2", Cost: "one dollar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildRecord(tt.row, spend.CloudAWS); err == nil {
				t.Errorf("buildRecord(%+v) expected error", tt.row)
			}
		})
	}
}

func TestBuildRecord_NegativeCostAllowed(t *testing.T) {
	// Credits and refunds come through as negative line items.
	row := NormalizedRow{Date: "2024-01-01", Service: "EC2", Cost: "-5.25"}

	rec, err := buildRecord(row, spend.CloudAWS)
	if err != nil {
		t.Fatalf("buildRecord failed: %v", err)
	}
	if !rec.CostUSD.IsNegative() {
		t.Errorf("Expected negative cost, got %s", rec.CostUSD)
	}
}
