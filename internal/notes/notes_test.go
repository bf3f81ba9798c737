package notes

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mzeman/cloudspend/internal/spend"
)

func testIdea() *spend.SavingsIdea {
	return &spend.SavingsIdea{
		ID:                  "7c2f8a9e-1234-5678-9abc-def012345678",
		Title:               "Rightsize EC2 fleet",
		Service:             "EC2",
		EstMonthlySavingUSD: decimal.RequireFromString("1250.00"),
		Confidence:          0.8,
		Owner:               "alice",
		Status:              spend.StatusApproved,
		Notes:               "Most instances idle below 10% CPU.",
	}
}

func TestRender(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	r.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	note, err := r.Render(testIdea())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for _, want := range []string{
		"# Rightsize EC2 fleet",
		"| Status | APPROVED |",
		"| Service | EC2 |",
		"| Owner | alice |",
		"| Confidence | 80% |",
		"| Est. monthly saving | $1250 |",
		"Most instances idle below 10% CPU.",
		"Generated 2024-06-01 12:00 UTC",
		"idea 7c2f8a9e",
	} {
		if !strings.Contains(note, want) {
			t.Errorf("Note missing %q:\n%s", want, note)
		}
	}
}

func TestRender_Defaults(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	idea := testIdea()
	idea.Owner = ""
	idea.Notes = ""

	note, err := r.Render(idea)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(note, "| Owner | unassigned |") {
		t.Errorf("Expected owner fallback:\n%s", note)
	}
	if !strings.Contains(note, "_No notes yet._") {
		t.Errorf("Expected notes fallback:\n%s", note)
	}
}
