// Package spend defines the canonical billing domain model and the
// repository contracts the ingestion pipeline and HTTP layer work against.
package spend

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Cloud identifies the billing provider an export came from.
type Cloud string

const (
	CloudAWS Cloud = "aws"
	CloudGCP Cloud = "gcp"
)

// Record is one canonical billing row, post-normalization and defaulting.
// Records are written once by the ingestion pipeline and never updated.
type Record struct {
	Date             civil.Date      `json:"date"`
	Cloud            Cloud           `json:"cloud"`
	AccountOrProject string          `json:"accountOrProject"`
	Service          string          `json:"service"`
	Team             string          `json:"team"`
	Env              string          `json:"env"`
	CostUSD          decimal.Decimal `json:"costUsd"`

	// DedupeKey is the raw-value fingerprint enforced UNIQUE by the store.
	DedupeKey string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// SummaryFilter scopes the aggregation queries to a date window plus
// optional equality filters. Empty filter strings mean "no restriction".
type SummaryFilter struct {
	Start civil.Date
	End   civil.Date
	Cloud string
	Team  string
	Env   string
}

// DailyPoint is one date bucket of the daily cost series.
type DailyPoint struct {
	Date      civil.Date      `json:"date"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// ServiceTotal is one service's summed cost within the filtered window.
type ServiceTotal struct {
	Service   string          `json:"service"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// Summary is the composed dashboard response.
type Summary struct {
	Daily          []DailyPoint   `json:"daily"`
	TopServices    []ServiceTotal `json:"topServices"`
	AvailableTeams []string       `json:"availableTeams"`
	AvailableEnvs  []string       `json:"availableEnvs"`
}

// IdeaStatus is the workflow state of a savings idea.
type IdeaStatus string

const (
	StatusProposed IdeaStatus = "PROPOSED"
	StatusApproved IdeaStatus = "APPROVED"
	StatusRealized IdeaStatus = "REALIZED"
)

// ValidStatus reports whether s is one of the known workflow states.
func ValidStatus(s IdeaStatus) bool {
	switch s {
	case StatusProposed, StatusApproved, StatusRealized:
		return true
	}
	return false
}

// SavingsIdea is a tracked cost-saving initiative. Status moves freely
// between states; no transition order is enforced.
type SavingsIdea struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Service             string          `json:"service"`
	EstMonthlySavingUSD decimal.Decimal `json:"estMonthlySavingUsd"`
	Confidence          float64         `json:"confidence"`
	Owner               string          `json:"owner"`
	Status              IdeaStatus      `json:"status"`
	Notes               string          `json:"notes"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Role controls which parts of the API a user may call.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Allows reports whether a caller holding r satisfies the required role.
// Editor implies viewer; admin implies both.
func (r Role) Allows(required Role) bool {
	switch required {
	case RoleViewer:
		return r == RoleViewer || r == RoleEditor || r == RoleAdmin
	case RoleEditor:
		return r == RoleEditor || r == RoleAdmin
	case RoleAdmin:
		return r == RoleAdmin
	}
	return false
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// User is a dashboard account. Passwords are stored as bcrypt hashes and
// never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
