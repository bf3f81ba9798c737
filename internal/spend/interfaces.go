package spend

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"
)

// ErrNotFound is returned by repositories when a requested entity does not
// exist. Callers branch on it with errors.Is.
var ErrNotFound = errors.New("not found")

// RecordRepository provides persistence for billing records and the
// read-only rollups behind the dashboard.
type RecordRepository interface {
	// InsertSkipDuplicates persists records in one bulk operation, skipping
	// rows whose dedupe key is already stored. Returns how many rows were
	// actually inserted, which may be fewer than len(records).
	InsertSkipDuplicates(ctx context.Context, records []*Record) (int64, error)

	// DailyTotals sums cost per date inside the filter window, ordered by
	// date ascending. Dates with no spend are absent, not zero.
	DailyTotals(ctx context.Context, filter SummaryFilter) ([]DailyPoint, error)

	// TopServices sums cost per service inside the filter window, ordered by
	// summed cost descending, truncated to limit entries.
	TopServices(ctx context.Context, filter SummaryFilter, limit int) ([]ServiceTotal, error)

	// DistinctTeams lists the distinct non-empty team tags present in the
	// date window, sorted lexicographically. Only the window applies; the
	// cloud/team/env filters deliberately do not.
	DistinctTeams(ctx context.Context, start, end civil.Date) ([]string, error)

	// DistinctEnvs lists the distinct non-empty env tags present in the date
	// window, sorted lexicographically. Same scoping rule as DistinctTeams.
	DistinctEnvs(ctx context.Context, start, end civil.Date) ([]string, error)
}

// IdeaRepository provides CRUD for savings ideas.
type IdeaRepository interface {
	// InsertIdea stores a new idea.
	InsertIdea(ctx context.Context, idea *SavingsIdea) error

	// GetIdea fetches one idea by ID, or ErrNotFound.
	GetIdea(ctx context.Context, id string) (*SavingsIdea, error)

	// ListIdeas returns all ideas, newest first.
	ListIdeas(ctx context.Context) ([]*SavingsIdea, error)

	// UpdateIdea overwrites an existing idea's mutable fields, or ErrNotFound.
	UpdateIdea(ctx context.Context, idea *SavingsIdea) error

	// DeleteIdea removes an idea, or ErrNotFound.
	DeleteIdea(ctx context.Context, id string) error
}

// UserRepository provides account lookup for authentication.
type UserRepository interface {
	// GetUserByUsername fetches one user, or ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// InsertUser stores a new user. Usernames are unique.
	InsertUser(ctx context.Context, user *User) error
}
