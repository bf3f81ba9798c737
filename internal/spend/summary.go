package spend

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"
)

// Lookback windows accepted by the summary endpoint, in days.
const (
	WindowWeek    = 7
	WindowMonth   = 30
	WindowQuarter = 90

	// TopServicesLimit caps the top-services rollup.
	TopServicesLimit = 5
)

// NormalizeWindow clamps a requested lookback to one of the supported
// windows. Anything unrecognized becomes the 30-day default.
func NormalizeWindow(days int) int {
	switch days {
	case WindowWeek, WindowMonth, WindowQuarter:
		return days
	default:
		return WindowMonth
	}
}

// NewSummaryFilter builds the filter for a lookback window ending today.
// Today is taken in UTC so the window does not shift with server locale.
func NewSummaryFilter(now time.Time, windowDays int, cloud, team, env string) SummaryFilter {
	days := NormalizeWindow(windowDays)
	today := civil.DateOf(now.UTC())
	return SummaryFilter{
		Start: today.AddDays(-days),
		End:   today,
		Cloud: cloud,
		Team:  team,
		Env:   env,
	}
}

// BuildSummary runs the four dashboard sub-queries concurrently and joins
// the results. The sub-queries are independent reads, so running them in
// parallel is purely a latency optimization; each goroutine writes a
// distinct field of the summary and the errgroup wait orders those writes
// before the return.
func BuildSummary(ctx context.Context, repo RecordRepository, filter SummaryFilter) (*Summary, error) {
	summary := &Summary{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		daily, err := repo.DailyTotals(gctx, filter)
		if err != nil {
			return fmt.Errorf("BuildSummary: daily totals: %w", err)
		}
		summary.Daily = daily
		return nil
	})

	g.Go(func() error {
		top, err := repo.TopServices(gctx, filter, TopServicesLimit)
		if err != nil {
			return fmt.Errorf("BuildSummary: top services: %w", err)
		}
		summary.TopServices = top
		return nil
	})

	g.Go(func() error {
		teams, err := repo.DistinctTeams(gctx, filter.Start, filter.End)
		if err != nil {
			return fmt.Errorf("BuildSummary: distinct teams: %w", err)
		}
		summary.AvailableTeams = teams
		return nil
	})

	g.Go(func() error {
		envs, err := repo.DistinctEnvs(gctx, filter.Start, filter.End)
		if err != nil {
			return fmt.Errorf("BuildSummary: distinct envs: %w", err)
		}
		summary.AvailableEnvs = envs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Empty slices serialize as [] rather than null.
	if summary.Daily == nil {
		summary.Daily = []DailyPoint{}
	}
	if summary.TopServices == nil {
		summary.TopServices = []ServiceTotal{}
	}
	if summary.AvailableTeams == nil {
		summary.AvailableTeams = []string{}
	}
	if summary.AvailableEnvs == nil {
		summary.AvailableEnvs = []string{}
	}

	return summary, nil
}
