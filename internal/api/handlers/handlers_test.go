package handlers

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/mzeman/cloudspend/internal/notes"
	"github.com/mzeman/cloudspend/internal/spend"
)

// MockRecordRepository is a mock implementation of spend.RecordRepository.
type MockRecordRepository struct {
	InsertSkipDuplicatesFunc func(ctx context.Context, records []*spend.Record) (int64, error)
	DailyTotalsFunc          func(ctx context.Context, filter spend.SummaryFilter) ([]spend.DailyPoint, error)
	TopServicesFunc          func(ctx context.Context, filter spend.SummaryFilter, limit int) ([]spend.ServiceTotal, error)
	DistinctTeamsFunc        func(ctx context.Context, start, end civil.Date) ([]string, error)
	DistinctEnvsFunc         func(ctx context.Context, start, end civil.Date) ([]string, error)
}

func (m *MockRecordRepository) InsertSkipDuplicates(ctx context.Context, records []*spend.Record) (int64, error) {
	if m.InsertSkipDuplicatesFunc != nil {
		return m.InsertSkipDuplicatesFunc(ctx, records)
	}
	return int64(len(records)), nil
}

func (m *MockRecordRepository) DailyTotals(ctx context.Context, filter spend.SummaryFilter) ([]spend.DailyPoint, error) {
	if m.DailyTotalsFunc != nil {
		return m.DailyTotalsFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockRecordRepository) TopServices(ctx context.Context, filter spend.SummaryFilter, limit int) ([]spend.ServiceTotal, error) {
	if m.TopServicesFunc != nil {
		return m.TopServicesFunc(ctx, filter, limit)
	}
	return nil, nil
}

func (m *MockRecordRepository) DistinctTeams(ctx context.Context, start, end civil.Date) ([]string, error) {
	if m.DistinctTeamsFunc != nil {
		return m.DistinctTeamsFunc(ctx, start, end)
	}
	return nil, nil
}

func (m *MockRecordRepository) DistinctEnvs(ctx context.Context, start, end civil.Date) ([]string, error) {
	if m.DistinctEnvsFunc != nil {
		return m.DistinctEnvsFunc(ctx, start, end)
	}
	return nil, nil
}

// MockIdeaRepository is a mock implementation of spend.IdeaRepository
// backed by a map.
type MockIdeaRepository struct {
	InsertIdeaFunc func(ctx context.Context, idea *spend.SavingsIdea) error
	GetIdeaFunc    func(ctx context.Context, id string) (*spend.SavingsIdea, error)
	ListIdeasFunc  func(ctx context.Context) ([]*spend.SavingsIdea, error)
	UpdateIdeaFunc func(ctx context.Context, idea *spend.SavingsIdea) error
	DeleteIdeaFunc func(ctx context.Context, id string) error

	ideas map[string]*spend.SavingsIdea
}

func NewMockIdeaRepository() *MockIdeaRepository {
	return &MockIdeaRepository{ideas: make(map[string]*spend.SavingsIdea)}
}

func (m *MockIdeaRepository) InsertIdea(ctx context.Context, idea *spend.SavingsIdea) error {
	if m.InsertIdeaFunc != nil {
		return m.InsertIdeaFunc(ctx, idea)
	}
	m.ideas[idea.ID] = idea
	return nil
}

func (m *MockIdeaRepository) GetIdea(ctx context.Context, id string) (*spend.SavingsIdea, error) {
	if m.GetIdeaFunc != nil {
		return m.GetIdeaFunc(ctx, id)
	}
	idea, ok := m.ideas[id]
	if !ok {
		return nil, spend.ErrNotFound
	}
	copied := *idea
	return &copied, nil
}

func (m *MockIdeaRepository) ListIdeas(ctx context.Context) ([]*spend.SavingsIdea, error) {
	if m.ListIdeasFunc != nil {
		return m.ListIdeasFunc(ctx)
	}
	var out []*spend.SavingsIdea
	for _, idea := range m.ideas {
		copied := *idea
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockIdeaRepository) UpdateIdea(ctx context.Context, idea *spend.SavingsIdea) error {
	if m.UpdateIdeaFunc != nil {
		return m.UpdateIdeaFunc(ctx, idea)
	}
	if _, ok := m.ideas[idea.ID]; !ok {
		return spend.ErrNotFound
	}
	copied := *idea
	m.ideas[idea.ID] = &copied
	return nil
}

func (m *MockIdeaRepository) DeleteIdea(ctx context.Context, id string) error {
	if m.DeleteIdeaFunc != nil {
		return m.DeleteIdeaFunc(ctx, id)
	}
	if _, ok := m.ideas[id]; !ok {
		return spend.ErrNotFound
	}
	delete(m.ideas, id)
	return nil
}

func testRenderer(t *testing.T) *notes.Renderer {
	t.Helper()
	r, err := notes.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	return r
}
