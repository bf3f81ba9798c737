package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mzeman/cloudspend/internal/spend"
)

// SavingsIdeaRepository provides CRUD for savings ideas. It implements
// spend.IdeaRepository.
type SavingsIdeaRepository struct {
	db *DB
}

// NewSavingsIdeaRepository creates a repository on the shared handle.
func NewSavingsIdeaRepository(db *DB) *SavingsIdeaRepository {
	return &SavingsIdeaRepository{db: db}
}

const ideaColumns = `id, title, service, est_monthly_saving_usd, confidence, owner, status, notes, created_at, updated_at`

// InsertIdea stores a new idea.
func (r *SavingsIdeaRepository) InsertIdea(ctx context.Context, idea *spend.SavingsIdea) error {
	query := `
		INSERT INTO saving_ideas (` + ideaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	return r.db.withRetry(ctx, "InsertIdea", func() error {
		_, err := r.db.sql.ExecContext(ctx, query,
			idea.ID,
			idea.Title,
			idea.Service,
			idea.EstMonthlySavingUSD,
			idea.Confidence,
			idea.Owner,
			string(idea.Status),
			idea.Notes,
			idea.CreatedAt,
			idea.UpdatedAt,
		)
		return classify("InsertIdea: inserting idea", err)
	})
}

// GetIdea fetches one idea by ID, or spend.ErrNotFound.
func (r *SavingsIdeaRepository) GetIdea(ctx context.Context, id string) (*spend.SavingsIdea, error) {
	query := `SELECT ` + ideaColumns + ` FROM saving_ideas WHERE id = $1`

	var idea spend.SavingsIdea
	err := r.db.withRetry(ctx, "GetIdea", func() error {
		err := r.db.sql.QueryRowContext(ctx, query, id).Scan(
			&idea.ID,
			&idea.Title,
			&idea.Service,
			&idea.EstMonthlySavingUSD,
			&idea.Confidence,
			&idea.Owner,
			&idea.Status,
			&idea.Notes,
			&idea.CreatedAt,
			&idea.UpdatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("GetIdea: idea %s: %w", id, spend.ErrNotFound)
		}
		return classify("GetIdea: fetching idea", err)
	})
	if err != nil {
		return nil, err
	}

	return &idea, nil
}

// ListIdeas returns all ideas, newest first.
func (r *SavingsIdeaRepository) ListIdeas(ctx context.Context) ([]*spend.SavingsIdea, error) {
	query := `SELECT ` + ideaColumns + ` FROM saving_ideas ORDER BY created_at DESC`

	var ideas []*spend.SavingsIdea
	err := r.db.withRetry(ctx, "ListIdeas", func() error {
		ideas = nil

		rows, err := r.db.sql.QueryContext(ctx, query)
		if err != nil {
			return classify("ListIdeas: querying ideas", err)
		}
		defer rows.Close()

		for rows.Next() {
			var idea spend.SavingsIdea
			if err := rows.Scan(
				&idea.ID,
				&idea.Title,
				&idea.Service,
				&idea.EstMonthlySavingUSD,
				&idea.Confidence,
				&idea.Owner,
				&idea.Status,
				&idea.Notes,
				&idea.CreatedAt,
				&idea.UpdatedAt,
			); err != nil {
				return classify("ListIdeas: scanning row", err)
			}
			ideas = append(ideas, &idea)
		}
		return classify("ListIdeas: iterating rows", rows.Err())
	})
	if err != nil {
		return nil, err
	}

	return ideas, nil
}

// UpdateIdea overwrites an existing idea's mutable fields, or returns
// spend.ErrNotFound. Any status may replace any other; no transition order
// is enforced.
func (r *SavingsIdeaRepository) UpdateIdea(ctx context.Context, idea *spend.SavingsIdea) error {
	query := `
		UPDATE saving_ideas
		SET title = $2, service = $3, est_monthly_saving_usd = $4,
			confidence = $5, owner = $6, status = $7, notes = $8, updated_at = $9
		WHERE id = $1`

	return r.db.withRetry(ctx, "UpdateIdea", func() error {
		res, err := r.db.sql.ExecContext(ctx, query,
			idea.ID,
			idea.Title,
			idea.Service,
			idea.EstMonthlySavingUSD,
			idea.Confidence,
			idea.Owner,
			string(idea.Status),
			idea.Notes,
			idea.UpdatedAt,
		)
		if err != nil {
			return classify("UpdateIdea: updating idea", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return classify("UpdateIdea: counting updated rows", err)
		}
		if affected == 0 {
			return fmt.Errorf("UpdateIdea: idea %s: %w", idea.ID, spend.ErrNotFound)
		}
		return nil
	})
}

// DeleteIdea removes an idea, or returns spend.ErrNotFound.
func (r *SavingsIdeaRepository) DeleteIdea(ctx context.Context, id string) error {
	return r.db.withRetry(ctx, "DeleteIdea", func() error {
		res, err := r.db.sql.ExecContext(ctx, `DELETE FROM saving_ideas WHERE id = $1`, id)
		if err != nil {
			return classify("DeleteIdea: deleting idea", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return classify("DeleteIdea: counting deleted rows", err)
		}
		if affected == 0 {
			return fmt.Errorf("DeleteIdea: idea %s: %w", id, spend.ErrNotFound)
		}
		return nil
	})
}
