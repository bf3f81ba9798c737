package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/mzeman/cloudspend/internal/spend"
)

// insertChunkSize bounds one multi-VALUES statement. Eight parameters per
// row keeps a full chunk well under the driver's placeholder limit.
const insertChunkSize = 500

// SpendRecordRepository persists billing records and answers the dashboard
// rollup queries. It implements spend.RecordRepository.
type SpendRecordRepository struct {
	db *DB
}

// NewSpendRecordRepository creates a repository on the shared handle.
func NewSpendRecordRepository(db *DB) *SpendRecordRepository {
	return &SpendRecordRepository{db: db}
}

// InsertSkipDuplicates writes records in one transaction using
// INSERT ... ON CONFLICT (dedupe_key) DO NOTHING, and returns how many rows
// were actually inserted. Rows whose dedupe key is already stored are
// silently skipped, which is what makes re-uploads idempotent. The whole
// transaction is retried on connection failures; ON CONFLICT guarantees a
// retried attempt cannot double-count.
func (r *SpendRecordRepository) InsertSkipDuplicates(ctx context.Context, records []*spend.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.db.withRetry(ctx, "InsertSkipDuplicates", func() error {
		inserted = 0

		tx, err := r.db.sql.BeginTx(ctx, nil)
		if err != nil {
			return classify("InsertSkipDuplicates: beginning transaction", err)
		}
		defer tx.Rollback()

		for start := 0; start < len(records); start += insertChunkSize {
			end := start + insertChunkSize
			if end > len(records) {
				end = len(records)
			}
			chunk := records[start:end]

			query, args := buildInsertChunk(chunk)
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return classify("InsertSkipDuplicates: inserting chunk", err)
			}

			affected, err := res.RowsAffected()
			if err != nil {
				return classify("InsertSkipDuplicates: counting inserted rows", err)
			}
			inserted += affected
		}

		if err := tx.Commit(); err != nil {
			return classify("InsertSkipDuplicates: committing transaction", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// buildInsertChunk renders one multi-VALUES insert statement for a chunk of
// records, with ON CONFLICT skip semantics on the dedupe key.
func buildInsertChunk(records []*spend.Record) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO spend_records
		(date, cloud, account_or_project, service, team, env, cost_usd, dedupe_key)
		VALUES `)

	args := make([]interface{}, 0, len(records)*8)
	for i, rec := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args,
			rec.Date.In(time.UTC),
			string(rec.Cloud),
			rec.AccountOrProject,
			rec.Service,
			rec.Team,
			rec.Env,
			rec.CostUSD,
			rec.DedupeKey,
		)
	}

	sb.WriteString(" ON CONFLICT (dedupe_key) DO NOTHING")
	return sb.String(), args
}

// summaryWhere builds the WHERE clause for the rollup queries from the
// filter's date window plus whichever equality filters are set.
func summaryWhere(filter spend.SummaryFilter) (string, []interface{}) {
	clauses := []string{"date >= $1", "date <= $2"}
	args := []interface{}{filter.Start.In(time.UTC), filter.End.In(time.UTC)}

	if filter.Cloud != "" {
		args = append(args, filter.Cloud)
		clauses = append(clauses, fmt.Sprintf("cloud = $%d", len(args)))
	}
	if filter.Team != "" {
		args = append(args, filter.Team)
		clauses = append(clauses, fmt.Sprintf("team = $%d", len(args)))
	}
	if filter.Env != "" {
		args = append(args, filter.Env)
		clauses = append(clauses, fmt.Sprintf("env = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// DailyTotals sums cost per usage date inside the filter window, ordered by
// date ascending. Dates with no spend are simply absent from the series.
func (r *SpendRecordRepository) DailyTotals(ctx context.Context, filter spend.SummaryFilter) ([]spend.DailyPoint, error) {
	where, args := summaryWhere(filter)
	query := fmt.Sprintf(`
		SELECT date, SUM(cost_usd)
		FROM spend_records
		WHERE %s
		GROUP BY date
		ORDER BY date ASC`, where)

	var points []spend.DailyPoint
	err := r.db.withRetry(ctx, "DailyTotals", func() error {
		points = nil

		rows, err := r.db.sql.QueryContext(ctx, query, args...)
		if err != nil {
			return classify("DailyTotals: querying daily totals", err)
		}
		defer rows.Close()

		for rows.Next() {
			var day time.Time
			var total decimal.Decimal
			if err := rows.Scan(&day, &total); err != nil {
				return classify("DailyTotals: scanning row", err)
			}
			points = append(points, spend.DailyPoint{
				Date:      civil.DateOf(day),
				TotalCost: total,
			})
		}
		return classify("DailyTotals: iterating rows", rows.Err())
	})
	if err != nil {
		return nil, err
	}

	return points, nil
}

// TopServices sums cost per service inside the filter window, ordered by
// summed cost descending, truncated to limit entries. Equal sums tie-break
// in whatever order the database returns them.
func (r *SpendRecordRepository) TopServices(ctx context.Context, filter spend.SummaryFilter, limit int) ([]spend.ServiceTotal, error) {
	where, args := summaryWhere(filter)
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT service, SUM(cost_usd) AS total
		FROM spend_records
		WHERE %s
		GROUP BY service
		ORDER BY total DESC
		LIMIT $%d`, where, len(args))

	var totals []spend.ServiceTotal
	err := r.db.withRetry(ctx, "TopServices", func() error {
		totals = nil

		rows, err := r.db.sql.QueryContext(ctx, query, args...)
		if err != nil {
			return classify("TopServices: querying service totals", err)
		}
		defer rows.Close()

		for rows.Next() {
			var st spend.ServiceTotal
			if err := rows.Scan(&st.Service, &st.TotalCost); err != nil {
				return classify("TopServices: scanning row", err)
			}
			totals = append(totals, st)
		}
		return classify("TopServices: iterating rows", rows.Err())
	})
	if err != nil {
		return nil, err
	}

	return totals, nil
}

// DistinctTeams lists the distinct non-empty team tags seen inside the date
// window, sorted lexicographically. Only the window applies here: the
// dashboard's filter dropdowns must always show every dimension present in
// the period, not just the ones matching the current selection.
func (r *SpendRecordRepository) DistinctTeams(ctx context.Context, start, end civil.Date) ([]string, error) {
	return r.distinctDimension(ctx, "DistinctTeams", "team", start, end)
}

// DistinctEnvs lists the distinct non-empty env tags seen inside the date
// window, sorted lexicographically. Same scoping rule as DistinctTeams.
func (r *SpendRecordRepository) DistinctEnvs(ctx context.Context, start, end civil.Date) ([]string, error) {
	return r.distinctDimension(ctx, "DistinctEnvs", "env", start, end)
}

func (r *SpendRecordRepository) distinctDimension(ctx context.Context, op, column string, start, end civil.Date) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s
		FROM spend_records
		WHERE date >= $1 AND date <= $2 AND %s <> ''
		ORDER BY %s ASC`, column, column, column)

	var values []string
	err := r.db.withRetry(ctx, op, func() error {
		values = nil

		rows, err := r.db.sql.QueryContext(ctx, query, start.In(time.UTC), end.In(time.UTC))
		if err != nil {
			return classify(op+": querying distinct values", err)
		}
		defer rows.Close()

		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return classify(op+": scanning row", err)
			}
			values = append(values, v)
		}
		return classify(op+": iterating rows", rows.Err())
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}
