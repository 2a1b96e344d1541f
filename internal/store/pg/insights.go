package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medialens.io/internal/insights"
)

// Insights adapts the shared Store to insights.Store.
type Insights struct {
	db *sql.DB
}

var _ insights.Store = (*Insights)(nil)

// InsightStore returns the insight persistence view over this connection.
func (s *Store) InsightStore() *Insights { return &Insights{db: s.db} }

const insightColumns = `id, title, url, coalesce(outlet_id, ''), coalesce(client_id, ''), coalesce(summary, ''), published_at, status, coalesce(triaged_by, ''), triaged_at, created_at`

func scanInsight(scan func(...any) error) (*insights.Insight, error) {
	var (
		in        insights.Insight
		rawStatus string
		triagedAt sql.NullTime
	)
	if err := scan(&in.ID, &in.Title, &in.URL, &in.OutletID, &in.ClientID,
		&in.Summary, &in.PublishedAt, &rawStatus, &in.TriagedBy, &triagedAt, &in.CreatedAt); err != nil {
		return nil, err
	}
	status, err := insights.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	in.Status = status
	if triagedAt.Valid {
		t := triagedAt.Time
		in.TriagedAt = &t
	}
	return &in, nil
}

func (s *Insights) Create(ctx context.Context, in *insights.Insight) error {
	_, err := s.db.ExecContext(ctx, `
		insert into insights (id, title, url, outlet_id, client_id, summary, published_at, status)
		values ($1, $2, $3, nullif($4, ''), nullif($5, ''), nullif($6, ''), $7, $8)
	`, in.ID, in.Title, in.URL, in.OutletID, in.ClientID, in.Summary, in.PublishedAt, string(in.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return insights.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown outlet or client", insights.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *Insights) Find(ctx context.Context, id string) (*insights.Insight, error) {
	row := s.db.QueryRowContext(ctx, `select `+insightColumns+` from insights where id = $1`, id)
	in, err := scanInsight(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, insights.ErrNotFound
	}
	return in, err
}

func (s *Insights) FindByURL(ctx context.Context, url string) (*insights.Insight, error) {
	row := s.db.QueryRowContext(ctx, `select `+insightColumns+` from insights where url = $1`, url)
	in, err := scanInsight(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, insights.ErrNotFound
	}
	return in, err
}

func (s *Insights) List(ctx context.Context, filter insights.ListFilter) ([]insights.Insight, error) {
	query := `select ` + insightColumns + ` from insights where 1=1`
	var args []any
	idx := 1
	if filter.Status != "" {
		query += fmt.Sprintf(" and status = $%d", idx)
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.ClientID != "" {
		query += fmt.Sprintf(" and client_id = $%d", idx)
		args = append(args, filter.ClientID)
		idx++
	}
	if filter.Before != "" {
		query += fmt.Sprintf(" and id < $%d", idx)
		args = append(args, filter.Before)
		idx++
	}
	query += fmt.Sprintf(" order by id desc limit $%d", idx)
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []insights.Insight
	for rows.Next() {
		in, err := scanInsight(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Insights) SetStatus(ctx context.Context, id string, status insights.Status, triagedBy string, at time.Time) (*insights.Insight, error) {
	res, err := s.db.ExecContext(ctx, `
		update insights
		set status = $2, triaged_by = nullif($3, ''), triaged_at = $4
		where id = $1
	`, id, string(status), triagedBy, at)
	if err != nil {
		return nil, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if aff == 0 {
		return nil, insights.ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *Insights) Stats(ctx context.Context, dayStart time.Time) (insights.Stats, error) {
	st := insights.Stats{ByClient: make(map[string]int)}
	err := s.db.QueryRowContext(ctx, `
		select
			count(*) filter (where status = 'pending'),
			count(*) filter (where status = 'approved'),
			count(*) filter (where status = 'dismissed'),
			count(*) filter (where created_at >= $1)
		from insights
	`, dayStart).Scan(&st.Pending, &st.Approved, &st.Dismissed, &st.Today)
	if err != nil {
		return insights.Stats{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select client_id, count(*)
		from insights
		where client_id is not null
		group by client_id
	`)
	if err != nil {
		return insights.Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			clientID string
			n        int
		)
		if err := rows.Scan(&clientID, &n); err != nil {
			return insights.Stats{}, err
		}
		st.ByClient[clientID] = n
	}
	if err := rows.Err(); err != nil {
		return insights.Stats{}, err
	}
	return st, nil
}
