package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medialens.io/internal/catalog"
)

// Catalog adapts the shared Store to catalog.Store.
type Catalog struct {
	db *sql.DB
}

var _ catalog.Store = (*Catalog)(nil)

// CatalogStore returns the outlet persistence view over this connection.
func (s *Store) CatalogStore() *Catalog { return &Catalog{db: s.db} }

const outletColumns = `id, kind, name, slug, coalesce(website, ''), active, created_at, updated_at`

func scanOutlet(scan func(...any) error) (*catalog.Outlet, error) {
	var (
		o       catalog.Outlet
		rawKind string
	)
	if err := scan(&o.ID, &rawKind, &o.Name, &o.Slug, &o.Website, &o.Active, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	kind, err := catalog.ParseKind(rawKind)
	if err != nil {
		return nil, err
	}
	o.Kind = kind
	return &o, nil
}

func (s *Catalog) Create(ctx context.Context, o *catalog.Outlet) error {
	_, err := s.db.ExecContext(ctx, `
		insert into outlets (id, kind, name, slug, website, active)
		values ($1, $2, $3, $4, nullif($5, ''), $6)
	`, o.ID, string(o.Kind), o.Name, o.Slug, o.Website, o.Active)
	if err != nil && isUniqueViolation(err) {
		return catalog.ErrConflict
	}
	return err
}

func (s *Catalog) Find(ctx context.Context, id string) (*catalog.Outlet, error) {
	row := s.db.QueryRowContext(ctx, `select `+outletColumns+` from outlets where id = $1`, id)
	o, err := scanOutlet(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	return o, err
}

func (s *Catalog) List(ctx context.Context, kind catalog.Kind) ([]catalog.Outlet, error) {
	query := `select ` + outletColumns + ` from outlets`
	var args []any
	if kind != "" {
		query += ` where kind = $1`
		args = append(args, string(kind))
	}
	query += ` order by name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Outlet
	for rows.Next() {
		o, err := scanOutlet(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Catalog) Update(ctx context.Context, id string, upd catalog.Update, slug string) (*catalog.Outlet, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Kind != nil {
		sets = append(sets, fmt.Sprintf("kind = $%d", idx))
		args = append(args, string(*upd.Kind))
		idx++
	}
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Website != nil {
		sets = append(sets, fmt.Sprintf("website = nullif($%d, '')", idx))
		args = append(args, *upd.Website)
		idx++
	}
	if upd.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", idx))
		args = append(args, *upd.Active)
		idx++
	}
	sets = append(sets, fmt.Sprintf("slug = $%d", idx))
	args = append(args, slug)
	idx++

	sets = append(sets, "updated_at = now()")
	query := fmt.Sprintf(`update outlets set %s where id = $%d`, strings.Join(sets, ", "), idx)
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, catalog.ErrConflict
		}
		return nil, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if aff == 0 {
		return nil, catalog.ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *Catalog) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from outlets where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Catalog) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists(select 1 from outlets where slug = $1 and id <> $2)
	`, slug, excludeID).Scan(&exists)
	return exists, err
}

func (s *Catalog) CountByKind(ctx context.Context) (map[catalog.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `select kind, count(*) from outlets group by kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[catalog.Kind]int, len(catalog.Kinds))
	for rows.Next() {
		var (
			rawKind string
			n       int
		)
		if err := rows.Scan(&rawKind, &n); err != nil {
			return nil, err
		}
		kind, err := catalog.ParseKind(rawKind)
		if err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
