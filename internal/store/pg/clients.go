package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medialens.io/internal/clients"
)

// Clients adapts the shared Store to clients.Store.
type Clients struct {
	db *sql.DB
}

var _ clients.Store = (*Clients)(nil)

// ClientStore returns the client persistence view over this connection.
func (s *Store) ClientStore() *Clients { return &Clients{db: s.db} }

const clientColumns = `id, name, coalesce(contact_email, ''), active, created_at, updated_at`

func (s *Clients) Create(ctx context.Context, c *clients.Client) error {
	_, err := s.db.ExecContext(ctx, `
		insert into clients (id, name, contact_email, active)
		values ($1, $2, nullif($3, ''), $4)
	`, c.ID, c.Name, c.ContactEmail, c.Active)
	if err != nil && isUniqueViolation(err) {
		return clients.ErrConflict
	}
	return err
}

func (s *Clients) Find(ctx context.Context, id string) (*clients.Client, error) {
	var c clients.Client
	err := s.db.QueryRowContext(ctx, `select `+clientColumns+` from clients where id = $1`, id).
		Scan(&c.ID, &c.Name, &c.ContactEmail, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, clients.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Clients) List(ctx context.Context) ([]clients.Client, error) {
	rows, err := s.db.QueryContext(ctx, `select `+clientColumns+` from clients order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []clients.Client
	for rows.Next() {
		var c clients.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.ContactEmail, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Clients) Update(ctx context.Context, id string, upd clients.Update) (*clients.Client, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.ContactEmail != nil {
		sets = append(sets, fmt.Sprintf("contact_email = nullif($%d, '')", idx))
		args = append(args, *upd.ContactEmail)
		idx++
	}
	if upd.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", idx))
		args = append(args, *upd.Active)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update clients set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, clients.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *Clients) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from clients where id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return clients.ErrInUse
		}
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return clients.ErrNotFound
	}
	return nil
}

func (s *Clients) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from clients`).Scan(&n)
	return n, err
}
