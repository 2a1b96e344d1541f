package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"medialens.io/internal/auth"
)

// Auth adapts the shared Store to auth.Store.
type Auth struct {
	users  *authUsers
	tokens *authTokens
}

var _ auth.Store = (*Auth)(nil)

// AuthStore returns the auth persistence view over this connection.
func (s *Store) AuthStore() *Auth {
	return &Auth{users: &authUsers{db: s.db}, tokens: &authTokens{db: s.db}}
}

func (a *Auth) Users() auth.UserStore                 { return a.users }
func (a *Auth) RefreshTokens() auth.RefreshTokenStore { return a.tokens }

type authUsers struct {
	db *sql.DB
}

const userColumns = `id, email, name, password_hash, role, active, coalesce(client_id, ''), created_at, updated_at`

func scanUser(scan func(...any) error) (*auth.User, error) {
	var (
		u       auth.User
		rawRole string
	)
	if err := scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &rawRole, &u.Active, &u.ClientID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	role, err := auth.RoleFromStorage(rawRole)
	if err != nil {
		return nil, err
	}
	u.Role = role
	return &u, nil
}

func (s *authUsers) Create(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, email, name, password_hash, role, active, client_id)
		values ($1, $2, $3, $4, $5, $6, nullif($7, ''))
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Role.Storage(), u.Active, u.ClientID)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown client", auth.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *authUsers) Find(ctx context.Context, id string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id)
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return u, err
}

func (s *authUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email) = lower($1)`, email)
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return u, err
}

func (s *authUsers) List(ctx context.Context) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *authUsers) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.PasswordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", idx))
		args = append(args, *upd.PasswordHash)
		idx++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", idx))
		args = append(args, upd.Role.Storage())
		idx++
	}
	if upd.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", idx))
		args = append(args, *upd.Active)
		idx++
	}
	if upd.ClientID != nil {
		sets = append(sets, fmt.Sprintf("client_id = nullif($%d, '')", idx))
		args = append(args, *upd.ClientID)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, auth.ErrConflict
			}
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, auth.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

type authTokens struct {
	db *sql.DB
}

func (s *authTokens) Create(ctx context.Context, tok *auth.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens (id, user_id, token_hash, expires_at)
		values ($1, $2, $3, $4)
	`, tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt)
	if err != nil && isUniqueViolation(err) {
		return auth.ErrConflict
	}
	return err
}

func (s *authTokens) Find(ctx context.Context, id string) (*auth.RefreshToken, error) {
	var tok auth.RefreshToken
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, token_hash, expires_at, created_at, revoked
		from refresh_tokens
		where id = $1
	`, id).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.CreatedAt, &tok.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *authTokens) MarkRevoked(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update refresh_tokens set revoked = true where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *authTokens) MarkRevokedByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `update refresh_tokens set revoked = true where user_id = $1`, userID)
	return err
}

func (s *authTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from refresh_tokens where expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
