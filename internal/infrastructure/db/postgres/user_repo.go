package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/user-service/internal/application/users"
	"github.com/baechuer/user-service/internal/domain"
)

// UserRepo is the PostgreSQL credential store. Email uniqueness is enforced by
// the unique index on LOWER(email); emails are stored normalized.
type UserRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Ping is used by the readiness check.
func (r *UserRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// ---------- reads ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = $1 LIMIT 1`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return ur.toDomain(), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return ur.toDomain(), nil
}

// List returns one page ordered by created_at, id together with the total
// number of matching rows.
func (r *UserRepo) List(ctx context.Context, f users.ListFilter) ([]domain.User, int, error) {
	f = f.Normalize()
	where, args := listWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	if total == 0 || f.Offset >= total {
		return []domain.User{}, total, nil
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at, id LIMIT $%d OFFSET $%d`, userColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	out := make([]domain.User, 0, f.Limit)
	for rows.Next() {
		ur, err := scanUser(rows)
		if err != nil {
			return nil, 0, domain.ErrDBUnavailable(err)
		}
		out = append(out, ur.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	return out, total, nil
}

func listWhere(f users.ListFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(format string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if f.Role != "" {
		add("role = $%d", string(f.Role))
	}
	if f.Active != nil {
		add("active = $%d", *f.Active)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(email ILIKE $%[1]d OR first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d)", "%"+escapeLike(s)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// ---------- writes ----------

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = domain.NormalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	q := `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING ` + userColumns

	ur, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role),
		u.EmailVerified, u.Active, nullTime(u.LastLoginAt), u.CreatedAt, u.UpdatedAt,
	))
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return ur.toDomain(), nil
}

// UpdateProfile sets only the columns named in p. Postgres evaluates every
// SET expression against the old row, so email_verified compares with the
// previous address.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, p users.ProfileChanges) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	var email *string
	if p.Email != nil {
		e := domain.NormalizeEmail(*p.Email)
		email = &e
	}
	var role *string
	if p.Role != nil {
		v := string(*p.Role)
		role = &v
	}

	q := `
UPDATE users
SET first_name = COALESCE($2, first_name),
    last_name = COALESCE($3, last_name),
    role = COALESCE($4, role),
    email_verified = CASE WHEN $5::text IS NULL OR $5::text = email THEN email_verified ELSE FALSE END,
    email = COALESCE($5, email),
    updated_at = $6
WHERE id = $1
RETURNING ` + userColumns

	ur, err := scanUser(r.db.QueryRowContext(ctx, q,
		id, nullString(p.FirstName), nullString(p.LastName), nullString(role), nullString(email), r.now(),
	))
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return ur.toDomain(), nil
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}

	q := `UPDATE users SET active = $2, updated_at = $3 WHERE id = $1 RETURNING ` + userColumns
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, id, active, r.now()))
	if err != nil {
		return domain.User{}, mapErr(err)
	}
	return ur.toDomain(), nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, id, `DELETE FROM users WHERE id = $1`)
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	if newHash == "" {
		return domain.ErrMissingField("password_hash")
	}
	return r.execOne(ctx, userID, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, newHash, r.now())
}

func (r *UserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	return r.execOne(ctx, userID, `UPDATE users SET email_verified = TRUE, updated_at = $2 WHERE id = $1`, r.now())
}

func (r *UserRepo) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	return r.execOne(ctx, userID, `UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`, at.UTC())
}

// execOne runs a statement keyed by id ($1) and reports user_not_found when
// no row was affected.
func (r *UserRepo) execOne(ctx context.Context, id, q string, args ...any) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrMissingField("user_id")
	}

	res, err := r.db.ExecContext(ctx, q, append([]any{id}, args...)...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// ---------- helpers ----------

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrUserNotFound()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrDuplicateEmail()
		case "22P02":
			// malformed uuid: no such row can exist
			return domain.ErrUserNotFound()
		}
	}
	return domain.ErrDBUnavailable(err)
}
