package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, name, role, created_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	err := r.prom.ObserveDB("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, role, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt,
		)
		return e
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_email", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE LOWER(email) = $1`,
			user.NormalizeEmail(email),
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var rows pgx.Rows

	err := r.prom.ObserveDB("users.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id ASC`)
		return e
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

// Update applies the non-nil changes and returns the stored row.
func (r *UsersRepo) Update(ctx context.Context, id string, ch user.Changes) (user.User, error) {
	if ch.Email != nil {
		e := user.NormalizeEmail(*ch.Email)
		ch.Email = &e
	}

	var u user.User

	err := r.prom.ObserveDB("users.update", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET name = COALESCE($2, name),
				email = COALESCE($3, email),
				password_hash = COALESCE($4, password_hash),
				role = COALESCE($5, role)
			WHERE id = $1
			RETURNING `+userColumns,
			id, ch.Name, ch.Email, ch.PasswordHash, ch.Role,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.prom.ObserveDB("users.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}
