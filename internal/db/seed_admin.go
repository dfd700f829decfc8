package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/farmhub/internal/config"
	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/geocoder89/farmhub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAdminPasswordMissing = errors.New("ADMIN_PASSWORD must be set to seed the admin account")

// EnsureAdminUser creates the configured admin when no admin exists yet.
// It reports whether a row was inserted.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) (bool, error) {
	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE role = 'admin' LIMIT 1`).Scan(&dummy)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	if cfg.AdminPassword == "" {
		return false, ErrAdminPasswordMissing
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, err
	}

	u := user.User{
		ID:           uuid.NewString(),
		Email:        user.NormalizeEmail(cfg.AdminEmail),
		PasswordHash: hash,
		Name:         cfg.AdminName,
		Role:         user.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}

	// an existing non-admin account with the same email is promoted
	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT ((LOWER(email))) DO UPDATE SET role = 'admin', password_hash = EXCLUDED.password_hash`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt,
	)

	if err != nil {
		return false, err
	}

	return true, nil
}
