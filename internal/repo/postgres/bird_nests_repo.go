package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/birdnest"
	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BirdNestsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBirdNestsRepo(pool *pgxpool.Pool, prom *observability.Prom) *BirdNestsRepo {
	return &BirdNestsRepo{pool: pool, prom: prom}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *BirdNestsRepo) list(ctx context.Context, q querier, op, ownerID string) ([]birdnest.Nest, error) {
	var rows pgx.Rows

	err := r.prom.ObserveDB(op, func() error {
		var e error
		rows, e = q.Query(ctx,
			`SELECT id, name, hatch_date, notes, position
			FROM bird_nests
			WHERE owner_id = $1
			ORDER BY position ASC`,
			ownerID,
		)
		return e
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]birdnest.Nest, 0)
	for rows.Next() {
		var (
			n    birdnest.Nest
			date pgtype.Date
		)
		if err := rows.Scan(&n.ID, &n.Name, &date, &n.Notes, &n.Position); err != nil {
			return nil, err
		}
		n.OwnerID = ownerID
		n.HatchDate = fromPgDate(date)
		out = append(out, n)
	}

	return out, rows.Err()
}

func (r *BirdNestsRepo) List(ctx context.Context, ownerID string) ([]birdnest.Nest, error) {
	return r.list(ctx, r.pool, "bird_nests.list", ownerID)
}

// ReplaceAll swaps the owner's whole collection for in. A non-empty
// expectedVersion must match the stored set or birdnest.ErrVersionMismatch is
// returned and nothing changes.
func (r *BirdNestsRepo) ReplaceAll(ctx context.Context, ownerID string, in []birdnest.Input, expectedVersion string) ([]birdnest.Nest, error) {
	nests, err := birdnest.Normalize(ownerID, in)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// the owner row is the fence for concurrent syncs of one account
	err = r.prom.ObserveDB("bird_nests.replace.lock_owner", func() error {
		var id string
		return tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, ownerID).Scan(&id)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lock owner %s: %w", ownerID, user.ErrNotFound)
		}
		return nil, fmt.Errorf("lock owner: %w", err)
	}

	if expectedVersion != "" {
		current, err := r.list(ctx, tx, "bird_nests.replace.read_current", ownerID)
		if err != nil {
			return nil, err
		}
		if birdnest.Version(current) != expectedVersion {
			return nil, birdnest.ErrVersionMismatch
		}
	}

	err = r.prom.ObserveDB("bird_nests.replace.delete", func() error {
		_, e := tx.Exec(ctx, `DELETE FROM bird_nests WHERE owner_id = $1`, ownerID)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("delete nests: %w", err)
	}

	for _, n := range nests {
		date, err := toPgDate(n.HatchDate)
		if err != nil {
			return nil, err
		}

		err = r.prom.ObserveDB("bird_nests.replace.insert", func() error {
			_, e := tx.Exec(ctx,
				`INSERT INTO bird_nests (owner_id, id, name, hatch_date, notes, position)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				ownerID, n.ID, n.Name, date, n.Notes, n.Position,
			)
			return e
		})
		if err != nil {
			return nil, fmt.Errorf("insert nest %q: %w", n.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	return settleAfterCommit(ctx, ownerID, nests, func() ([]birdnest.Nest, error) {
		return r.List(ctx, ownerID)
	}), nil
}

// settleAfterCommit prefers the stored set but never turns a committed sync
// into a failure: when the re-read errors, the rows just written are returned.
func settleAfterCommit(ctx context.Context, ownerID string, written []birdnest.Nest, reread func() ([]birdnest.Nest, error)) []birdnest.Nest {
	stored, err := reread()
	if err != nil {
		slog.WarnContext(ctx, "bird nests re-read after commit failed, returning written set",
			"owner_id", ownerID, "err", err)
		return written
	}
	return stored
}

func toPgDate(s *string) (pgtype.Date, error) {
	if s == nil {
		return pgtype.Date{}, nil
	}
	t, err := time.Parse(birdnest.DateLayout, *s)
	if err != nil {
		return pgtype.Date{}, birdnest.ErrInvalidDate
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func fromPgDate(d pgtype.Date) *string {
	if !d.Valid {
		return nil
	}
	s := d.Time.Format(birdnest.DateLayout)
	return &s
}
