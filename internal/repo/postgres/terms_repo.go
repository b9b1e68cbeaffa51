package postgres

import (
	"context"
	"fmt"

	"github.com/geocoder89/civichub/internal/domain/term"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TermsRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewTermsRepo(pool *pgxpool.Pool, obs Observer) *TermsRepo {
	return &TermsRepo{pool: pool, obs: observerOrNoop(obs)}
}

func (r *TermsRepo) Create(ctx context.Context, req term.CreateRequest) (term.Term, error) {
	t := term.NewFromCreateRequest(req)

	err := r.obs.ObserveDB("terms.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO terms (id, name, congress, start_year, end_year, created_at)
			VALUES ($1, $2, $3, NULLIF($4, 0), NULLIF($5, 0), $6)`,
			t.ID, t.Name, t.Congress, t.StartYear, t.EndYear, t.CreatedAt,
		)
		return err
	})

	if err != nil {
		return term.Term{}, fmt.Errorf("insert term: %w", err)
	}

	return t, nil
}

func scanTerm(row pgx.Row) (term.Term, error) {
	var t term.Term

	err := row.Scan(&t.ID, &t.Name, &t.Congress, &t.StartYear, &t.EndYear, &t.CreatedAt)

	return t, err
}

func (r *TermsRepo) GetByID(ctx context.Context, id string) (term.Term, error) {
	var t term.Term

	err := r.obs.ObserveDB("terms.get_by_id", func() error {
		var err error
		t, err = scanTerm(r.pool.QueryRow(ctx,
			`SELECT id, name, congress, COALESCE(start_year, 0), COALESCE(end_year, 0), created_at
			FROM terms WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if isNotFound(err) {
			return term.Term{}, term.ErrNotFound
		}
		return term.Term{}, fmt.Errorf("get term: %w", err)
	}

	return t, nil
}

func (r *TermsRepo) List(ctx context.Context) ([]term.Term, error) {
	var out []term.Term

	err := r.obs.ObserveDB("terms.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, name, congress, COALESCE(start_year, 0), COALESCE(end_year, 0), created_at
			FROM terms
			ORDER BY start_year DESC NULLS LAST, name ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]term.Term, 0)

		for rows.Next() {
			t, err := scanTerm(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}

	return out, nil
}
