package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/civichub/internal/domain/activity"
	"github.com/geocoder89/civichub/internal/domain/term"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivitiesRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

// constructor function

func NewActivitiesRepo(pool *pgxpool.Pool, obs Observer) *ActivitiesRepo {
	return &ActivitiesRepo{
		pool: pool,
		obs:  observerOrNoop(obs),
	}
}

// joined projection: activity columns followed by the (nullable) term.
const activitySelect = `SELECT a.id, a.type, a.title, a.short_desc, a.long_desc, a.roll_call,
	a.read_more, a.date, a.congress, a.term_id, a.created_at, a.updated_at,
	t.name, t.congress, t.start_year, t.end_year, t.created_at`

func scanActivity(row pgx.Row, extra ...any) (activity.Activity, error) {
	var (
		a             activity.Activity
		termName      *string
		termCongress  *string
		termStart     *int
		termEnd       *int
		termCreatedAt *time.Time
	)

	dest := []any{
		&a.ID, &a.Type, &a.Title, &a.ShortDesc, &a.LongDesc, &a.RollCall,
		&a.ReadMore, &a.Date, &a.Congress, &a.TermID, &a.CreatedAt, &a.UpdatedAt,
		&termName, &termCongress, &termStart, &termEnd, &termCreatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return activity.Activity{}, err
	}

	if a.TermID != nil && termName != nil {
		t := term.Term{ID: *a.TermID, Name: *termName}
		if termCongress != nil {
			t.Congress = *termCongress
		}
		if termStart != nil {
			t.StartYear = *termStart
		}
		if termEnd != nil {
			t.EndYear = *termEnd
		}
		if termCreatedAt != nil {
			t.CreatedAt = *termCreatedAt
		}
		a.Term = &t
	}

	if a.Date != nil {
		d := a.Date.UTC()
		a.Date = &d
	}

	return a, nil
}

func (r *ActivitiesRepo) Create(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	var out activity.Activity

	err := r.obs.ObserveDB("activities.create", func() error {
		var err error
		out, err = scanActivity(r.pool.QueryRow(ctx,
			`WITH a AS (
				INSERT INTO activities (id, type, title, short_desc, long_desc, roll_call, read_more, date, congress, term_id, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
				RETURNING *
			)
			`+activitySelect+`
			FROM a LEFT JOIN terms t ON t.id = a.term_id`,
			a.ID, a.Type, a.Title, a.ShortDesc, a.LongDesc, a.RollCall, a.ReadMore, a.Date, a.Congress, a.TermID, a.CreatedAt, a.UpdatedAt,
		))
		return err
	})

	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return activity.Activity{}, activity.ErrUnknownTerm
		}
		return activity.Activity{}, fmt.Errorf("insert activity: %w", err)
	}

	return out, nil
}

func (r *ActivitiesRepo) List(ctx context.Context, f activity.ListFilter) ([]activity.Activity, int, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	// filtered conditional checks.
	if f.Type != nil {
		conds = append(conds, fmt.Sprintf("a.type = $%d", argsPosition))
		args = append(args, *f.Type)
		argsPosition++
	}

	if f.Congress != nil {
		conds = append(conds, fmt.Sprintf("a.congress = $%d", argsPosition))
		args = append(args, *f.Congress)
		argsPosition++
	}

	if f.TermID != nil {
		conds = append(conds, fmt.Sprintf("a.term_id = $%d", argsPosition))
		args = append(args, *f.TermID)
		argsPosition++
	}

	query := activitySelect + `, COUNT(*) OVER() AS total
	FROM activities a LEFT JOIN terms t ON t.id = a.term_id`

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY a.date DESC NULLS LAST, a.id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, f.Limit, f.Offset)

	output := make([]activity.Activity, 0, f.Limit)
	total := 0

	err := r.obs.ObserveDB("activities.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t int

			a, err := scanActivity(rows, &t)
			if err != nil {
				return err
			}

			total = t
			output = append(output, a)
		}

		return rows.Err()
	})

	if err != nil {
		if pgCode(err) == pgInvalidText {
			// a malformed termId filter matches nothing
			return []activity.Activity{}, 0, nil
		}
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	return output, total, nil
}

func (r *ActivitiesRepo) GetByID(ctx context.Context, id string) (activity.Activity, error) {
	var a activity.Activity

	err := r.obs.ObserveDB("activities.get_by_id", func() error {
		var err error
		a, err = scanActivity(r.pool.QueryRow(ctx,
			activitySelect+` FROM activities a LEFT JOIN terms t ON t.id = a.term_id WHERE a.id = $1`, id))
		return err
	})

	if err != nil {
		if isNotFound(err) {
			return activity.Activity{}, activity.ErrNotFound
		}
		return activity.Activity{}, fmt.Errorf("get activity: %w", err)
	}

	return a, nil
}

// Update applies a partial update; NULL parameters keep the stored value.
func (r *ActivitiesRepo) Update(ctx context.Context, id string, p activity.Patch) (activity.Activity, error) {
	var a activity.Activity

	err := r.obs.ObserveDB("activities.update", func() error {
		var err error
		a, err = scanActivity(r.pool.QueryRow(ctx,
			`WITH a AS (
				UPDATE activities
				SET type = COALESCE($2, type),
					title = COALESCE($3, title),
					short_desc = COALESCE($4, short_desc),
					long_desc = COALESCE($5, long_desc),
					roll_call = COALESCE($6, roll_call),
					read_more = COALESCE($7, read_more),
					date = COALESCE($8, date),
					congress = COALESCE($9, congress),
					term_id = COALESCE($10::uuid, term_id),
					updated_at = NOW()
				WHERE id = $1
				RETURNING *
			)
			`+activitySelect+`
			FROM a LEFT JOIN terms t ON t.id = a.term_id`,
			id, p.Type, p.Title, p.ShortDesc, p.LongDesc, p.RollCall, p.ReadMore, p.Date, p.Congress, p.TermID,
		))
		return err
	})

	if err != nil {
		switch {
		// if there are no rows matching the id
		case isNotFound(err):
			return activity.Activity{}, activity.ErrNotFound
		case pgCode(err) == pgForeignKeyViolation:
			return activity.Activity{}, activity.ErrUnknownTerm
		}
		// if it is any other type of error
		return activity.Activity{}, fmt.Errorf("update activity: %w", err)
	}

	return a, nil
}

// Delete removes the row and returns it so callers can clean up the
// attached document.
func (r *ActivitiesRepo) Delete(ctx context.Context, id string) (activity.Activity, error) {
	var a activity.Activity

	err := r.obs.ObserveDB("activities.delete", func() error {
		var err error
		a, err = scanActivity(r.pool.QueryRow(ctx,
			`WITH a AS (DELETE FROM activities WHERE id = $1 RETURNING *)
			`+activitySelect+`
			FROM a LEFT JOIN terms t ON t.id = a.term_id`, id))
		return err
	})

	if err != nil {
		if isNotFound(err) {
			return activity.Activity{}, activity.ErrNotFound
		}
		return activity.Activity{}, fmt.Errorf("delete activity: %w", err)
	}

	return a, nil
}
