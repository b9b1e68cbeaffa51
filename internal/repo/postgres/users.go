package postgres

import (
	"context"
	"fmt"

	"github.com/geocoder89/civichub/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, full_name, nick_name, email, password_hash, role, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewUsersRepo(pool *pgxpool.Pool, obs Observer) *UsersRepo {
	return &UsersRepo{pool: pool, obs: observerOrNoop(obs)}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.NickName,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.obs.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			u.ID, u.FullName, u.NickName, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, arg string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, arg))
		return err
	})

	if err != nil {
		if isNotFound(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// Update applies a partial update; NULL parameters keep the stored value.
func (r *UsersRepo) Update(ctx context.Context, id string, p user.Patch) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			SET full_name = COALESCE($2, full_name),
				nick_name = COALESCE($3, nick_name),
				email = COALESCE($4, email),
				role = COALESCE($5, role),
				password_hash = COALESCE($6, password_hash),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, p.FullName, p.NickName, p.Email, p.Role, p.PasswordHash,
		))
		return err
	})

	if err != nil {
		switch {
		case isNotFound(err):
			return user.User{}, user.ErrNotFound
		case pgCode(err) == pgUniqueViolation:
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.obs.ObserveDB("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		if isNotFound(err) {
			return user.ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return user.ErrNotFound
	}

	return nil
}
