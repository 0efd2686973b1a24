package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codeduel/internal/common"
	"codeduel/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindUsernames(ctx context.Context, ids []string) (map[string]string, error)
	// UpdateStreak writes the streak fields if user.Version is still current
	// and bumps it; a stale version yields common.ErrConflict.
	UpdateStreak(ctx context.Context, user *model.User) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING streak, version, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role).
		Scan(&user.Streak, &user.Version, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	if user.Calendar == nil {
		user.Calendar = map[string]bool{}
	}
	return nil
}

const userColumns = `id, username, email, hashed_password, role, streak, COALESCE(last_solved_date, ''), calendar, version, created_at, updated_at`

func (r *pgUserRepository) findOne(ctx context.Context, op, where string, arg any) (*model.User, error) {
	user := &model.User{}
	var calendar []byte
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&user.Streak, &user.LastSolvedDate, &calendar, &user.Version, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	user.Calendar = map[string]bool{}
	if len(calendar) > 0 {
		if err := json.Unmarshal(calendar, &user.Calendar); err != nil {
			return nil, fmt.Errorf("pgUserRepository.%s calendar: %w", op, err)
		}
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", "email = $1", email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", "username = $1", username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", "id = $1", id)
}

func (r *pgUserRepository) FindUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, username FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.FindUsernames query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("pgUserRepository.FindUsernames scan: %w", err)
		}
		names[id] = name
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.FindUsernames rows.Err: %w", err)
	}
	return names, nil
}

func (r *pgUserRepository) UpdateStreak(ctx context.Context, user *model.User) error {
	calendar, err := json.Marshal(user.Calendar)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateStreak calendar: %w", err)
	}
	var lastSolved any
	if user.LastSolvedDate != "" {
		lastSolved = user.LastSolvedDate
	}

	query := `UPDATE users
	          SET streak = $1, last_solved_date = $2, calendar = $3, version = version + 1, updated_at = NOW()
	          WHERE id = $4 AND version = $5
	          RETURNING version, updated_at`
	err = r.db.QueryRowContext(ctx, query, user.Streak, lastSolved, calendar, user.ID, user.Version).
		Scan(&user.Version, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %s was modified concurrently: %w", user.ID, common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.UpdateStreak: %w", err)
	}
	return nil
}
