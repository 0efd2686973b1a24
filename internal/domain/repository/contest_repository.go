package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codeduel/internal/common"
	"codeduel/internal/domain/model"
)

type ContestRepository interface {
	CreateContest(ctx context.Context, contest *model.Contest) error
	FindContestByID(ctx context.Context, id string) (*model.Contest, error)
	// ListContests filters by the status derived at now; an empty status lists all.
	ListContests(ctx context.Context, status model.ContestStatus, now time.Time, limit, offset int) ([]model.Contest, int, error)

	// CreateContestSubmission appends one attempt to the contest log.
	CreateContestSubmission(ctx context.Context, sub *model.ContestSubmission) error
	// ListContestSubmissions returns the whole log without sources or results.
	ListContestSubmissions(ctx context.Context, contestID string) ([]model.ContestSubmission, error)
	ListUserContestSubmissions(ctx context.Context, contestID, userID string) ([]model.ContestSubmission, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

func (r *pgContestRepository) CreateContest(ctx context.Context, c *model.Contest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgContestRepository.CreateContest begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO contests (id, title, description, start_time, end_time, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		c.ID, c.Title, c.Description, c.StartTime, c.EndTime, c.CreatedBy,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgContestRepository.CreateContest: %w", err)
	}

	for i, problemID := range c.ProblemIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contest_problems (contest_id, problem_id, position) VALUES ($1, $2, $3)`,
			c.ID, problemID, i+1); err != nil {
			return fmt.Errorf("pgContestRepository.CreateContest problem %s: %w", problemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgContestRepository.CreateContest commit: %w", err)
	}
	return nil
}

func (r *pgContestRepository) FindContestByID(ctx context.Context, id string) (*model.Contest, error) {
	c := &model.Contest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, start_time, end_time, created_by, created_at, updated_at
		 FROM contests WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.StartTime, &c.EndTime, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contest: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgContestRepository.FindContestByID: %w", err)
	}
	if c.ProblemIDs, err = r.problemIDs(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgContestRepository) problemIDs(ctx context.Context, contestID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT problem_id FROM contest_problems WHERE contest_id = $1 ORDER BY position ASC`, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.problemIDs query: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgContestRepository.problemIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.problemIDs rows.Err: %w", err)
	}
	return ids, nil
}

func (r *pgContestRepository) ListContests(ctx context.Context, status model.ContestStatus, now time.Time, limit, offset int) ([]model.Contest, int, error) {
	var where string
	args := []any{}
	switch status {
	case model.ContestUpcoming:
		where = ` WHERE start_time > $1`
		args = append(args, now)
	case model.ContestActive:
		where = ` WHERE start_time <= $1 AND end_time > $1`
		args = append(args, now)
	case model.ContestEnded:
		where = ` WHERE end_time <= $1`
		args = append(args, now)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contests`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.ListContests count: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, title, description, start_time, end_time, created_by, created_at, updated_at
	          FROM contests%s ORDER BY start_time DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.ListContests query: %w", err)
	}
	defer rows.Close()

	contests := []model.Contest{}
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.StartTime, &c.EndTime, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgContestRepository.ListContests scan: %w", err)
		}
		contests = append(contests, c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.ListContests rows.Err: %w", err)
	}
	return contests, total, nil
}

func (r *pgContestRepository) CreateContestSubmission(ctx context.Context, s *model.ContestSubmission) error {
	results, err := encodeResults(s.TestResults)
	if err != nil {
		return fmt.Errorf("pgContestRepository.CreateContestSubmission results: %w", err)
	}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO contest_submissions (id, contest_id, user_id, problem_id, language_id, source_code,
		     score, passed_all, passed_count, total_count, incomplete, test_results)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		s.ID, s.ContestID, s.UserID, s.ProblemID, s.LanguageID, s.SourceCode,
		s.Score, s.PassedAll, s.PassedCount, s.TotalCount, s.Incomplete, results,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgContestRepository.CreateContestSubmission: %w", err)
	}
	return nil
}

func (r *pgContestRepository) ListContestSubmissions(ctx context.Context, contestID string) ([]model.ContestSubmission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, contest_id, user_id, problem_id, language_id, score, passed_all,
		     passed_count, total_count, incomplete, created_at
		 FROM contest_submissions WHERE contest_id = $1 ORDER BY created_at ASC, id ASC`, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListContestSubmissions query: %w", err)
	}
	defer rows.Close()

	subs := []model.ContestSubmission{}
	for rows.Next() {
		var s model.ContestSubmission
		if err := rows.Scan(&s.ID, &s.ContestID, &s.UserID, &s.ProblemID, &s.LanguageID, &s.Score, &s.PassedAll,
			&s.PassedCount, &s.TotalCount, &s.Incomplete, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListContestSubmissions scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListContestSubmissions rows.Err: %w", err)
	}
	return subs, nil
}

func (r *pgContestRepository) ListUserContestSubmissions(ctx context.Context, contestID, userID string) ([]model.ContestSubmission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, contest_id, user_id, problem_id, language_id, source_code, score, passed_all,
		     passed_count, total_count, incomplete, test_results, created_at
		 FROM contest_submissions WHERE contest_id = $1 AND user_id = $2 ORDER BY created_at DESC`, contestID, userID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListUserContestSubmissions query: %w", err)
	}
	defer rows.Close()

	subs := []model.ContestSubmission{}
	for rows.Next() {
		var s model.ContestSubmission
		var results []byte
		if err := rows.Scan(&s.ID, &s.ContestID, &s.UserID, &s.ProblemID, &s.LanguageID, &s.SourceCode, &s.Score,
			&s.PassedAll, &s.PassedCount, &s.TotalCount, &s.Incomplete, &results, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListUserContestSubmissions scan: %w", err)
		}
		if s.TestResults, err = decodeResults(results); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListUserContestSubmissions results: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListUserContestSubmissions rows.Err: %w", err)
	}
	return subs, nil
}
