package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codeduel/internal/common"
	"codeduel/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// TransitionStatus moves a submission from one status to the next and
	// fails with common.ErrConflict when it is no longer in from.
	TransitionStatus(ctx context.Context, id string, from, to model.SubmissionStatus) error
	// CompleteSubmission stores the verdict of a submission that is Judging.
	CompleteSubmission(ctx context.Context, sub *model.Submission) error
	ListSubmissionsByUser(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, int, error)
	CountAcceptedByDay(ctx context.Context, userID, timezone string) (map[string]int, error)
	GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func encodeResults(results []model.TestResult) ([]byte, error) {
	if results == nil {
		results = []model.TestResult{}
	}
	return json.Marshal(results)
}

func decodeResults(raw []byte) ([]model.TestResult, error) {
	results := []model.TestResult{}
	if len(raw) == 0 {
		return results, nil
	}
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	results, err := encodeResults(sub.TestResults)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission results: %w", err)
	}
	query := `INSERT INTO submissions (id, user_id, problem_id, language_id, source_code, status,
	              is_correct, passed_count, total_count, incomplete, test_results)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, sub.ID, sub.UserID, sub.ProblemID, sub.LanguageID, sub.SourceCode,
		sub.Status, sub.IsCorrect, sub.PassedCount, sub.TotalCount, sub.Incomplete, results,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT id, user_id, problem_id, language_id, source_code, status, is_correct,
	              passed_count, total_count, incomplete, test_results, created_at, updated_at
	          FROM submissions WHERE id = $1`
	sub := &model.Submission{}
	var results []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.LanguageID, &sub.SourceCode, &sub.Status, &sub.IsCorrect,
		&sub.PassedCount, &sub.TotalCount, &sub.Incomplete, &results, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	if sub.TestResults, err = decodeResults(results); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID results: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) TransitionStatus(ctx context.Context, id string, from, to model.SubmissionStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: cannot move submission from %s to %s", common.ErrBadRequest, from, to)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.TransitionStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.TransitionStatus rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s is not %s: %w", id, from, common.ErrConflict)
	}
	return nil
}

func (r *pgSubmissionRepository) CompleteSubmission(ctx context.Context, sub *model.Submission) error {
	if !model.StatusJudging.CanTransitionTo(sub.Status) {
		return fmt.Errorf("%w: %s is not a verdict", common.ErrBadRequest, sub.Status)
	}
	results, err := encodeResults(sub.TestResults)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CompleteSubmission results: %w", err)
	}
	query := `UPDATE submissions
	          SET status = $1, is_correct = $2, passed_count = $3, total_count = $4, incomplete = $5,
	              test_results = $6, updated_at = NOW()
	          WHERE id = $7 AND status = $8
	          RETURNING updated_at`
	err = r.db.QueryRowContext(ctx, query, sub.Status, sub.IsCorrect, sub.PassedCount, sub.TotalCount,
		sub.Incomplete, results, sub.ID, model.StatusJudging).Scan(&sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("submission %s is not judging: %w", sub.ID, common.ErrConflict)
		}
		return fmt.Errorf("pgSubmissionRepository.CompleteSubmission: %w", err)
	}
	return nil
}

// ListSubmissionsByUser returns the newest submissions first, without test results.
// An empty problemID lists across all problems.
func (r *pgSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, int, error) {
	where := `user_id = $1`
	args := []any{userID}
	if problemID != "" {
		where += ` AND problem_id = $2`
		args = append(args, problemID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser count: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, user_id, problem_id, language_id, source_code, status, is_correct,
	              passed_count, total_count, incomplete, created_at, updated_at
	          FROM submissions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.LanguageID, &s.SourceCode, &s.Status, &s.IsCorrect,
			&s.PassedCount, &s.TotalCount, &s.Incomplete, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser rows.Err: %w", err)
	}
	return subs, total, nil
}

// CountAcceptedByDay buckets the user's accepted submissions by local day.
func (r *pgSubmissionRepository) CountAcceptedByDay(ctx context.Context, userID, timezone string) (map[string]int, error) {
	query := `SELECT to_char(created_at AT TIME ZONE $2, 'YYYY-MM-DD') AS day, COUNT(*)
	          FROM submissions
	          WHERE user_id = $1 AND status = $3
	          GROUP BY day`
	rows, err := r.db.QueryContext(ctx, query, userID, timezone, model.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.CountAcceptedByDay query: %w", err)
	}
	defer rows.Close()

	days := map[string]int{}
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.CountAcceptedByDay scan: %w", err)
		}
		days[day] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.CountAcceptedByDay rows.Err: %w", err)
	}
	return days, nil
}

// GetLeaderboard ranks users by distinct accepted problems.
func (r *pgSubmissionRepository) GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	query := `SELECT u.id, u.username, COUNT(DISTINCT s.problem_id) AS solved
	          FROM submissions s JOIN users u ON u.id = s.user_id
	          WHERE s.status = $1
	          GROUP BY u.id, u.username
	          ORDER BY solved DESC, MAX(s.created_at) ASC, u.id ASC
	          LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, model.StatusAccepted, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetLeaderboard query: %w", err)
	}
	defer rows.Close()

	entries := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.ProblemsSolved); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetLeaderboard scan: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetLeaderboard rows.Err: %w", err)
	}
	return entries, nil
}
