package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codeduel/internal/common"
	"codeduel/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, problem *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	FindProblemsByIDs(ctx context.Context, ids []string) ([]model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tags []string) ([]model.Problem, int, error)
	GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

// CreateProblem stores the problem and its testcases in one transaction.
func (r *pgProblemRepository) CreateProblem(ctx context.Context, p *model.Problem) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem tags: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem begin: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO problems (id, title, slug, description, difficulty, tags, constraints, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		p.ID, p.Title, p.Slug, p.Description, p.Difficulty, tags, p.Constraints, p.CreatedByID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO testcases (id, problem_id, input, expected_output, is_hidden, sort_order)
		 VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem prepare: %w", err)
	}
	defer stmt.Close()

	for i := range p.TestCases {
		tc := &p.TestCases[i]
		tc.ProblemID = p.ID
		tc.SortOrder = i + 1
		if _, err := stmt.ExecContext(ctx, tc.ID, p.ID, tc.Input, tc.ExpectedOutput, tc.IsHidden, tc.SortOrder); err != nil {
			return fmt.Errorf("pgProblemRepository.CreateProblem testcase %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem commit: %w", err)
	}
	return nil
}

const problemColumns = `id, title, slug, description, difficulty, tags, constraints, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	var p model.Problem
	var tags []byte
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &tags, &p.Constraints,
		&p.CreatedByID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

// FindProblemByID returns the problem with its testcases in source order.
func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return r.findOne(ctx, `SELECT `+problemColumns+` FROM problems WHERE id = $1`, id)
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return r.findOne(ctx, `SELECT `+problemColumns+` FROM problems WHERE slug = $1`, slug)
}

func (r *pgProblemRepository) findOne(ctx context.Context, query string, arg any) (*model.Problem, error) {
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("problem: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgProblemRepository.findOne: %w", err)
	}
	p.TestCases, err = r.GetTestCasesByProblemID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgProblemRepository) FindProblemsByIDs(ctx context.Context, ids []string) ([]model.Problem, error) {
	if len(ids) == 0 {
		return []model.Problem{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+problemColumns+` FROM problems WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.FindProblemsByIDs query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.FindProblemsByIDs scan: %w", err)
		}
		problems = append(problems, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.FindProblemsByIDs rows.Err: %w", err)
	}
	return problems, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tags []string) ([]model.Problem, int, error) {
	var conditions []string
	var args []any
	argID := 1

	if difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", argID))
		args = append(args, difficulty)
		argID++
	}
	if len(tags) > 0 {
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems tags: %w", err)
		}
		// any of the requested tags
		conditions = append(conditions, fmt.Sprintf("tags ?| ARRAY(SELECT jsonb_array_elements_text($%d::jsonb))", argID))
		args = append(args, tagsJSON)
		argID++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM problems%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, problemColumns, where, argID, argID+1)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, problem_id, input, expected_output, is_hidden, sort_order, created_at
		 FROM testcases WHERE problem_id = $1 ORDER BY sort_order ASC`, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID query: %w", err)
	}
	defer rows.Close()

	testCases := []model.TestCase{}
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.IsHidden, &tc.SortOrder, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID rows.Err: %w", err)
	}
	return testCases, nil
}
