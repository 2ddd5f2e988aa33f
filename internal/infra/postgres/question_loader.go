package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"millionaire-quiz-service/internal/domain"
)

// QuestionLoader loads bank questions from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, level int) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, text, answers FROM questions WHERE level=$1 ORDER BY id`, level)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q := domain.Question{Level: level}
		var raw []byte
		if err := rows.Scan(&q.ID, &q.Text, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers of %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return questions, nil
}

// Import upserts questions in one transaction and returns how many were written.
func (l *QuestionLoader) Import(ctx context.Context, questions []domain.Question) (int, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range questions {
		answers, err := json.Marshal(q.Answers)
		if err != nil {
			return 0, fmt.Errorf("marshal answers of %s: %w", q.ID, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO questions (id, level, text, answers) VALUES ($1, $2, $3, $4::jsonb)
			ON CONFLICT (id) DO UPDATE SET level=EXCLUDED.level, text=EXCLUDED.text, answers=EXCLUDED.answers`,
			q.ID, q.Level, q.Text, string(answers))
		if err != nil {
			return 0, fmt.Errorf("import question %s: %w", q.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(questions), nil
}
