package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"millionaire-quiz-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(sampleQuestions(2)),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	questions, err := repo.QuestionsForLevel(context.Background(), 1)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != "q1" {
		t.Fatalf("unexpected questions %+v", questions)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.QuestionsForLevel(context.Background(), 1); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryReloadsAfterTTL(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(sampleQuestions(1)),
	}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.QuestionsForLevel(context.Background(), 0)
	now = now.Add(2 * time.Minute)
	_, _ = repo.QuestionsForLevel(context.Background(), 0)

	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestStaticLoaderMissingLevel(t *testing.T) {
	loader := NewStaticQuestionLoader(sampleQuestions(1))
	if _, err := loader.LoadQuestions(context.Background(), 5); err != domain.ErrNoQuestions {
		t.Fatalf("expected no questions error, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, level int) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, level)
}

func sampleQuestions(levels int) []domain.Question {
	out := make([]domain.Question, 0, levels)
	for level := 0; level < levels; level++ {
		out = append(out, domain.Question{
			ID:      fmt.Sprintf("q%d", level),
			Level:   level,
			Text:    fmt.Sprintf("Question %d?", level),
			Answers: [4]string{"right", "wrong 1", "wrong 2", "wrong 3"},
		})
	}
	return out
}
