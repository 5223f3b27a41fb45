package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-party-service/internal/domain"
	"trivia-party-service/internal/infra/memory"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(sampleQuestions()),
	}
	repo := NewBankRepository(client, loader, time.Minute)

	questions, err := repo.Questions(context.Background())
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if !mr.Exists(bankKey) {
		t.Fatalf("expected redis cache key to be set")
	}

	// Second call should hit redis, loader not incremented.
	cached, err := repo.Questions(context.Background())
	if err != nil {
		t.Fatalf("load questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached[0].CorrectIndex != 1 {
		t.Fatalf("cached question lost its answer key: %+v", cached[0])
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadQuestions(ctx)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "Pick B", Options: []string{"A", "B", "C", "D"}, CorrectIndex: 1, Difficulty: domain.DifficultyEasy, Category: "test"},
		{ID: "q2", Prompt: "Pick C", Options: []string{"A", "B", "C", "D"}, CorrectIndex: 2, Difficulty: domain.DifficultyHard, Category: "test"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
