package app

import (
	"context"
	"math/rand"

	"trivia-party-service/internal/domain"
)

// BankSource provides the pool of questions rooms draw from
// (in-memory, Redis-cached, Postgres-backed, etc).
type BankSource interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// DrawQuestions picks up to n distinct questions in random order.
func DrawQuestions(pool []domain.Question, n int, rng *rand.Rand) []domain.Question {
	shuffled := make([]domain.Question, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
