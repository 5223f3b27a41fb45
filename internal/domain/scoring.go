package domain

import "sort"

// BasePoints returns the score a correct answer is worth before any time bonus.
func BasePoints(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return 100
	case DifficultyMedium:
		return 200
	case DifficultyHard:
		return 300
	default:
		return 100
	}
}

// ScoreAnswer computes the points earned for a submission. A nil submission
// (participant never answered) or a wrong answer earns zero. Correct answers
// earn the base points plus, when enabled, a time bonus of up to 50% that
// decays linearly over the question's time limit.
func ScoreAnswer(answer *AnswerSubmission, question Question, settings Settings) (correct bool, points int) {
	if answer == nil {
		return false, 0
	}
	if answer.OptionIndex != question.CorrectIndex {
		return false, 0
	}

	base := BasePoints(question.Difficulty)
	points = base

	limitMillis := int64(settings.QuestionTimeLimitSeconds) * 1000
	if settings.TimeBonus && limitMillis > 0 && answer.ElapsedMillis < limitMillis {
		ratio := 1 - float64(answer.ElapsedMillis)/float64(limitMillis)
		points += int(float64(base) * 0.5 * ratio)
	}
	return true, points
}

// RankScores produces the leaderboard: descending score, ties broken by
// display name so the ordering is deterministic.
func RankScores(scores map[string]int, participants map[string]*Participant) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(scores))
	for id, score := range scores {
		name := "Unknown"
		if p, ok := participants[id]; ok {
			name = p.DisplayName
		}
		entries = append(entries, LeaderboardEntry{
			ParticipantID: id,
			DisplayName:   name,
			Score:         score,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	return entries
}
