package game

import (
	"math/rand"
	"sort"

	"millionaire-quiz-service/internal/domain"
)

// friendCallAccuracy is the chance the friend names the correct key.
const friendCallAccuracy = 80

// audienceDistribution returns integer percentages over all answer keys that
// sum to 100. The correct key always gets at least 40.
func audienceDistribution(rnd *rand.Rand, correct string) map[string]int {
	dist := make(map[string]int, len(domain.AnswerKeys))
	dist[correct] = 40 + rnd.Intn(41)

	wrong := wrongKeys(correct)
	rnd.Shuffle(len(wrong), func(i, j int) { wrong[i], wrong[j] = wrong[j], wrong[i] })

	rest := 100 - dist[correct]
	for i, key := range wrong {
		if i == len(wrong)-1 {
			dist[key] = rest
			break
		}
		share := rnd.Intn(rest + 1)
		dist[key] = share
		rest -= share
	}
	return dist
}

// fiftyFifty keeps the correct key and one random wrong key, sorted.
func fiftyFifty(rnd *rand.Rand, correct string) []string {
	wrong := wrongKeys(correct)
	keys := []string{correct, wrong[rnd.Intn(len(wrong))]}
	sort.Strings(keys)
	return keys
}

func friendCall(rnd *rand.Rand, correct string) string {
	if rnd.Intn(100) < friendCallAccuracy {
		return correct
	}
	wrong := wrongKeys(correct)
	return wrong[rnd.Intn(len(wrong))]
}

func wrongKeys(correct string) []string {
	out := make([]string, 0, len(domain.AnswerKeys)-1)
	for _, k := range domain.AnswerKeys {
		if k != correct {
			out = append(out, k)
		}
	}
	return out
}
