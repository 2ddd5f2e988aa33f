// Package game holds the pure game state machine: it turns a game plus an
// input into a new game and the prize to credit, and never touches storage or
// balances.
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"millionaire-quiz-service/internal/domain"
)

// Result is the outcome of a transition. Credit is non-zero only when the
// transition finished the game with a prize.
type Result struct {
	Game    domain.Game
	Correct bool
	Credit  int64
}

// Machine applies transitions using a fixed prize table.
type Machine struct {
	table     PrizeTable
	timeLimit time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Machine)

// WithTimeLimit finishes games as timed out once they are older than d.
// Zero disables the limit.
func WithTimeLimit(d time.Duration) Option {
	return func(m *Machine) { m.timeLimit = d }
}

// WithSeed makes question picks and help payloads deterministic.
func WithSeed(seed int64) Option {
	return func(m *Machine) { m.rnd = rand.New(rand.NewSource(seed)) }
}

func NewMachine(table PrizeTable, opts ...Option) *Machine {
	m := &Machine{
		table: table,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table returns the prize table the machine was built with.
func (m *Machine) Table() PrizeTable {
	return m.table
}

// TimeLimit returns the configured limit, zero when disabled.
func (m *Machine) TimeLimit() time.Duration {
	return m.timeLimit
}

// NewGame builds an in-progress game at level 0. bank holds the candidate
// questions for every level; one is picked per level and its answers are
// shuffled into the a..d variants.
func (m *Machine) NewGame(id, ownerID string, bank [][]domain.Question, now time.Time) (domain.Game, error) {
	if len(bank) != m.table.Levels() {
		return domain.Game{}, fmt.Errorf("%w: need questions for %d levels, got %d", domain.ErrInvalidLevel, m.table.Levels(), len(bank))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	questions := make([]domain.GameQuestion, 0, len(bank))
	for level, candidates := range bank {
		if len(candidates) == 0 {
			return domain.Game{}, fmt.Errorf("%w %d", domain.ErrNoQuestions, level)
		}
		q := candidates[m.rnd.Intn(len(candidates))]
		if q.Level != level {
			return domain.Game{}, fmt.Errorf("%w: question %s has level %d, placed at %d", domain.ErrInvalidLevel, q.ID, q.Level, level)
		}
		questions = append(questions, m.placeLocked(q))
	}

	return domain.Game{
		ID:        id,
		OwnerID:   ownerID,
		Status:    domain.StatusInProgress,
		HelpsUsed: make(map[domain.HelpType]bool),
		Questions: questions,
		CreatedAt: now,
	}, nil
}

func (m *Machine) placeLocked(q domain.Question) domain.GameQuestion {
	perm := m.rnd.Perm(len(domain.AnswerKeys))
	variants := make(map[string]string, len(domain.AnswerKeys))
	correct := ""
	for i, key := range domain.AnswerKeys {
		variants[key] = q.Answers[perm[i]]
		if perm[i] == 0 {
			correct = key
		}
	}
	return domain.GameQuestion{
		QuestionID: q.ID,
		Level:      q.Level,
		Text:       q.Text,
		Variants:   variants,
		CorrectKey: correct,
	}
}

// SubmitAnswer resolves the current question. A correct key advances exactly
// one level and wins the game on the last one; any other valid key fails the
// game with the fireproof prize.
func (m *Machine) SubmitAnswer(g domain.Game, key string, now time.Time) (Result, error) {
	if g.Finished() {
		return Result{Game: g}, domain.ErrAlreadyFinished
	}
	if !validKey(key) {
		return Result{Game: g}, domain.ErrInvalidAnswer
	}
	q := g.CurrentQuestion()
	if q == nil {
		return Result{Game: g}, fmt.Errorf("%w: no question at level %d", domain.ErrInvalidLevel, g.CurrentLevel)
	}

	next := g.Clone()
	if key != q.CorrectKey {
		finish(&next, domain.StatusFail, m.table.FireproofPrize(g.CurrentLevel), now)
		return Result{Game: next, Credit: next.Prize}, nil
	}

	next.CurrentLevel++
	if next.CurrentLevel >= m.table.Levels() {
		finish(&next, domain.StatusWon, m.table.Top(), now)
		return Result{Game: next, Correct: true, Credit: next.Prize}, nil
	}
	return Result{Game: next, Correct: true}, nil
}

// UseHelp records a help and attaches its payload to the current question.
func (m *Machine) UseHelp(g domain.Game, help domain.HelpType) (Result, error) {
	if g.Finished() {
		return Result{Game: g}, domain.ErrAlreadyFinished
	}
	if !help.Valid() {
		return Result{Game: g}, domain.ErrUnknownHelp
	}
	if g.HelpUsed(help) {
		return Result{Game: g}, domain.ErrHelpAlreadyUsed
	}
	if g.CurrentQuestion() == nil {
		return Result{Game: g}, fmt.Errorf("%w: no question at level %d", domain.ErrInvalidLevel, g.CurrentLevel)
	}

	next := g.Clone()
	q := next.CurrentQuestion()

	m.mu.Lock()
	switch help {
	case domain.HelpAudience:
		q.Help.AudienceHelp = audienceDistribution(m.rnd, q.CorrectKey)
	case domain.HelpFiftyFifty:
		q.Help.FiftyFifty = fiftyFifty(m.rnd, q.CorrectKey)
	case domain.HelpFriendCall:
		q.Help.FriendCall = friendCall(m.rnd, q.CorrectKey)
	}
	m.mu.Unlock()

	next.HelpsUsed[help] = true
	return Result{Game: next}, nil
}

// TakeMoney cashes out the prize of the current level.
func (m *Machine) TakeMoney(g domain.Game, now time.Time) (Result, error) {
	if g.Finished() {
		return Result{Game: g}, domain.ErrAlreadyFinished
	}
	if g.CurrentLevel <= 0 {
		return Result{Game: g}, fmt.Errorf("%w: nothing to take at level 0", domain.ErrInvalidLevel)
	}
	next := g.Clone()
	finish(&next, domain.StatusMoney, m.table.Prize(g.CurrentLevel), now)
	return Result{Game: next, Credit: next.Prize}, nil
}

// Expired reports whether an unfinished game ran past the time limit.
func (m *Machine) Expired(g domain.Game, now time.Time) bool {
	if m.timeLimit <= 0 || g.Finished() {
		return false
	}
	return now.Sub(g.CreatedAt) > m.timeLimit
}

// Expire finishes an expired game as timed out with the fireproof prize. The
// boolean is false when the game was not expired and nothing changed.
func (m *Machine) Expire(g domain.Game, now time.Time) (Result, bool) {
	if !m.Expired(g, now) {
		return Result{Game: g}, false
	}
	next := g.Clone()
	finish(&next, domain.StatusTimeout, m.table.FireproofPrize(g.CurrentLevel), now)
	return Result{Game: next, Credit: next.Prize}, true
}

func finish(g *domain.Game, status domain.Status, prize int64, now time.Time) {
	g.Status = status
	g.Prize = prize
	finishedAt := now
	g.FinishedAt = &finishedAt
}

func validKey(key string) bool {
	for _, k := range domain.AnswerKeys {
		if k == key {
			return true
		}
	}
	return false
}
