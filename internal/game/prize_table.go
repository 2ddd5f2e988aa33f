package game

import (
	"fmt"

	"millionaire-quiz-service/internal/domain"
)

// Level is one step of the prize ladder.
type Level struct {
	Prize     int64 `json:"prize" yaml:"prize"`
	Fireproof bool  `json:"fireproof" yaml:"fireproof"`
}

// PrizeTable is the read-only prize ladder. Prize(n) is the reward after n
// correct answers.
type PrizeTable struct {
	levels []Level
}

// NewPrizeTable validates that prizes are positive and strictly increasing.
func NewPrizeTable(levels []Level) (PrizeTable, error) {
	if len(levels) == 0 {
		return PrizeTable{}, fmt.Errorf("%w: prize table is empty", domain.ErrInvalidLevel)
	}
	var prev int64
	for i, l := range levels {
		if l.Prize <= prev {
			return PrizeTable{}, fmt.Errorf("%w: prize at level %d must exceed %d", domain.ErrInvalidLevel, i+1, prev)
		}
		prev = l.Prize
	}
	return PrizeTable{levels: append([]Level(nil), levels...)}, nil
}

// DefaultPrizeTable is the classic fifteen step ladder with fireproof levels
// at 1 000, 32 000 and 1 000 000.
func DefaultPrizeTable() PrizeTable {
	return PrizeTable{levels: []Level{
		{Prize: 100},
		{Prize: 200},
		{Prize: 300},
		{Prize: 500},
		{Prize: 1_000, Fireproof: true},
		{Prize: 2_000},
		{Prize: 4_000},
		{Prize: 8_000},
		{Prize: 16_000},
		{Prize: 32_000, Fireproof: true},
		{Prize: 64_000},
		{Prize: 125_000},
		{Prize: 250_000},
		{Prize: 500_000},
		{Prize: 1_000_000, Fireproof: true},
	}}
}

// Levels returns the number of questions a game has.
func (t PrizeTable) Levels() int {
	return len(t.levels)
}

// Prize returns the reward after answered correct answers, 0 for none.
func (t PrizeTable) Prize(answered int) int64 {
	if answered <= 0 || len(t.levels) == 0 {
		return 0
	}
	if answered > len(t.levels) {
		answered = len(t.levels)
	}
	return t.levels[answered-1].Prize
}

// Top is the prize for winning the game.
func (t PrizeTable) Top() int64 {
	return t.Prize(len(t.levels))
}

// FireproofPrize returns the prize of the highest fireproof level reached
// with answered correct answers.
func (t PrizeTable) FireproofPrize(answered int) int64 {
	if answered > len(t.levels) {
		answered = len(t.levels)
	}
	for i := answered - 1; i >= 0; i-- {
		if t.levels[i].Fireproof {
			return t.levels[i].Prize
		}
	}
	return 0
}

// Snapshot returns a copy of the ladder for read models.
func (t PrizeTable) Snapshot() []Level {
	return append([]Level(nil), t.levels...)
}
