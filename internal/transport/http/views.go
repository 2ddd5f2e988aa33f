package http

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"millionaire-quiz-service/internal/domain"
)

// gameView is the client representation of a game. The correct key of a
// question is only revealed once the game is over.
type gameView struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"ownerId"`
	Status       domain.Status     `json:"status"`
	CurrentLevel int               `json:"currentLevel"`
	Levels       int               `json:"levels"`
	Prize        int64             `json:"prize"`
	HelpsUsed    []domain.HelpType `json:"helpsUsed"`
	Question     *questionView     `json:"question,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	FinishedAt   *time.Time        `json:"finishedAt,omitempty"`
}

type questionView struct {
	Level      int                `json:"level"`
	Text       string             `json:"text"`
	Variants   map[string]string  `json:"variants"`
	Help       domain.HelpPayload `json:"help"`
	CorrectKey string             `json:"correctKey,omitempty"`
}

func newGameView(g domain.Game) gameView {
	v := gameView{
		ID:           g.ID,
		OwnerID:      g.OwnerID,
		Status:       g.Status,
		CurrentLevel: g.CurrentLevel,
		Levels:       len(g.Questions),
		Prize:        g.Prize,
		HelpsUsed:    make([]domain.HelpType, 0, len(g.HelpsUsed)),
		CreatedAt:    g.CreatedAt,
		FinishedAt:   g.FinishedAt,
	}
	for help, used := range g.HelpsUsed {
		if used {
			v.HelpsUsed = append(v.HelpsUsed, help)
		}
	}
	sort.Slice(v.HelpsUsed, func(i, j int) bool { return v.HelpsUsed[i] < v.HelpsUsed[j] })

	if q := g.CurrentQuestion(); q != nil {
		qv := &questionView{
			Level:    q.Level,
			Text:     q.Text,
			Variants: q.Variants,
			Help:     q.Help,
		}
		if g.Finished() {
			qv.CorrectKey = q.CorrectKey
		}
		v.Question = qv
	}
	return v
}

type answerView struct {
	Correct bool     `json:"correct"`
	Game    gameView `json:"game"`
}

type errorView struct {
	Error  string `json:"error"`
	GameID string `json:"gameId,omitempty"`
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrGameNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyFinished),
		errors.Is(err, domain.ErrExistingActiveGame),
		errors.Is(err, domain.ErrHelpAlreadyUsed),
		errors.Is(err, domain.ErrTimeExpired),
		errors.Is(err, domain.ErrConcurrentUpdate),
		errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidLevel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidAnswer), errors.Is(err, domain.ErrUnknownHelp):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newErrorView(err error) errorView {
	v := errorView{Error: err.Error()}
	var existing *domain.ExistingGameError
	if errors.As(err, &existing) {
		v.GameID = existing.GameID
	}
	return v
}
