package domain

import "errors"

var (
	// ErrNotAuthorized is returned when a user acts on a game they do not own.
	ErrNotAuthorized = errors.New("not authorized for this game")
	// ErrAlreadyFinished is returned for any transition on a finished game.
	ErrAlreadyFinished = errors.New("game already finished")
	// ErrExistingActiveGame is matched by *ExistingGameError.
	ErrExistingActiveGame = errors.New("user already has an active game")
	// ErrHelpAlreadyUsed is returned when a help is requested a second time.
	ErrHelpAlreadyUsed = errors.New("help already used")
	// ErrInvalidLevel covers cash-out at level zero and malformed level data.
	ErrInvalidLevel = errors.New("invalid level")
	// ErrUnknownHelp indicates an unsupported help type.
	ErrUnknownHelp = errors.New("unknown help type")
	// ErrInvalidAnswer indicates a submitted key outside a..d.
	ErrInvalidAnswer = errors.New("invalid answer key")
	// ErrTimeExpired is returned when the time limit ran out before the transition.
	ErrTimeExpired = errors.New("game time limit expired")
	// ErrConcurrentUpdate is returned when another writer saved the game first.
	ErrConcurrentUpdate = errors.New("game was modified concurrently")
	// ErrGameNotFound indicates an unknown game id.
	ErrGameNotFound = errors.New("game not found")
	// ErrUserNotFound indicates an unknown user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when registering an id twice.
	ErrUserExists = errors.New("user already exists")
	// ErrNoQuestions indicates the bank has no question for a level.
	ErrNoQuestions = errors.New("no questions for level")
)

// ExistingGameError carries the id of the active game that blocked creation.
type ExistingGameError struct {
	GameID string
}

func (e *ExistingGameError) Error() string {
	return ErrExistingActiveGame.Error() + ": " + e.GameID
}

// Is lets errors.Is(err, ErrExistingActiveGame) match.
func (e *ExistingGameError) Is(target error) bool {
	return target == ErrExistingActiveGame
}
