package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"millionaire-quiz-service/internal/domain"
	"millionaire-quiz-service/internal/game"
)

// GameRepository persists games. SaveGame treats g.Version as the expected
// stored version, stores g with the version bumped and credits the owner's
// balance in the same atomic write.
type GameRepository interface {
	CreateGame(ctx context.Context, g domain.Game) error
	GetGame(ctx context.Context, id string) (domain.Game, error)
	ActiveGame(ctx context.Context, ownerID string) (domain.Game, bool, error)
	SaveGame(ctx context.Context, g domain.Game, credit int64) (domain.Game, error)
	GamesByOwner(ctx context.Context, ownerID string) ([]domain.Game, error)
}

// UserRepository persists players.
type UserRepository interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// QuestionRepository loads bank questions (from cache/backing store).
type QuestionRepository interface {
	QuestionsForLevel(ctx context.Context, level int) ([]domain.Question, error)
}

// GameService contains the game use cases: authorization, exclusive updates
// per game and settlement of prizes through the repository.
type GameService struct {
	games     GameRepository
	users     UserRepository
	questions QuestionRepository
	machine   *game.Machine

	clock quartz.Clock
	log   *zap.SugaredLogger
	newID func() string

	locks *keyedLocks
	feed  *feed
}

type Option func(*GameService)

// WithClock replaces the wall clock, used by tests to drive the time limit.
func WithClock(clock quartz.Clock) Option {
	return func(s *GameService) { s.clock = clock }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *GameService) { s.log = log }
}

// WithIDGenerator replaces uuid game ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *GameService) { s.newID = fn }
}

func NewGameService(games GameRepository, users UserRepository, questions QuestionRepository, machine *game.Machine, opts ...Option) *GameService {
	s := &GameService{
		games:     games,
		users:     users,
		questions: questions,
		machine:   machine,
		clock:     quartz.NewReal(),
		log:       zap.NewNop().Sugar(),
		newID:     uuid.NewString,
		locks:     newKeyedLocks(),
		feed:      newFeed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser adds a player with a zero balance.
func (s *GameService) RegisterUser(ctx context.Context, id, name string) (domain.User, error) {
	u := domain.User{ID: id, Name: name, CreatedAt: s.now()}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// User returns a player by id.
func (s *GameService) User(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetUser(ctx, id)
}

// CreateGame starts a new game for userID. An unfinished game blocks creation
// with *domain.ExistingGameError unless it already ran out of time, in which
// case it is settled as timed out first.
func (s *GameService) CreateGame(ctx context.Context, userID string) (domain.Game, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return domain.Game{}, err
	}

	unlock := s.locks.lock(ownerLockKey(userID))
	defer unlock()

	active, ok, err := s.games.ActiveGame(ctx, userID)
	if err != nil {
		return domain.Game{}, err
	}
	if ok {
		expired, err := s.expireActive(ctx, active.ID)
		if err != nil {
			return domain.Game{}, err
		}
		if !expired {
			return domain.Game{}, &domain.ExistingGameError{GameID: active.ID}
		}
	}

	bank, err := s.loadBank(ctx)
	if err != nil {
		return domain.Game{}, err
	}
	g, err := s.machine.NewGame(s.newID(), userID, bank, s.now())
	if err != nil {
		return domain.Game{}, err
	}
	if err := s.games.CreateGame(ctx, g); err != nil {
		return domain.Game{}, err
	}
	s.log.Infow("game created", "gameId", g.ID, "userId", userID)
	return g, nil
}

// Game returns a game to its owner.
func (s *GameService) Game(ctx context.Context, userID, gameID string) (domain.Game, error) {
	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, err
	}
	if g.OwnerID != userID {
		return domain.Game{}, domain.ErrNotAuthorized
	}
	return g, nil
}

// Answer submits an answer key for the current question.
func (s *GameService) Answer(ctx context.Context, userID, gameID, key string) (game.Result, error) {
	return s.transition(ctx, userID, gameID, func(g domain.Game, now time.Time) (game.Result, error) {
		return s.machine.SubmitAnswer(g, key, now)
	})
}

// UseHelp applies a one-time help to the current question.
func (s *GameService) UseHelp(ctx context.Context, userID, gameID string, help domain.HelpType) (domain.Game, error) {
	res, err := s.transition(ctx, userID, gameID, func(g domain.Game, _ time.Time) (game.Result, error) {
		return s.machine.UseHelp(g, help)
	})
	return res.Game, err
}

// TakeMoney cashes out the current level's prize.
func (s *GameService) TakeMoney(ctx context.Context, userID, gameID string) (domain.Game, error) {
	res, err := s.transition(ctx, userID, gameID, func(g domain.Game, now time.Time) (game.Result, error) {
		return s.machine.TakeMoney(g, now)
	})
	return res.Game, err
}

// Subscribe returns a channel of game updates for the owner. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(ctx context.Context, userID, gameID string) (<-chan domain.Game, func(), error) {
	g, err := s.Game(ctx, userID, gameID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.subscribe(g)
	return ch, cancel, nil
}

// Players lists users by balance, richest first.
func (s *GameService) Players(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Balance > users[j].Balance
	})
	return users, nil
}

// Profile builds userID's page as seen by viewerID.
func (s *GameService) Profile(ctx context.Context, viewerID, userID string) (domain.Profile, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	games, err := s.games.GamesByOwner(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].CreatedAt.After(games[j].CreatedAt)
	})

	summaries := make([]domain.GameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, domain.GameSummary{
			ID:           g.ID,
			Status:       g.Status,
			CurrentLevel: g.CurrentLevel,
			Prize:        g.Prize,
			CreatedAt:    g.CreatedAt,
			FinishedAt:   g.FinishedAt,
		})
	}
	return domain.Profile{User: u, Games: summaries, Own: viewerID != "" && viewerID == userID}, nil
}

// PrizeTable exposes the ladder for read models.
func (s *GameService) PrizeTable() []game.Level {
	return s.machine.Table().Snapshot()
}

func (s *GameService) transition(ctx context.Context, userID, gameID string, apply func(domain.Game, time.Time) (game.Result, error)) (game.Result, error) {
	unlock := s.locks.lock(gameLockKey(gameID))
	defer unlock()

	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return game.Result{}, err
	}
	if g.OwnerID != userID {
		return game.Result{}, domain.ErrNotAuthorized
	}

	now := s.now()
	if res, expired := s.machine.Expire(g, now); expired {
		saved, err := s.commit(ctx, res)
		if err != nil {
			return game.Result{Game: g}, err
		}
		return game.Result{Game: saved, Credit: res.Credit}, domain.ErrTimeExpired
	}

	res, err := apply(g, now)
	if err != nil {
		return game.Result{Game: g, Correct: res.Correct}, err
	}
	saved, err := s.commit(ctx, res)
	if err != nil {
		return game.Result{Game: g}, err
	}
	res.Game = saved
	return res, nil
}

// expireActive settles an expired active game under its game lock and
// reports whether it no longer blocks creation.
func (s *GameService) expireActive(ctx context.Context, gameID string) (bool, error) {
	unlock := s.locks.lock(gameLockKey(gameID))
	defer unlock()

	g, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return false, err
	}
	if g.Finished() {
		return true, nil
	}
	res, expired := s.machine.Expire(g, s.now())
	if !expired {
		return false, nil
	}
	if _, err := s.commit(ctx, res); err != nil {
		return false, err
	}
	return true, nil
}

func (s *GameService) commit(ctx context.Context, res game.Result) (domain.Game, error) {
	saved, err := s.games.SaveGame(ctx, res.Game, res.Credit)
	if err != nil {
		return domain.Game{}, err
	}
	s.feed.publish(saved)
	if saved.Finished() {
		s.log.Infow("game finished",
			"gameId", saved.ID,
			"userId", saved.OwnerID,
			"status", saved.Status,
			"level", saved.CurrentLevel,
			"prize", saved.Prize,
		)
	}
	return saved, nil
}

func (s *GameService) loadBank(ctx context.Context) ([][]domain.Question, error) {
	levels := s.machine.Table().Levels()
	bank := make([][]domain.Question, levels)
	for level := 0; level < levels; level++ {
		questions, err := s.questions.QuestionsForLevel(ctx, level)
		if err != nil {
			return nil, fmt.Errorf("load level %d questions: %w", level, err)
		}
		bank[level] = questions
	}
	return bank, nil
}

func (s *GameService) now() time.Time {
	return s.clock.Now()
}

func gameLockKey(id string) string  { return "game:" + id }
func ownerLockKey(id string) string { return "owner:" + id }
