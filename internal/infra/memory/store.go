package memory

import (
	"context"
	"sort"
	"sync"

	"millionaire-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.GameRepository and
// app.UserRepository. One mutex guards games, users and the active-game index
// so a save and its balance credit happen together.
type Store struct {
	mu     sync.RWMutex
	games  map[string]domain.Game
	owned  map[string][]string
	active map[string]string
	users  map[string]domain.User
}

func NewStore() *Store {
	return &Store{
		games:  make(map[string]domain.Game),
		owned:  make(map[string][]string),
		active: make(map[string]string),
		users:  make(map[string]domain.User),
	}
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return domain.ErrUserExists
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

// ListUsers returns users by balance, richest first.
func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateGame(_ context.Context, g domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if activeID, ok := s.active[g.OwnerID]; ok {
		return &domain.ExistingGameError{GameID: activeID}
	}
	s.games[g.ID] = g.Clone()
	s.owned[g.OwnerID] = append(s.owned[g.OwnerID], g.ID)
	if !g.Finished() {
		s.active[g.OwnerID] = g.ID
	}
	return nil
}

func (s *Store) GetGame(_ context.Context, id string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return g.Clone(), nil
}

func (s *Store) ActiveGame(_ context.Context, ownerID string) (domain.Game, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[ownerID]
	if !ok {
		return domain.Game{}, false, nil
	}
	return s.games[id].Clone(), true, nil
}

func (s *Store) SaveGame(_ context.Context, g domain.Game, credit int64) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.games[g.ID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if stored.Version != g.Version {
		return domain.Game{}, domain.ErrConcurrentUpdate
	}

	saved := g.Clone()
	saved.Version++
	s.games[g.ID] = saved
	if saved.Finished() && s.active[saved.OwnerID] == saved.ID {
		delete(s.active, saved.OwnerID)
	}
	if credit != 0 {
		if u, ok := s.users[saved.OwnerID]; ok {
			u.Balance += credit
			s.users[saved.OwnerID] = u
		}
	}
	return saved.Clone(), nil
}

func (s *Store) GamesByOwner(_ context.Context, ownerID string) ([]domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.owned[ownerID]
	out := make([]domain.Game, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.games[id].Clone())
	}
	return out, nil
}

// CountGames returns the number of stored games.
func (s *Store) CountGames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
