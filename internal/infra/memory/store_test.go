package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"millionaire-quiz-service/internal/domain"
)

func TestStoreOneActiveGamePerOwner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.CreateGame(ctx, newGame("g1", "u1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := store.CreateGame(ctx, newGame("g2", "u1"))
	var existing *domain.ExistingGameError
	if !errors.As(err, &existing) || existing.GameID != "g1" {
		t.Fatalf("expected existing game g1, got %v", err)
	}
	if !errors.Is(err, domain.ErrExistingActiveGame) {
		t.Fatalf("expected ErrExistingActiveGame match, got %v", err)
	}
	if store.CountGames() != 1 {
		t.Fatalf("expected 1 game, got %d", store.CountGames())
	}

	if err := store.CreateGame(ctx, newGame("g3", "u2")); err != nil {
		t.Fatalf("other owner create: %v", err)
	}
}

func TestStoreSaveChecksVersionAndCredits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CreateUser(ctx, domain.User{ID: "u1", Name: "Vadik"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.CreateGame(ctx, newGame("g1", "u1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	g, _ := store.GetGame(ctx, "g1")
	g.CurrentLevel = 2
	g.Status = domain.StatusMoney
	g.Prize = 200
	saved, err := store.SaveGame(ctx, g, 200)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("expected version 1, got %d", saved.Version)
	}

	if _, err := store.SaveGame(ctx, g, 200); err != domain.ErrConcurrentUpdate {
		t.Fatalf("expected concurrent update, got %v", err)
	}

	u, _ := store.GetUser(ctx, "u1")
	if u.Balance != 200 {
		t.Fatalf("expected balance 200, got %d", u.Balance)
	}
	if _, ok, _ := store.ActiveGame(ctx, "u1"); ok {
		t.Fatalf("expected finished game to release the active slot")
	}
}

func TestStoreListUsersByBalance(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.CreateUser(ctx, domain.User{ID: "u1", Name: "Misha", Balance: 3000})
	_ = store.CreateUser(ctx, domain.User{ID: "u2", Name: "Vadik", Balance: 5000})

	if err := store.CreateUser(ctx, domain.User{ID: "u1"}); err != domain.ErrUserExists {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 || users[0].Name != "Vadik" || users[1].Name != "Misha" {
		t.Fatalf("unexpected order %+v", users)
	}
}

func newGame(id, owner string) domain.Game {
	return domain.Game{
		ID:        id,
		OwnerID:   owner,
		Status:    domain.StatusInProgress,
		HelpsUsed: map[domain.HelpType]bool{},
		CreatedAt: time.Now(),
	}
}
