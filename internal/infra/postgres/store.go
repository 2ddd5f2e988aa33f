package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"millionaire-quiz-service/internal/domain"
)

// uniqueViolation is the SQLSTATE raised by games_one_active_per_owner.
const uniqueViolation = "23505"

// Store persists games and users in Postgres. The full game is kept as JSONB
// next to the columns used for lookups; version is the optimistic lock.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, balance, created_at) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Name, u.Balance, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserExists
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	u := domain.User{ID: id}
	err := s.pool.QueryRow(ctx, `SELECT name, balance, created_at FROM users WHERE id=$1`, id).
		Scan(&u.Name, &u.Balance, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns users by balance, richest first.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, balance, created_at FROM users ORDER BY balance DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Balance, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) CreateGame(ctx context.Context, g domain.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO games (id, owner_id, status, current_level, prize, version, data, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)`,
		g.ID, g.OwnerID, string(g.Status), g.CurrentLevel, g.Prize, g.Version, string(data), g.CreatedAt, g.FinishedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		active, ok, lookupErr := s.ActiveGame(ctx, g.OwnerID)
		if lookupErr != nil {
			return lookupErr
		}
		if ok {
			return &domain.ExistingGameError{GameID: active.ID}
		}
	}
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id string) (domain.Game, error) {
	g, err := scanGame(s.pool.QueryRow(ctx, `SELECT data, version FROM games WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return g, err
}

func (s *Store) ActiveGame(ctx context.Context, ownerID string) (domain.Game, bool, error) {
	g, err := scanGame(s.pool.QueryRow(ctx,
		`SELECT data, version FROM games WHERE owner_id=$1 AND status=$2`, ownerID, string(domain.StatusInProgress)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Game{}, false, nil
	}
	if err != nil {
		return domain.Game{}, false, err
	}
	return g, true, nil
}

func (s *Store) SaveGame(ctx context.Context, g domain.Game, credit int64) (domain.Game, error) {
	saved := g.Clone()
	saved.Version++
	data, err := json.Marshal(saved)
	if err != nil {
		return domain.Game{}, fmt.Errorf("marshal game: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Game{}, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE games SET status=$1, current_level=$2, prize=$3, data=$4::jsonb, finished_at=$5, version=version+1
		WHERE id=$6 AND version=$7`,
		string(saved.Status), saved.CurrentLevel, saved.Prize, string(data), saved.FinishedAt, saved.ID, g.Version)
	if err != nil {
		return domain.Game{}, fmt.Errorf("save game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id=$1)`, g.ID).Scan(&exists); err != nil {
			return domain.Game{}, fmt.Errorf("save game: %w", err)
		}
		if !exists {
			return domain.Game{}, domain.ErrGameNotFound
		}
		return domain.Game{}, domain.ErrConcurrentUpdate
	}

	if credit != 0 {
		if _, err := tx.Exec(ctx, `UPDATE users SET balance = balance + $1 WHERE id=$2`, credit, saved.OwnerID); err != nil {
			return domain.Game{}, fmt.Errorf("credit balance: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Game{}, fmt.Errorf("commit save: %w", err)
	}
	return saved, nil
}

func (s *Store) GamesByOwner(ctx context.Context, ownerID string) ([]domain.Game, error) {
	rows, err := s.pool.Query(ctx, `SELECT data, version FROM games WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func scanGame(row pgx.Row) (domain.Game, error) {
	var (
		raw     []byte
		version int64
	)
	if err := row.Scan(&raw, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Game{}, err
		}
		return domain.Game{}, fmt.Errorf("scan game: %w", err)
	}
	var g domain.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal game: %w", err)
	}
	g.Version = version
	if g.HelpsUsed == nil {
		g.HelpsUsed = make(map[domain.HelpType]bool)
	}
	return g, nil
}
