package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"millionaire-quiz-service/internal/domain"
)

// Store keeps games and users in Redis so several service instances can share them.
// Layout:
//
//	game:{id}             JSON game
//	owner:{id}:active     id of the owner's unfinished game (SETNX guards creation)
//	owner:{id}:games      list of the owner's game ids
//	user:{id}             hash name, balance, created_at
//	users:balance         sorted set of user ids by balance
//
// SaveGame runs inside WATCH/MULTI on the game and active keys, so concurrent
// writers resolve to exactly one winner.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	created, err := s.client.HSetNX(ctx, userKey(u.ID), "name", u.Name).Result()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if !created {
		return domain.ErrUserExists
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, userKey(u.ID),
			"balance", u.Balance,
			"created_at", u.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.ZAdd(ctx, balancesKey, redis.Z{Score: float64(u.Balance), Member: u.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	fields, err := s.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return userFromHash(id, fields)
}

// ListUsers returns users by balance, richest first.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	ids, err := s.client.ZRevRange(ctx, balancesKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, userKey(id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
	}

	users := make([]domain.User, 0, len(ids))
	for i, id := range ids {
		u, err := userFromHash(id, cmds[i].Val())
		if err != nil {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) CreateGame(ctx context.Context, g domain.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}

	if !g.Finished() {
		claimed, err := s.client.SetNX(ctx, activeKey(g.OwnerID), g.ID, 0).Result()
		if err != nil {
			return fmt.Errorf("claim active game: %w", err)
		}
		if !claimed {
			activeID, err := s.client.Get(ctx, activeKey(g.OwnerID)).Result()
			if err != nil {
				return fmt.Errorf("read active game: %w", err)
			}
			return &domain.ExistingGameError{GameID: activeID}
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(g.ID), data, 0)
		pipe.RPush(ctx, ownedKey(g.OwnerID), g.ID)
		return nil
	})
	if err != nil {
		_ = s.client.Del(ctx, activeKey(g.OwnerID)).Err()
		return fmt.Errorf("store game: %w", err)
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id string) (domain.Game, error) {
	raw, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("get game: %w", err)
	}
	return decodeGame(raw)
}

func (s *Store) ActiveGame(ctx context.Context, ownerID string) (domain.Game, bool, error) {
	id, err := s.client.Get(ctx, activeKey(ownerID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Game{}, false, nil
	}
	if err != nil {
		return domain.Game{}, false, fmt.Errorf("get active game: %w", err)
	}
	g, err := s.GetGame(ctx, id)
	if err != nil {
		return domain.Game{}, false, err
	}
	return g, true, nil
}

func (s *Store) SaveGame(ctx context.Context, g domain.Game, credit int64) (domain.Game, error) {
	var saved domain.Game
	key := gameKey(g.ID)
	active := activeKey(g.OwnerID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrGameNotFound
		}
		if err != nil {
			return err
		}
		stored, err := decodeGame(raw)
		if err != nil {
			return err
		}
		if stored.Version != g.Version {
			return domain.ErrConcurrentUpdate
		}
		activeID, err := tx.Get(ctx, active).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		saved = g.Clone()
		saved.Version++
		data, err := json.Marshal(saved)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if saved.Finished() && activeID == saved.ID {
				pipe.Del(ctx, active)
			}
			if credit != 0 {
				pipe.HIncrBy(ctx, userKey(saved.OwnerID), "balance", credit)
				pipe.ZIncrBy(ctx, balancesKey, float64(credit), saved.OwnerID)
			}
			return nil
		})
		return err
	}, key, active)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return domain.Game{}, domain.ErrConcurrentUpdate
	case errors.Is(err, domain.ErrConcurrentUpdate), errors.Is(err, domain.ErrGameNotFound):
		return domain.Game{}, err
	case err != nil:
		return domain.Game{}, fmt.Errorf("save game: %w", err)
	}
	return saved, nil
}

func (s *Store) GamesByOwner(ctx context.Context, ownerID string) ([]domain.Game, error) {
	ids, err := s.client.LRange(ctx, ownedKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	games := make([]domain.Game, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		g, err := decodeGame([]byte(raw))
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

const balancesKey = "users:balance"

func gameKey(id string) string        { return "game:" + id }
func activeKey(ownerID string) string { return "owner:" + ownerID + ":active" }
func ownedKey(ownerID string) string  { return "owner:" + ownerID + ":games" }
func userKey(id string) string        { return "user:" + id }

func decodeGame(raw []byte) (domain.Game, error) {
	var g domain.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return domain.Game{}, fmt.Errorf("unmarshal game: %w", err)
	}
	if g.HelpsUsed == nil {
		g.HelpsUsed = make(map[domain.HelpType]bool)
	}
	return g, nil
}

func userFromHash(id string, fields map[string]string) (domain.User, error) {
	name, ok := fields["name"]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	u := domain.User{ID: id, Name: name}
	if raw, ok := fields["balance"]; ok {
		balance, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.User{}, fmt.Errorf("user %s balance: %w", id, err)
		}
		u.Balance = balance
	}
	if raw, ok := fields["created_at"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			u.CreatedAt = t
		}
	}
	return u, nil
}
