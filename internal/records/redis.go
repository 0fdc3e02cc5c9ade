package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/cube-runner/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisStore хранит рекорды в Redis: JSON под ключом <prefix>:records
// и таблицу лучших забегов в sorted set <prefix>:scores
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(addr, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if prefix == "" {
		prefix = "cube-runner"
	}
	logging.GetRecordsLogger().Info("🔴 Рекорды в Redis %s (%s)", addr, prefix)
	return NewRedisStoreWithClient(client, prefix), nil
}

// NewRedisStoreWithClient использует готовый клиент
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: prefix}
}

func (s *RedisStore) recordsKey() string { return s.keyPrefix + ":records" }
func (s *RedisStore) scoresKey() string  { return s.keyPrefix + ":scores" }

func (s *RedisStore) Load(ctx context.Context) (*Records, error) {
	data, err := s.client.Get(ctx, s.recordsKey()).Bytes()
	if err == redis.Nil {
		return New(), nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}

	r := New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}
	if r.Stages == nil {
		r.Stages = make(map[int]*StageRecord)
	}
	return r, nil
}

func (s *RedisStore) Save(ctx context.Context, r *Records) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := s.client.Set(ctx, s.recordsKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}

// SubmitScore добавляет забег в таблицу; повтор с меньшими очками не понижает запись
func (s *RedisStore) SubmitScore(ctx context.Context, runID string, score int) error {
	err := s.client.ZAddArgs(ctx, s.scoresKey(), redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(score), Member: runID}},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to submit score: %w", err)
	}
	return nil
}

func (s *RedisStore) TopScores(ctx context.Context, n int) ([]ScoreEntry, error) {
	stop := int64(n - 1)
	if n <= 0 {
		stop = -1
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.scoresKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read scores: %w", err)
	}
	out := make([]ScoreEntry, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		out = append(out, ScoreEntry{RunID: id, Score: int(z.Score)})
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
