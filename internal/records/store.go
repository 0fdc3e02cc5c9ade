package records

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/logging"
)

// Store хранилище рекордов
type Store interface {
	// Load возвращает сохранённые рекорды или пустые, если их ещё нет
	Load(ctx context.Context) (*Records, error)
	Save(ctx context.Context, r *Records) error
	Close() error
}

// ScoreEntry строка таблицы лучших забегов
type ScoreEntry struct {
	RunID string `json:"run_id"`
	Score int    `json:"score"`
}

// Leaderboard таблица лучших забегов; реализуют не все хранилища
type Leaderboard interface {
	SubmitScore(ctx context.Context, runID string, score int) error
	TopScores(ctx context.Context, n int) ([]ScoreEntry, error)
}

// Open создаёт хранилище по records.backend: memory | badger | redis
func Open(cfg config.RecordsConfig) (Store, error) {
	logger := logging.GetRecordsLogger()
	switch cfg.Backend {
	case "", "memory":
		logger.Info("Рекорды хранятся в памяти")
		return NewMemoryStore(), nil
	case "badger":
		return NewBadgerStore(cfg.Path)
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPrefix)
	}
	return nil, fmt.Errorf("records: unknown backend %q", cfg.Backend)
}

// MemoryStore хранилище в памяти для тестов и запуска без диска.
// Данные теряются при перезапуске.
type MemoryStore struct {
	mu     sync.RWMutex
	data   *Records
	scores []ScoreEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*Records, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return New(), nil
	}
	return m.data.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, r *Records) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = r.Clone()
	return nil
}

func (m *MemoryStore) SubmitScore(ctx context.Context, runID string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.scores {
		if e.RunID == runID {
			if score > e.Score {
				m.scores[i].Score = score
			}
			return nil
		}
	}
	m.scores = append(m.scores, ScoreEntry{RunID: runID, Score: score})
	return nil
}

func (m *MemoryStore) TopScores(ctx context.Context, n int) ([]ScoreEntry, error) {
	m.mu.RLock()
	out := append([]ScoreEntry(nil), m.scores...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
