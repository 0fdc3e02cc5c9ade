package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/annel0/cube-runner/internal/logging"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

var (
	recordsKey  = []byte("records")
	scorePrefix = []byte("score:")
)

// BadgerStore хранит рекорды в BadgerDB; значение: JSON, сжатый zstd
type BadgerStore struct {
	db           *badger.DB
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
	mu           sync.Mutex
	closed       bool
}

// NewBadgerStore открывает базу в каталоге dataPath/records
func NewBadgerStore(dataPath string) (*BadgerStore, error) {
	dbPath := filepath.Join(dataPath, "records")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	logging.GetRecordsLogger().Info("Рекорды в BadgerDB: %s", dbPath)
	return &BadgerStore{db: db, compressor: enc, decompressor: dec}, nil
}

func (s *BadgerStore) Load(ctx context.Context) (*Records, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordsKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("records: чтение из BadgerDB: %w", err)
	}

	data, err := s.decompressor.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("records: распаковка: %w", err)
	}
	r := New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("records: разбор: %w", err)
	}
	if r.Stages == nil {
		r.Stages = make(map[int]*StageRecord)
	}
	return r, nil
}

func (s *BadgerStore) Save(ctx context.Context, r *Records) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("records: сериализация: %w", err)
	}

	s.mu.Lock()
	packed := s.compressor.EncodeAll(data, nil)
	s.mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordsKey, packed)
	})
	if err != nil {
		return fmt.Errorf("records: запись в BadgerDB: %w", err)
	}
	return nil
}

// SubmitScore сохраняет очки забега, если они выше уже записанных
func (s *BadgerStore) SubmitScore(ctx context.Context, runID string, score int) error {
	key := append(append([]byte(nil), scorePrefix...), runID...)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var prev int
			if err := item.Value(func(val []byte) error {
				prev, err = strconv.Atoi(string(val))
				return err
			}); err != nil {
				return err
			}
			if prev >= score {
				return nil
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, []byte(strconv.Itoa(score)))
	})
}

// TopScores возвращает n лучших забегов
func (s *BadgerStore) TopScores(ctx context.Context, n int) ([]ScoreEntry, error) {
	var out []ScoreEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(scorePrefix); it.ValidForPrefix(scorePrefix); it.Next() {
			item := it.Item()
			runID := strings.TrimPrefix(string(item.Key()), string(scorePrefix))
			err := item.Value(func(val []byte) error {
				score, err := strconv.Atoi(string(val))
				if err != nil {
					return err
				}
				out = append(out, ScoreEntry{RunID: runID, Score: score})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("records: таблица очков: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Close закрывает базу
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.compressor.Close()
	s.decompressor.Close()
	return s.db.Close()
}
