// Package game ведёт забег: глобальные часы, поле, источник участков и рекорды.
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/field"
	"github.com/annel0/cube-runner/internal/logging"
	"github.com/annel0/cube-runner/internal/records"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/google/uuid"
)

const storeTimeout = 2 * time.Second

// Snapshot состояние забега для чтения из других горутин
type Snapshot struct {
	RunID      string               `json:"run_id"`
	Time       float64              `json:"time"`
	Field      field.Stats          `json:"field"`
	RunScore   int                  `json:"run_score"`
	HighScore  int                  `json:"high_score"`
	PlayCount  int                  `json:"play_count"`
	LastResult *records.StageResult `json:"last_result,omitempty"`
	Over       bool                 `json:"over"`
}

// Game забег. Step и обработчики событий выполняются в одной горутине;
// Snapshot и Records безопасны для вызова из других.
type Game struct {
	cfg    *config.Config
	bus    *event.Bus
	clock  *timeline.Timeline
	field  *field.Field
	source segment.Source
	store  records.Store
	logger *logging.Logger

	onGameover event.CollapseMode
	subs       []event.Subscription

	mu         sync.RWMutex
	records    *records.Records
	runID      string
	lastClear  float64
	lastResult *records.StageResult
	over       bool
	snap       Snapshot
}

// New создаёт забег и загружает рекорды из store
func New(cfg *config.Config, source segment.Source, store records.Store) (*Game, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if store == nil {
		store = records.NewMemoryStore()
	}
	mode, err := event.ParseCollapseMode(cfg.Simulation.OnGameover)
	if err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	rec, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("game: загрузка рекордов: %w", err)
	}

	bus := event.NewBus()
	clock := timeline.New(nil)
	f, err := field.New(clock, cfg, bus, rand.New(rand.NewSource(cfg.Simulation.Seed)))
	if err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}

	g := &Game{
		cfg:        cfg,
		bus:        bus,
		clock:      clock,
		field:      f,
		source:     source,
		store:      store,
		logger:     logging.GetComponentLogger(logging.ComponentGame),
		onGameover: mode,
		records:    rec,
	}
	g.subs = append(g.subs,
		event.On(bus, g.onStageCleared),
		event.On(bus, g.onBeginGameover),
		event.On(bus, g.onAllCollapsed),
	)
	g.refresh()
	return g, nil
}

// Bus шина событий забега
func (g *Game) Bus() *event.Bus { return g.bus }

// Field поле забега; только для горутины симуляции
func (g *Game) Field() *field.Field { return g.field }

// Clock глобальные часы
func (g *Game) Clock() *timeline.Timeline { return g.clock }

// RunID идентификатор текущего забега
func (g *Game) RunID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.runID
}

// RunInfo контекст для внешних конвертов событий; только для горутины симуляции
func (g *Game) RunInfo() (string, int, float64) {
	return g.RunID(), g.field.StageIndex(), g.clock.Now()
}

// StartRun начинает новый забег с этапа stage
func (g *Game) StartRun(stage int) error {
	return g.begin(stage, nil)
}

// Continue продолжает с последнего достигнутого этапа и сохранённой расстановки
func (g *Game) Continue() error {
	g.mu.RLock()
	stage, formation := g.records.LastStage, g.records.Continue
	g.mu.RUnlock()
	return g.begin(stage, formation)
}

func (g *Game) begin(stage int, formation segment.Formation) error {
	seg, err := g.source.Segment(stage)
	if err != nil {
		return fmt.Errorf("game: участок %d: %w", stage, err)
	}

	g.mu.Lock()
	g.runID = uuid.NewString()
	g.over = false
	g.lastClear = g.clock.Now()
	g.mu.Unlock()

	if err := g.field.StartStage(stage, seg, formation); err != nil {
		return err
	}
	g.logger.Info("🎮 Забег %s: этап %d", g.runID, stage)
	g.refresh()
	return nil
}

// Step продвигает симуляцию на dt секунд; dt ограничивается
// simulation.max_progressing_seconds
func (g *Game) Step(dt float64) {
	if dt <= 0 {
		return
	}
	if limit := g.cfg.Simulation.MaxProgressingSeconds; limit > 0 && dt > limit {
		dt = limit
	}
	g.clock.Step(dt)
	g.field.Update(dt)
	g.refresh()
}

func (g *Game) onStageCleared(ev event.StageCleared) {
	res := records.ComputeStageResult(records.FromEvent(ev), g.cfg.Records)
	formation := g.field.Snapshot()

	g.mu.Lock()
	best := g.records.ApplyStageClear(res, formation)
	g.lastResult = &res
	g.lastClear = g.clock.Now()
	g.mu.Unlock()

	g.logger.Info("🏁 Этап %d пройден за %.2fс (контроль %.2fс): %s, очки %d, предметы %d/%d, рекорд=%v",
		res.Stage, res.Time, res.Par, res.Rank, res.Score, res.Items, res.ItemsTotal, best)
	g.save()

	next := ev.Stage + 1
	seg, err := g.source.Segment(next)
	if err != nil {
		g.logger.Error("Не удалось получить участок %d: %v", next, err)
		g.bus.Emit(event.FallAllPickable{})
		return
	}
	if err := g.field.StartStage(next, seg, nil); err != nil {
		g.logger.Error("Не удалось начать этап %d: %v", next, err)
	}
}

func (g *Game) onBeginGameover(ev event.BeginGameover) {
	g.mu.Lock()
	score := g.records.RunScore
	best := g.records.ApplyGameOver(ev.Stage, g.clock.Now()-g.lastClear)
	runID := g.runID
	g.mu.Unlock()

	g.logger.Info("💀 Конец игры на этапе %d (%s): очки %d, рекорд=%v", ev.Stage, ev.Reason, score, best)
	if lb, ok := g.store.(records.Leaderboard); ok && score > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := lb.SubmitScore(ctx, runID, score); err != nil {
			g.logger.Warn("Не удалось записать очки забега: %v", err)
		}
		cancel()
	}
	g.save()

	mode := g.onGameover
	g.clock.After(g.cfg.Simulation.GameoverDelay, func() {
		g.bus.Emit(event.GameoverAgree{Mode: mode})
	})
}

func (g *Game) onAllCollapsed(ev event.StageAllCollapsed) {
	var err error
	switch ev.Mode {
	case event.ModeRestart:
		err = g.StartRun(0)
	case event.ModeContinue:
		err = g.Continue()
	default:
		g.mu.Lock()
		g.over = true
		g.mu.Unlock()
		g.logger.Info("Забег завершён")
	}
	if err != nil {
		g.logger.Error("Не удалось начать новый забег: %v", err)
		g.mu.Lock()
		g.over = true
		g.mu.Unlock()
	}
}

func (g *Game) save() {
	g.mu.RLock()
	rec := g.records.Clone()
	g.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := g.store.Save(ctx, rec); err != nil {
		g.logger.Error("Не удалось сохранить рекорды: %v", err)
	}
}

func (g *Game) refresh() {
	stats := g.field.Stats()
	g.mu.Lock()
	g.snap = Snapshot{
		RunID:      g.runID,
		Time:       g.clock.Now(),
		Field:      stats,
		RunScore:   g.records.RunScore,
		HighScore:  g.records.HighScore,
		PlayCount:  g.records.PlayCount,
		LastResult: g.lastResult,
		Over:       g.over,
	}
	g.mu.Unlock()
}

// Snapshot возвращает последнее состояние забега
func (g *Game) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snap
}

// Over сообщает, что забег завершён без продолжения
func (g *Game) Over() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.over
}

// Records возвращает копию рекордов
func (g *Game) Records() *records.Records {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.records.Clone()
}

// Close сохраняет рекорды и освобождает поле
func (g *Game) Close() error {
	g.save()
	for _, s := range g.subs {
		s.Unsubscribe()
	}
	g.field.Dispose()
	g.clock.Dispose()
	return g.store.Close()
}
