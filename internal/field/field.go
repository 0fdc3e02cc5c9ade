// Package field связывает рельеф и пулы сущностей: ведёт фазы этапа,
// проверяет ходы кубов игрока и разрешает их взаимодействия с полем.
package field

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/cube"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/logging"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/stage"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
)

// ErrBusy этап нельзя начать, пока поле не в фазе NONE
var ErrBusy = errors.New("field: stage already running")

// entry куб игрока, ожидающий появления
type entry struct {
	pos   vec.Vec3 // y берётся из рельефа в момент появления
	sleep bool
}

// Stats счётчики текущего этапа
type Stats struct {
	Stage       int     `json:"stage"`
	Phase       Phase   `json:"phase"`
	StartLineZ  int     `json:"start_line_z"`
	FinishLineZ int     `json:"finish_line_z"`
	Elapsed     float64 `json:"elapsed"`
	Pickables   int     `json:"pickables"`
	Awake       int     `json:"awake"`
	Items       int     `json:"items"`
	ItemsTotal  int     `json:"items_total"`
	ActiveRows  int     `json:"active_rows"`
	PendingRows int     `json:"pending_rows"`
	Background  float64 `json:"background_z"`
	Gameover    bool    `json:"gameover"`
}

// Field поле игры. Владеет рельефом и всеми пулами; все изменения
// происходят внутри Update и обработчиков событий шины.
type Field struct {
	cfg    *config.Config
	bus    *event.Bus
	rng    *rand.Rand
	logger *logging.Logger

	clock   *timeline.Timeline // родитель рельефа и пулов
	entries *timeline.Timeline // цепочка появления кубов игрока

	stage     *stage.Stage
	pickables *cube.PickablePool
	items     *cube.ItemPool
	moving    *cube.MovingPool
	falling   *cube.FallingPool
	switches  *cube.SwitchPool
	oneways   *cube.OnewayPool

	phase       Phase
	stageIndex  int
	started     int // этапов, начатых с последней очистки
	startLineZ  int
	finishLineZ int
	segStartZ   int
	xOffset     int
	startedAt   float64
	queue       []entry
	background  float64

	rows         int
	itemsTotal   int
	collapseRate float64

	gameover    bool
	cleanupMode event.CollapseMode

	subs []event.Subscription
}

// New создаёт пустое поле и подписывает его на команды шины
func New(parent *timeline.Timeline, cfg *config.Config, bus *event.Bus, rng *rand.Rand) (*Field, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if bus == nil {
		bus = event.NewBus()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Simulation.Seed))
	}

	clock := timeline.New(parent)
	st, err := stage.New(clock, cfg.Stage, bus, rng)
	if err != nil {
		clock.Dispose()
		return nil, fmt.Errorf("field: %w", err)
	}

	f := &Field{
		cfg:     cfg,
		bus:     bus,
		rng:     rng,
		logger:  logging.GetFieldLogger(),
		clock:   clock,
		entries: timeline.New(clock),
		stage:   st,
	}
	f.newPools()

	f.subs = append(f.subs,
		event.On(bus, func(ev event.BuildOneLine) { f.entryCubes(ev.Z) }),
		event.On(bus, func(ev event.MovePickable) { f.TryMovePickable(ev.ID, ev.Dir, ev.Speed) }),
		event.On(bus, func(ev event.FallPickable) { f.TryFallPickable(ev.ID) }),
		event.On(bus, func(event.FallAllPickable) { f.FallAllPickable() }),
		event.On(bus, func(ev event.GameoverAgree) { f.GameoverAgree(ev.Mode) }),
	)
	return f, nil
}

func (f *Field) newPools() {
	f.pickables = cube.NewPickablePool(f.clock, f.cfg.Pickable, f.bus)
	f.items = cube.NewItemPool(f.clock, f.cfg.Item)
	f.moving = cube.NewMovingPool(f.clock, f.cfg.Moving)
	f.falling = cube.NewFallingPool(f.clock, f.cfg.Falling)
	f.switches = cube.NewSwitchPool(f.clock, f.cfg.Panel)
	f.oneways = cube.NewOnewayPool(f.clock, f.cfg.Panel)
}

func (f *Field) disposePools() {
	f.pickables.Dispose()
	f.items.Dispose()
	f.moving.Dispose()
	f.falling.Dispose()
	f.switches.Dispose()
	f.oneways.Dispose()
}

// Dispose отписывается от шины и уничтожает рельеф, пулы и шкалы поля
func (f *Field) Dispose() {
	for _, s := range f.subs {
		s.Unsubscribe()
	}
	f.subs = nil
	f.disposePools()
	f.stage.Dispose()
	f.clock.Dispose()
}

// StartStage добавляет участок в конец рельефа и начинает этап index.
// Если кубов игрока на поле нет, новые появляются бодрствующими по formation
// (или по расстановке по умолчанию); иначе кубы участка спят, пока их не разбудят.
func (f *Field) StartStage(index int, seg *segment.Segment, formation segment.Formation) error {
	if f.phase != PhaseNone {
		return fmt.Errorf("%w: phase %s", ErrBusy, f.phase)
	}
	if err := seg.Validate(); err != nil {
		return fmt.Errorf("field: segment %q: %w", seg.Name, err)
	}

	topZ, counts := f.stage.AddCubes(seg, seg.XOffset, nil)
	rows := seg.Rows()
	f.stageIndex = index
	f.xOffset = seg.XOffset
	f.segStartZ = topZ - rows
	f.startLineZ = f.segStartZ + min(f.cfg.Stage.StartLineOffset, rows-1)
	f.finishLineZ = min(max(topZ-f.cfg.Stage.FinishLineOffset, f.startLineZ+1), topZ-1)
	f.stage.SetFinishLine(f.finishLineZ)
	f.rows = rows
	f.itemsTotal = counts.Items
	f.items.ResetCounters()
	f.gameover = false

	place := seg.Place(f.segStartZ, seg.XOffset)
	f.items.AddEntries(place.Items)
	f.switches.AddEntries(place.Switches)
	f.moving.AddEntries(place.Moving)
	f.falling.AddEntries(place.Falling)
	f.oneways.AddEntries(place.Oneways)

	f.pickables.Each(func(p *cube.Pickable) { p.Finished = false })
	f.queuePickables(seg, formation)

	buildSpeed := seg.BuildSpeed
	if buildSpeed <= 0 {
		buildSpeed = 1
	}
	collapseSpeed := seg.CollapseSpeed
	if collapseSpeed <= 0 {
		collapseSpeed = 1
	}
	autoDelay := seg.AutoCollapse
	if autoDelay == 0 {
		autoDelay = f.cfg.Stage.AutoCollapseDelay
	}

	f.collapseRate = collapseSpeed
	f.stage.StartBuildStage(buildSpeed, f.started == 0)
	f.stage.SetupAutoCollapse(autoDelay, f.finishLineZ, collapseSpeed)
	f.started++

	f.logger.Info("Этап %d (%s): ряды [%d, %d), старт z=%d, финиш z=%d, кубов в очереди %d",
		index, seg.Name, f.segStartZ, topZ, f.startLineZ, f.finishLineZ, len(f.queue))
	f.setPhase(PhaseStart)
	return nil
}

// queuePickables ставит кубы игрока в очередь появления
func (f *Field) queuePickables(seg *segment.Segment, formation segment.Formation) {
	awake := f.pickables.Len() == 0
	idle := len(f.queue) == 0
	count := seg.Pickable
	var cells segment.Formation
	switch {
	case awake && len(formation) > 0:
		cells = seg.Fit(formation)
	case awake:
		if count <= 0 {
			count = 1
		}
		cells = seg.DefaultFormation(count)
	default:
		cells = seg.DefaultFormation(count)
	}

	for _, c := range cells {
		f.queue = append(f.queue, entry{
			pos:   vec.Vec3{X: c.X() + f.xOffset, Z: c.Z() + f.segStartZ},
			sleep: !awake,
		})
	}
	if idle && len(f.queue) > 0 {
		f.entries.After(f.cfg.Pickable.EntryDelay, f.entryNext)
	}
}

// entryNext выпускает очередной куб, как только под ним встал куб рельефа
func (f *Field) entryNext() {
	if len(f.queue) == 0 {
		return
	}
	e := f.queue[0]
	y, ok := f.stage.RideableHeight(e.pos)
	if !ok {
		if f.stage.ActiveRows() > 0 && e.pos.Z < f.stage.ActiveBottomZ() {
			f.logger.Warn("Клетка появления %s уже обрушена, куб пропущен", e.pos)
			f.queue = f.queue[1:]
			f.entries.After(0, f.entryNext)
			return
		}
		f.entries.After(f.cfg.Pickable.EntryInterval, f.entryNext)
		return
	}

	if f.entryBlocked(e.pos) {
		f.entries.After(f.cfg.Pickable.EntryInterval, f.entryNext)
		return
	}

	e.pos.Y = y
	f.queue = f.queue[1:]
	p := f.pickables.Spawn(e.pos, e.sleep, 0)
	f.logger.Debug("Куб игрока %d появляется в %s (sleep=%v)", p.ID, e.pos, e.sleep)
	if len(f.queue) > 0 {
		f.entries.After(f.cfg.Pickable.EntryInterval, f.entryNext)
	}
}

// entryBlocked сообщает, что клетку появления занимает другой куб
func (f *Field) entryBlocked(pos vec.Vec3) bool {
	if _, busy := f.pickables.Occupant(pos, 0); busy {
		return true
	}
	if _, busy := f.moving.Occupant(pos, 0); busy {
		return true
	}
	return f.falling.Occupies(pos)
}

// entryCubes выпускает сущности пулов, чей ряд только что построен
func (f *Field) entryCubes(z int) {
	f.items.EntryCube(z)
	f.switches.EntryCube(z)
	f.oneways.EntryCube(z)
	f.moving.EntryCube(z)
	f.falling.EntryCube(z)
}

// Update продвигает поле на один кадр. Порядок шагов фиксирован:
// пулы, падения, раздавливание, очистка, фазы, ходы, соседство, фон.
func (f *Field) Update(dt float64) {
	f.items.Update(dt, f.stage)
	f.moving.Update(dt, f.stage, f.blockedForMoving)
	f.falling.Update(dt, f.stage)
	f.switches.Update(dt, f.stage)
	f.oneways.Update(dt, f.stage)

	f.pickables.DetectFalls(f.stage)
	f.detectPressed()
	f.pickables.Prune()

	f.updatePhase()
	f.resolveMoves()
	f.updateAdjoin()
	f.updateBackground(dt)
}

func (f *Field) blockedForMoving(pos vec.Vec3) bool {
	if _, ok := f.pickables.Occupant(pos, 0); ok {
		return true
	}
	return f.falling.Occupies(pos)
}

func (f *Field) detectPressed() {
	f.pickables.Each(func(p *cube.Pickable) {
		if !p.Alive() || p.Pressed || p.Falling {
			return
		}
		if fc, ok := f.falling.CanPress(p.Block); ok {
			f.pickables.Press(p, fc.ID)
		}
	})
}

func (f *Field) updateBackground(dt float64) {
	sum, n := 0.0, 0
	f.pickables.Each(func(p *cube.Pickable) {
		if p.Alive() && !p.Sleep {
			sum += p.Position.Z()
			n++
		}
	})
	if n == 0 {
		return
	}
	k := min(1, f.cfg.Simulation.BackgroundFollowRate*dt)
	f.background += (sum/float64(n) - f.background) * k
}

// violation нарушение контракта вызывающим кодом
func (f *Field) violation(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if f.cfg.Simulation.Debug {
		panic("field: " + msg)
	}
	f.logger.Error("%s", msg)
}

func (f *Field) emit(ev event.Event) {
	f.bus.Emit(ev)
}

// Phase текущая фаза
func (f *Field) Phase() Phase { return f.phase }

// StageIndex номер текущего (или последнего) этапа
func (f *Field) StageIndex() int { return f.stageIndex }

func (f *Field) StartLineZ() int  { return f.startLineZ }
func (f *Field) FinishLineZ() int { return f.finishLineZ }

// Background смещение фона вдоль z
func (f *Field) Background() float64 { return f.background }

// Gameover сообщает, что конец игры объявлен и ждёт подтверждения
func (f *Field) Gameover() bool { return f.gameover }

// Stage рельеф поля
func (f *Field) Stage() *stage.Stage { return f.stage }

// Pickables пул кубов игрока
func (f *Field) Pickables() *cube.PickablePool { return f.pickables }

func (f *Field) Items() *cube.ItemPool      { return f.items }
func (f *Field) Moving() *cube.MovingPool   { return f.moving }
func (f *Field) Falling() *cube.FallingPool { return f.falling }
func (f *Field) Switches() *cube.SwitchPool { return f.switches }
func (f *Field) Oneways() *cube.OnewayPool  { return f.oneways }
func (f *Field) QueuedPickables() int       { return len(f.queue) }

// Stats собирает счётчики текущего этапа
func (f *Field) Stats() Stats {
	s := Stats{
		Stage:       f.stageIndex,
		Phase:       f.phase,
		StartLineZ:  f.startLineZ,
		FinishLineZ: f.finishLineZ,
		Items:       f.items.Picked(),
		ItemsTotal:  f.itemsTotal,
		ActiveRows:  f.stage.ActiveRows(),
		PendingRows: f.stage.PendingRows(),
		Background:  f.background,
		Gameover:    f.gameover,
	}
	if f.phase == PhaseFinish || f.phase == PhaseClear {
		s.Elapsed = f.clock.Now() - f.startedAt
	}
	f.pickables.Each(func(p *cube.Pickable) {
		if !p.Active || p.Falling {
			return
		}
		s.Pickables++
		if !p.Sleep && !p.Pressed {
			s.Awake++
		}
	})
	return s
}
