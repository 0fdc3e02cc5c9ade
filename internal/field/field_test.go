package field

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/cube"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 1.0 / 60

type fixture struct {
	t      *testing.T
	root   *timeline.Timeline
	bus    *event.Bus
	field  *Field
	events []event.Event
}

func newFixture(t *testing.T, tune func(cfg *config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	if tune != nil {
		tune(cfg)
	}
	fx := &fixture{t: t, root: timeline.New(nil), bus: event.NewBus()}
	fx.bus.SubscribeAll(func(ev event.Event) { fx.events = append(fx.events, ev) })
	f, err := New(fx.root, cfg, fx.bus, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	fx.field = f
	return fx
}

func (fx *fixture) run(seconds float64) {
	for seconds > 0 {
		fx.root.Step(frame)
		fx.field.Update(frame)
		seconds -= frame
	}
}

func (fx *fixture) count(kind event.Kind) int {
	n := 0
	for _, ev := range fx.events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

// kinds возвращает порядок событий, входящих в filter
func (fx *fixture) kinds(filter ...event.Kind) []event.Kind {
	var out []event.Kind
	for _, ev := range fx.events {
		for _, k := range filter {
			if ev.Kind() == k {
				out = append(out, k)
			}
		}
	}
	return out
}

func (fx *fixture) pickable(id uint32) *cube.Pickable {
	fx.t.Helper()
	p, ok := fx.field.Pickables().Get(id)
	require.True(fx.t, ok, "pickable %d", id)
	return p
}

// flat ровный участок высоты 0 без автоматического обрушения
func flat(rows, width, pickable int) *segment.Segment {
	body := make([][]int, rows)
	for z := range body {
		body[z] = make([]int, width)
	}
	return &segment.Segment{Name: "flat", Body: body, Pickable: pickable, AutoCollapse: -1}
}

func TestStartStageSetsLines(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))

	assert.Equal(t, PhaseStart, fx.field.Phase())
	assert.Equal(t, 3, fx.field.StartLineZ())
	assert.Equal(t, 5, fx.field.FinishLineZ())
	assert.Equal(t, 1, fx.field.QueuedPickables())

	err := fx.field.StartStage(1, flat(8, 3, 1), nil)
	assert.True(t, errors.Is(err, ErrBusy))
}

func TestPickableMovesRight(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))
	fx.run(2)

	p := fx.pickable(1)
	require.True(t, p.Alive())
	assert.Equal(t, vec.Vec3{X: 1, Y: 0, Z: 0}, p.Block)
	assert.Equal(t, 1, fx.count(event.KindPickableOnStage))

	fx.field.MovePickable(1, vec.DirRight, 1)
	fx.run(frame)
	assert.True(t, p.Moving)
	assert.Equal(t, 2, p.Block.X)

	fx.run(0.5)
	assert.False(t, p.Moving)
	assert.Equal(t, vec.Vec3{X: 2, Y: 0, Z: 0}, p.Block)
	require.Equal(t, 1, fx.count(event.KindPickableMoved))
	for _, ev := range fx.events {
		if moved, ok := ev.(event.PickableMoved); ok {
			assert.Equal(t, vec.Vec3{X: 1, Y: 0, Z: 0}, moved.From)
			assert.Equal(t, vec.Vec3{X: 2, Y: 0, Z: 0}, moved.To)
		}
	}
}

func TestMoveIntoOccupiedCellRejected(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 2), nil))
	fx.run(2)

	a, b := fx.pickable(1), fx.pickable(2)
	require.Equal(t, 1, a.Block.X)
	require.Equal(t, 2, b.Block.X)
	assert.False(t, fx.field.CanPickableCubeMove(a, b.Block))

	fx.field.MovePickable(a.ID, vec.DirRight, 1)
	fx.run(0.5)
	assert.Equal(t, vec.Vec3{X: 1, Y: 0, Z: 0}, a.Block)
	assert.False(t, a.Moving)
	dir, speed := a.PendingMove()
	assert.Equal(t, vec.DirNone, dir)
	assert.Zero(t, speed)
	assert.Zero(t, fx.count(event.KindPickableMoved))
}

func TestMoveOffEdgeRejected(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))
	fx.run(2)

	p := fx.pickable(1)
	assert.False(t, fx.field.CanPickableCubeMove(p, vec.Vec3{X: 1, Y: 0, Z: -1}))
	assert.False(t, fx.field.CanPickableCubeMove(p, vec.Vec3{X: 3, Y: 0, Z: 0}))
	assert.True(t, fx.field.CanPickableCubeMove(p, vec.Vec3{X: 1, Y: 0, Z: 1}))
}

func TestCollapseDropsPickableAndEndsGame(t *testing.T) {
	fx := newFixture(t, nil)
	seg := flat(8, 3, 1)
	seg.AutoCollapse = 2.5
	require.NoError(t, fx.field.StartStage(0, seg, nil))
	fx.run(2)

	p := fx.pickable(1)
	require.True(t, p.Alive())

	fx.run(1)
	assert.False(t, p.OnStage)
	assert.Equal(t, 1, fx.count(event.KindFallingPickable))
	assert.Equal(t, 1, fx.count(event.KindBeginGameover))
	assert.True(t, fx.field.Gameover())

	fx.run(1.5)
	assert.False(t, p.Active)
	assert.Zero(t, fx.field.Pickables().Len())
	assert.Equal(t, 1, fx.count(event.KindBeginGameover))
}

func TestStageCycle(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))
	fx.run(2)

	fx.field.MovePickable(1, vec.DirUp, 5)
	fx.run(4)

	p := fx.pickable(1)
	assert.Equal(t, 5, p.Block.Z)
	assert.Equal(t, PhaseNone, fx.field.Phase())
	assert.Equal(t, []event.Kind{
		event.KindFirstPickableStarted,
		event.KindAllPickableFinished,
		event.KindBeginStageClear,
		event.KindStageCleared,
	}, fx.kinds(
		event.KindFirstPickableStarted,
		event.KindAllPickableFinished,
		event.KindBeginStageClear,
		event.KindStageCleared,
	))
	assert.Equal(t, 5, fx.field.Stage().ActiveBottomZ())
	assert.Equal(t, segment.Formation{{1, 0}}, fx.field.Snapshot())

	for _, ev := range fx.events {
		if cleared, ok := ev.(event.StageCleared); ok {
			assert.Equal(t, 8, cleared.Rows)
			assert.Equal(t, 1, cleared.Cubes)
			assert.Greater(t, cleared.Time, 0.0)
		}
	}

	// Следующий участок: новый куб спит, пока к нему не подойдут
	require.NoError(t, fx.field.StartStage(1, flat(6, 3, 1), nil))
	assert.False(t, p.Finished)
	assert.Equal(t, 11, fx.field.StartLineZ())
	fx.run(2)

	sleeper := fx.pickable(2)
	assert.True(t, sleeper.Sleep)
	assert.Equal(t, vec.Vec3{X: 1, Y: 0, Z: 8}, sleeper.Block)
	fx.field.MovePickable(sleeper.ID, vec.DirUp, 1)
	_, speed := sleeper.PendingMove()
	assert.Zero(t, speed)

	fx.field.MovePickable(p.ID, vec.DirUp, 2)
	fx.run(1.5)
	assert.Equal(t, 7, p.Block.Z)
	assert.False(t, sleeper.Sleep)
	assert.Equal(t, 1, fx.count(event.KindPickableAwake))
}

func TestFinishedPickableCannotGoBack(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))
	fx.run(2)
	fx.field.MovePickable(1, vec.DirUp, 5)
	fx.run(1.5)

	p := fx.pickable(1)
	require.Equal(t, PhaseClear, fx.field.Phase())
	require.True(t, p.Finished)
	assert.False(t, fx.field.CanPickableCubeMove(p, vec.Vec3{X: 1, Y: 0, Z: 4}))
}

func TestSwitchFiresOnce(t *testing.T) {
	fx := newFixture(t, nil)
	seg := flat(8, 5, 1)
	seg.Switches = []segment.SwitchEntry{{Pos: segment.Cell{3, 2}, Targets: []segment.Cell{{4, 2}}}}
	require.NoError(t, fx.field.StartStage(0, seg, nil))
	fx.run(2)

	p := fx.pickable(1)
	require.Equal(t, 2, p.Block.X)
	fx.field.MovePickable(p.ID, vec.DirRight, 1)
	fx.run(0.5)
	fx.field.MovePickable(p.ID, vec.DirUp, 2)
	fx.run(1)
	require.Equal(t, vec.Vec3{X: 3, Y: 0, Z: 2}, p.Block)
	assert.Equal(t, 1, fx.count(event.KindSwitchActivated))

	y, ok := fx.field.Stage().StageHeight(vec.Vec3{X: 4, Z: 2})
	require.True(t, ok)
	assert.Equal(t, -1, y)

	fx.field.MovePickable(p.ID, vec.DirDown, 1)
	fx.run(0.5)
	fx.field.MovePickable(p.ID, vec.DirUp, 1)
	fx.run(0.5)
	assert.Equal(t, 2, p.Block.Z)
	assert.Equal(t, 1, fx.count(event.KindSwitchActivated))
}

func TestItemPickedOnArrival(t *testing.T) {
	fx := newFixture(t, nil)
	seg := flat(8, 5, 1)
	seg.Items = []segment.ItemEntry{{Pos: segment.Cell{2, 1}}}
	require.NoError(t, fx.field.StartStage(0, seg, nil))
	fx.run(2)
	require.Equal(t, 1, fx.field.Items().Len())

	fx.field.MovePickable(1, vec.DirUp, 1)
	fx.run(frame)
	assert.Equal(t, 1, fx.count(event.KindItemPicked))
	assert.Equal(t, 1, fx.field.Items().Picked())
	assert.Equal(t, 1, fx.field.Stats().Items)

	fx.run(1)
	assert.Zero(t, fx.field.Items().Len())
}

func TestOnewayForcesMove(t *testing.T) {
	fx := newFixture(t, nil)
	seg := flat(8, 5, 1)
	seg.Oneways = []segment.OnewayEntry{{Pos: segment.Cell{2, 1}, Dir: vec.DirUp, Power: 2}}
	require.NoError(t, fx.field.StartStage(0, seg, nil))
	fx.run(2)

	fx.field.MovePickable(1, vec.DirUp, 1)
	fx.run(1.5)
	p := fx.pickable(1)
	assert.Equal(t, 3, p.Block.Z)
	assert.Equal(t, 1, fx.count(event.KindOnewayActivated))
}

func TestFallingCubePressesPickable(t *testing.T) {
	fx := newFixture(t, nil)
	seg := flat(8, 5, 1)
	seg.Falling = []segment.FallingEntry{{Pos: segment.Cell{2, 1}, Interval: 0.5}}
	require.NoError(t, fx.field.StartStage(0, seg, nil))
	fx.run(2)

	fx.field.MovePickable(1, vec.DirUp, 1)
	fx.run(2.5)

	p := fx.pickable(1)
	assert.Equal(t, 1, p.Block.Z)
	assert.True(t, p.Pressed)
	assert.Equal(t, 1, fx.count(event.KindPressedPickable))
	assert.Equal(t, 1, fx.count(event.KindBeginGameover))
}

func TestGameoverAgreeCleansUp(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 2), nil))
	fx.run(2)

	fx.bus.Emit(event.GameoverAgree{Mode: event.ModeContinue})
	assert.Equal(t, PhaseCleanup, fx.field.Phase())
	fx.run(5)

	assert.Equal(t, PhaseNone, fx.field.Phase())
	assert.True(t, fx.field.Stage().IsEmpty())
	assert.Zero(t, fx.field.Pickables().Len())
	require.Equal(t, 1, fx.count(event.KindStageAllCollapsed))
	for _, ev := range fx.events {
		if done, ok := ev.(event.StageAllCollapsed); ok {
			assert.Equal(t, event.ModeContinue, done.Mode)
		}
	}

	// Продолжение восстанавливает расстановку
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 2), segment.Formation{{0, 1}}))
	fx.run(2)
	p := fx.pickable(1)
	assert.Equal(t, 0, p.Block.X)
	assert.Equal(t, fx.field.Stage().ActiveBottomZ()+1, p.Block.Z)
	assert.False(t, p.Sleep)
}

func TestUnknownPickableIsContractViolation(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config) { cfg.Simulation.Debug = true })
	assert.Panics(t, func() { fx.field.MovePickable(42, vec.DirUp, 1) })

	release := newFixture(t, nil)
	assert.NotPanics(t, func() { release.field.FallPickable(42) })
}

func TestBusCommandsIgnoreUnknownPickable(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config) { cfg.Simulation.Debug = true })
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))
	fx.run(2)

	assert.NotPanics(t, func() {
		fx.bus.Emit(event.MovePickable{ID: 999, Dir: vec.DirUp, Speed: 1})
		fx.bus.Emit(event.FallPickable{ID: 999})
	})
	assert.False(t, fx.field.TryMovePickable(999, vec.DirUp, 1))
	assert.False(t, fx.field.TryFallPickable(999))

	// Известный куб по-прежнему слушается шины
	fx.bus.Emit(event.MovePickable{ID: 1, Dir: vec.DirUp, Speed: 1})
	fx.run(0.5)
	assert.Equal(t, 1, fx.pickable(1).Block.Z)
}

func TestPickableAtHonoursPadding(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 2), nil))
	fx.run(2)
	a, b := fx.pickable(1), fx.pickable(2)
	require.True(t, a.AdjoinOther)
	require.True(t, b.AdjoinOther)

	got, ok := fx.field.PickableAt(a.Position.X(), a.Position.Z())
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)

	// Между соседями запас меньше: точка на стыке достаётся ближайшему
	got, ok = fx.field.PickableAt(a.Position.X()+0.4, a.Position.Z())
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)

	_, ok = fx.field.PickableAt(a.Position.X()-0.7, a.Position.Z())
	assert.False(t, ok)
}

func TestDisposeDetachesClock(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))
	fx.run(0.2)
	require.Equal(t, 1, fx.root.Children())

	fx.field.Dispose()
	assert.Zero(t, fx.root.Children())
	// Остаётся только подписка записи событий
	assert.Equal(t, 1, fx.bus.Len())
	assert.NotPanics(t, func() { fx.bus.Emit(event.MovePickable{ID: 1, Dir: vec.DirUp, Speed: 1}) })
}

func TestEntryWaitsForOccupiedCell(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config) { cfg.Pickable.EntryDelay = 3 })
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))
	fx.run(4)
	fx.field.MovePickable(1, vec.DirUp, 5)
	fx.run(4)
	require.Equal(t, PhaseNone, fx.field.Phase())

	p := fx.pickable(1)
	require.NoError(t, fx.field.StartStage(1, flat(6, 3, 1), nil))
	fx.run(1)

	// Куб встаёт на клетку появления следующего куба раньше, чем тот выйдет
	fx.field.MovePickable(p.ID, vec.DirUp, 3)
	fx.run(1.2)
	require.Equal(t, vec.Vec3{X: 1, Y: 0, Z: 8}, p.Block)

	fx.run(1.3)
	assert.Equal(t, 1, fx.field.Pickables().Len())
	assert.Equal(t, 1, fx.field.QueuedPickables())

	fx.field.MovePickable(p.ID, vec.DirUp, 1)
	fx.run(1.5)
	require.Equal(t, 9, p.Block.Z)
	assert.Zero(t, fx.field.QueuedPickables())
	next := fx.pickable(2)
	assert.Equal(t, vec.Vec3{X: 1, Y: 0, Z: 8}, next.Block)
	assert.False(t, next.Sleep)
}

func TestLaggingPickableHoldsFinish(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 2), nil))
	fx.run(2)

	a, b := fx.pickable(1), fx.pickable(2)
	fx.field.MovePickable(a.ID, vec.DirUp, 5)
	fx.field.MovePickable(b.ID, vec.DirUp, 4)
	fx.run(1.5)
	require.Equal(t, 5, a.Block.Z)
	require.Equal(t, 4, b.Block.Z)

	assert.Equal(t, PhaseFinish, fx.field.Phase())
	assert.False(t, a.Finished)
	assert.Zero(t, fx.count(event.KindAllPickableFinished))

	fx.field.MovePickable(b.ID, vec.DirUp, 1)
	fx.run(0.5)
	assert.Equal(t, 1, fx.count(event.KindAllPickableFinished))
	assert.True(t, a.Finished)
	assert.True(t, b.Finished)
}

func TestPickableCrossingFinishCountsLowerRow(t *testing.T) {
	fx := newFixture(t, nil)
	require.NoError(t, fx.field.StartStage(0, flat(8, 3, 1), nil))
	fx.run(2)

	p := fx.pickable(1)
	fx.field.MovePickable(p.ID, vec.DirUp, 4)
	fx.run(1.5)
	require.Equal(t, 4, p.Block.Z)
	require.Equal(t, PhaseFinish, fx.field.Phase())

	fx.field.MovePickable(p.ID, vec.DirUp, 1)
	fx.run(2 * frame)
	require.True(t, p.Moving)
	assert.Equal(t, 5, p.Block.Z)
	assert.Equal(t, 4, p.MinZ())
	assert.Equal(t, PhaseFinish, fx.field.Phase())

	fx.run(0.5)
	assert.False(t, p.Moving)
	assert.Equal(t, 1, fx.count(event.KindAllPickableFinished))
}

func TestMoveIntoMovingCubeRejected(t *testing.T) {
	fx := newFixture(t, nil)
	seg := flat(8, 5, 1)
	seg.Moving = []segment.MovingEntry{{Pos: segment.Cell{2, 1}, Pattern: "RL", Interval: 100}}
	require.NoError(t, fx.field.StartStage(0, seg, nil))
	fx.run(2)

	p := fx.pickable(1)
	require.Equal(t, 1, fx.field.Moving().Len())
	assert.False(t, fx.field.CanPickableCubeMove(p, vec.Vec3{X: 2, Y: 0, Z: 1}))
	assert.True(t, fx.field.CanPickableCubeMove(p, vec.Vec3{X: 1, Y: 0, Z: 0}))

	fx.field.MovePickable(p.ID, vec.DirUp, 1)
	fx.run(0.5)
	assert.Equal(t, vec.Vec3{X: 2, Y: 0, Z: 0}, p.Block)
}

func TestMoveUnderLandedFallingCubeRejected(t *testing.T) {
	fx := newFixture(t, nil)
	seg := flat(8, 5, 1)
	seg.Falling = []segment.FallingEntry{{Pos: segment.Cell{2, 1}, Interval: 0.5}}
	require.NoError(t, fx.field.StartStage(0, seg, nil))
	fx.run(1)

	p := fx.pickable(1)
	target := vec.Vec3{X: 2, Y: 0, Z: 1}
	var sawDown, sawDormant bool
	for i := 0; i < 4*60; i++ {
		fx.run(frame)
		fx.field.Falling().Each(func(f *cube.Falling) {
			switch f.State {
			case cube.FallingDown:
				sawDown = true
				assert.False(t, fx.field.CanPickableCubeMove(p, target))
			case cube.FallingDormant:
				if f.OnStage {
					sawDormant = true
					assert.True(t, fx.field.CanPickableCubeMove(p, target))
				}
			}
		})
	}
	assert.True(t, sawDown)
	assert.True(t, sawDormant)
}
