package cube

import (
	"testing"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatGround рельеф из набора колонок
type flatGround map[[2]int]int

func plane(w, l, h int) flatGround {
	g := flatGround{}
	for x := 0; x < w; x++ {
		for z := 0; z < l; z++ {
			g[[2]int{x, z}] = h
		}
	}
	return g
}

func (g flatGround) StageHeight(pos vec.Vec3) (int, bool) {
	h, ok := g[[2]int{pos.X, pos.Z}]
	return h, ok
}

func (g flatGround) RideableHeight(pos vec.Vec3) (int, bool) {
	return g.StageHeight(pos)
}

func run(root *timeline.Timeline, seconds float64, each func()) {
	for seconds > 0 {
		root.Step(1.0 / 60)
		if each != nil {
			each()
		}
		seconds -= 1.0 / 60
	}
}

func newPickables(t *testing.T) (*timeline.Timeline, *event.Bus, *PickablePool) {
	t.Helper()
	root := timeline.New(nil)
	bus := event.NewBus()
	return root, bus, NewPickablePool(root, config.Default().Pickable, bus)
}

func TestPushAccumulatesSpeed(t *testing.T) {
	_, _, pool := newPickables(t)
	p := pool.Spawn(vec.Vec3{}, false, 0)

	p.Push(vec.DirUp, 1)
	p.Push(vec.DirUp, 2)
	dir, speed := p.PendingMove()
	assert.Equal(t, vec.DirUp, dir)
	assert.Equal(t, 3, speed)

	p.Push(vec.DirUp, 100)
	_, speed = p.PendingMove()
	assert.Equal(t, config.Default().Pickable.MaxSpeed, speed, "скорость ограничена")

	p.Push(vec.DirLeft, 1)
	dir, speed = p.PendingMove()
	assert.Equal(t, vec.DirLeft, dir)
	assert.Equal(t, 1, speed, "новое направление сбрасывает скорость")

	p.Push(vec.DirNone, 3)
	dir, _ = p.PendingMove()
	assert.Equal(t, vec.DirLeft, dir)
}

func TestStepDurationShrinksWithSpeed(t *testing.T) {
	_, _, pool := newPickables(t)
	p := pool.Spawn(vec.Vec3{}, false, 0)
	cfg := config.Default().Pickable

	p.Push(vec.DirUp, 1)
	slow := p.StepDuration()
	p.Push(vec.DirUp, 4)
	fast := p.StepDuration()

	assert.InDelta(t, cfg.MoveDurationMax, slow, 1e-9)
	assert.Less(t, fast, slow)
	assert.GreaterOrEqual(t, fast, cfg.MoveDurationMin)
}

func TestPickableStepAndArrival(t *testing.T) {
	root, bus, pool := newPickables(t)
	var onStage []uint32
	var moved []event.PickableMoved
	event.On(bus, func(ev event.PickableOnStage) { onStage = append(onStage, ev.ID) })
	event.On(bus, func(ev event.PickableMoved) { moved = append(moved, ev) })

	p := pool.Spawn(vec.Vec3{}, false, 0)
	assert.False(t, p.OnStage)
	run(root, 1, nil)
	require.True(t, p.OnStage)
	assert.Equal(t, []uint32{p.ID}, onStage)

	p.Push(vec.DirRight, 1)
	target, ok := pool.Step(p, nil)
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{X: 1}, target)
	assert.True(t, p.Moving)
	assert.Equal(t, vec.Vec3{X: 1}, p.Block, "клетка меняется в начале шага")
	assert.Equal(t, vec.Vec3{}, p.Prev)

	_, again := pool.Step(p, nil)
	assert.False(t, again, "новый шаг во время движения не начинается")

	run(root, 1, nil)
	assert.False(t, p.Moving)
	require.Len(t, moved, 1)
	assert.Equal(t, vec.Vec3{X: 1}, moved[0].To)
	assert.Equal(t, vec.DirRight, moved[0].Dir)
	dir, speed := p.PendingMove()
	assert.Equal(t, vec.DirNone, dir)
	assert.Equal(t, 0, speed)
	assert.InDelta(t, 1.0, p.Position.X(), 1e-9)
}

func TestPickableFallsWhenGroundDisappears(t *testing.T) {
	root, bus, pool := newPickables(t)
	var falling []uint32
	event.On(bus, func(ev event.FallingPickable) { falling = append(falling, ev.ID) })

	p := pool.Spawn(vec.Vec3{X: 2, Z: 5}, false, 0)
	run(root, 1, nil)

	g := plane(5, 5, 0) // ряда z=5 нет
	fallen := pool.DetectFalls(g)
	require.Len(t, fallen, 1)
	assert.False(t, p.OnStage)
	assert.True(t, p.Active)
	assert.Equal(t, []uint32{p.ID}, falling)

	assert.Empty(t, pool.DetectFalls(g), "падение начинается один раз")

	run(root, 2, nil)
	assert.False(t, p.Active)
	assert.Equal(t, 1, pool.Prune())
	assert.Equal(t, 0, pool.Len())
}

func TestPressedPickable(t *testing.T) {
	root, bus, pool := newPickables(t)
	pressed, falling := 0, 0
	event.On(bus, func(event.PressedPickable) { pressed++ })
	event.On(bus, func(event.FallingPickable) { falling++ })

	p := pool.Spawn(vec.Vec3{}, false, 0)
	run(root, 1, nil)
	p.Push(vec.DirUp, 2)

	assert.True(t, pool.Press(p, 7))
	assert.False(t, pool.Press(p, 7), "раздавить дважды нельзя")
	assert.True(t, p.Pressed)
	_, speed := p.PendingMove()
	assert.Equal(t, 0, speed)

	_, blocked := pool.Occupant(vec.Vec3{}, 0)
	assert.True(t, blocked, "раздавленный куб занимает клетку")

	pool.Fall(p)
	assert.Equal(t, 1, pressed)
	assert.Equal(t, 0, falling, "раздавленный куб падает без события")
}

func TestOccupantSeesLeavingCell(t *testing.T) {
	root, _, pool := newPickables(t)
	a := pool.Spawn(vec.Vec3{}, false, 0)
	run(root, 1, nil)

	a.Push(vec.DirRight, 1)
	pool.Step(a, nil)

	got, ok := pool.Occupant(vec.Vec3{}, 0)
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)
	_, ok = pool.Occupant(vec.Vec3{X: 1}, a.ID)
	assert.False(t, ok)

	run(root, 1, nil)
	_, ok = pool.Occupant(vec.Vec3{}, 0)
	assert.False(t, ok)
}

func TestItemPickedOnce(t *testing.T) {
	root := timeline.New(nil)
	pool := NewItemPool(root, config.Default().Item)
	pool.AddEntries([]segment.ItemDef{{Pos: vec.Vec3{X: 1, Z: 2}}, {Pos: vec.Vec3{X: 0, Z: 3}}})

	assert.Equal(t, 0, pool.EntryCube(1))
	assert.Equal(t, 1, pool.EntryCube(2))
	assert.Equal(t, 1, pool.Pending())
	run(root, 1, nil)

	_, ok := pool.Pick(vec.Vec3{X: 0, Z: 2})
	assert.False(t, ok)
	it, ok := pool.Pick(vec.Vec3{X: 1, Z: 2})
	require.True(t, ok)
	assert.False(t, it.Getatable)
	_, ok = pool.Pick(vec.Vec3{X: 1, Z: 2})
	assert.False(t, ok, "второй претендент не получает предмет")
	assert.Equal(t, 1, pool.Picked())

	run(root, 1, nil)
	pool.Update(0, plane(3, 5, 0))
	assert.Equal(t, 0, pool.Len())
}

func TestItemMoveDownFollowsGround(t *testing.T) {
	root := timeline.New(nil)
	pool := NewItemPool(root, config.Default().Item)
	pool.AddEntries([]segment.ItemDef{{Pos: vec.Vec3{X: 0, Y: 1, Z: 0}}})
	pool.EntryCube(0)
	run(root, 1, nil)

	assert.True(t, pool.MoveDown(vec.Vec3{}))
	var item *Item
	pool.Each(func(it *Item) { item = it })
	assert.Equal(t, 0, item.Block.Y)
}

func TestMovingFollowsPatternAndWaitsWhenBlocked(t *testing.T) {
	root := timeline.New(nil)
	pool := NewMovingPool(root, config.Default().Moving)
	pool.AddEntries([]segment.MovingDef{{
		Pos:      vec.Vec3{},
		Pattern:  []vec.Direction{vec.DirRight, vec.DirLeft},
		Interval: 1,
	}})
	pool.EntryCube(0)
	g := plane(3, 3, 0)

	blocked := true
	block := func(pos vec.Vec3) bool { return blocked && pos == vec.Vec3{X: 1} }
	run(root, 2, func() { pool.Update(1.0/60, g, block) })

	var m *Moving
	pool.Each(func(c *Moving) { m = c })
	require.NotNil(t, m)
	assert.Equal(t, vec.Vec3{}, m.Block, "занятая клетка: куб ждёт")
	assert.Equal(t, vec.DirRight, m.NextDirection(), "шаблон не продвигается")

	blocked = false
	run(root, 1.2, func() { pool.Update(1.0/60, g, block) })
	assert.Equal(t, vec.Vec3{X: 1}, m.Block)
	assert.Equal(t, vec.DirLeft, m.NextDirection())

	_, ok := pool.Occupant(vec.Vec3{X: 1}, 0)
	assert.True(t, ok)
}

func TestMovingFallsWithoutGround(t *testing.T) {
	root := timeline.New(nil)
	pool := NewMovingPool(root, config.Default().Moving)
	pool.AddEntries([]segment.MovingDef{{Pos: vec.Vec3{Z: 4}, Pattern: []vec.Direction{vec.DirUp}, Interval: 1}})
	pool.EntryCube(4)
	run(root, 1, nil)

	pool.Update(0, plane(2, 2, 0), nil)
	var m *Moving
	pool.Each(func(c *Moving) { m = c })
	require.NotNil(t, m)
	assert.True(t, m.Falling)
	assert.False(t, m.Occupies(vec.Vec3{Z: 4}))

	run(root, 2, nil)
	pool.Update(0, plane(2, 2, 0), nil)
	assert.Equal(t, 0, pool.Len())
}

func TestFallingPressWindowIsOneFrame(t *testing.T) {
	root := timeline.New(nil)
	pool := NewFallingPool(root, config.Default().Falling)
	pool.AddEntries([]segment.FallingDef{{Pos: vec.Vec3{X: 1, Z: 1}, Interval: 1}})
	pool.EntryCube(1)
	g := plane(3, 3, 0)

	pressFrames := 0
	sawDown := false
	run(root, 3, func() {
		pool.Update(1.0/60, g)
		if _, ok := pool.CanPress(vec.Vec3{X: 1, Z: 1}); ok {
			pressFrames++
		}
		if pool.Occupies(vec.Vec3{X: 1, Z: 1}) {
			sawDown = true
		}
	})

	assert.Equal(t, 1, pressFrames)
	assert.True(t, sawDown)
	_, ok := pool.CanPress(vec.Vec3{X: 0, Z: 1})
	assert.False(t, ok)
}

func TestPanelsFireOnce(t *testing.T) {
	root := timeline.New(nil)
	cfg := config.Default().Panel
	switches := NewSwitchPool(root, cfg)
	oneways := NewOnewayPool(root, cfg)

	switches.AddEntries([]segment.SwitchDef{{Pos: vec.Vec3{X: 3, Z: 2}, Targets: []vec.Vec3{{X: 5, Z: 2}}}})
	oneways.AddEntries([]segment.OnewayDef{{Pos: vec.Vec3{X: 1, Z: 2}, Dir: vec.DirUp, Power: 3}})
	switches.EntryCube(2)
	oneways.EntryCube(2)
	run(root, 1, nil)

	s, ok := switches.Activate(vec.Vec3{X: 3, Z: 2})
	require.True(t, ok)
	assert.Equal(t, []vec.Vec3{{X: 5, Z: 2}}, s.Targets)
	_, ok = switches.Activate(vec.Vec3{X: 3, Z: 2})
	assert.False(t, ok)

	o, ok := oneways.Activate(vec.Vec3{X: 1, Z: 2})
	require.True(t, ok)
	assert.Equal(t, vec.DirUp, o.Dir)
	assert.Equal(t, 3, o.Power)
	_, ok = oneways.Activate(vec.Vec3{X: 1, Z: 2})
	assert.False(t, ok)
}

func TestDisposeDetachesPools(t *testing.T) {
	root := timeline.New(nil)
	pickables := NewPickablePool(root, config.Default().Pickable, nil)
	items := NewItemPool(root, config.Default().Item)
	pickables.Spawn(vec.Vec3{}, false, 0)
	require.Equal(t, 2, root.Children())

	pickables.Dispose()
	items.Dispose()
	assert.Equal(t, 0, root.Children())
	assert.Equal(t, 0, pickables.Len())
}
