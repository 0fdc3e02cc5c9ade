package cube

import (
	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
)

// Moving куб, самостоятельно шагающий по шаблону направлений
type Moving struct {
	Body
	Stepping bool
	Falling  bool

	pattern  []vec.Direction
	step     int
	interval float64
	wait     float64
}

// NextDirection возвращает направление следующего шага шаблона
func (m *Moving) NextDirection() vec.Direction {
	return m.pattern[m.step]
}

// Occupies сообщает, занимает ли куб клетку (с учётом покидаемой)
func (m *Moving) Occupies(pos vec.Vec3) bool {
	if !m.Active || m.Falling {
		return false
	}
	return m.Block.SameColumn(pos) || (m.Stepping && m.Prev.SameColumn(pos))
}

// Blocker сообщает, занята ли клетка чем-то вне пула
type Blocker func(pos vec.Vec3) bool

// MovingPool пул движущихся кубов
type MovingPool struct {
	cfg     config.MovingConfig
	tl      *timeline.Timeline
	pending []segment.MovingDef
	cubes   *registry[*Moving]
	nextID  uint32
}

// NewMovingPool создаёт пул движущихся кубов
func NewMovingPool(parent *timeline.Timeline, cfg config.MovingConfig) *MovingPool {
	return &MovingPool{cfg: cfg, tl: timeline.New(parent), cubes: newRegistry[*Moving]()}
}

// AddEntries регистрирует точки появления участка
func (mp *MovingPool) AddEntries(defs []segment.MovingDef) {
	mp.pending = append(mp.pending, defs...)
}

// EntryCube создаёт кубы, чья точка появления лежит в ряду z
func (mp *MovingPool) EntryCube(z int) int {
	n := 0
	rest := mp.pending[:0]
	for _, d := range mp.pending {
		if d.Pos.Z != z {
			rest = append(rest, d)
			continue
		}
		mp.nextID++
		m := &Moving{
			Body:     newBody(mp.nextID, d.Pos, mp.tl),
			pattern:  d.Pattern,
			interval: d.Interval,
			wait:     d.Interval + d.Delay,
		}
		mp.cubes.put(m.ID, m)
		m.enter(0, mp.cfg.EntryOffset, mp.cfg.EntryDuration, nil)
		n++
	}
	mp.pending = rest
	return n
}

// Update продвигает таймеры шагов, роняет кубы без опоры и удаляет исчезнувшие.
// Шаг выполняется, только если клетка свободна и её высота равна высоте куба;
// иначе куб ждёт следующего интервала, не продвигая шаблон.
func (mp *MovingPool) Update(dt float64, g Ground, blocked Blocker) {
	mp.cubes.each(func(m *Moving) {
		if !m.Alive() || m.Falling {
			return
		}
		if groundLost(g, m.Block) {
			m.Falling = true
			m.Stepping = false
			m.fall(fallDistance, mp.cfg.FallDuration, nil)
			return
		}
		if m.Stepping || len(m.pattern) == 0 {
			return
		}
		m.wait -= dt
		if m.wait > 0 {
			return
		}
		m.wait = m.interval

		target := m.Block.Add(m.NextDirection().Offset())
		if !mp.canMove(m, target, g, blocked) {
			return
		}
		m.step = (m.step + 1) % len(m.pattern)
		m.Prev = m.Block
		m.Block = target
		m.Stepping = true
		m.tweenPosition(standOn(target), mp.cfg.StepDuration, timeline.InOutQuad).OnComplete(func() {
			m.Stepping = false
		})
	})
	mp.cubes.prune(func(m *Moving) bool { return m.Active }, func(m *Moving) { m.Dispose() })
}

func (mp *MovingPool) canMove(m *Moving, target vec.Vec3, g Ground, blocked Blocker) bool {
	y, ok := g.RideableHeight(target)
	if !ok || y != m.Block.Y {
		return false
	}
	if blocked != nil && blocked(target) {
		return false
	}
	_, busy := mp.Occupant(target, m.ID)
	return !busy
}

// Occupant возвращает движущийся куб в клетке pos
func (mp *MovingPool) Occupant(pos vec.Vec3, except uint32) (*Moving, bool) {
	var found *Moving
	mp.cubes.each(func(m *Moving) {
		if found == nil && m.ID != except && m.Occupies(pos) {
			found = m
		}
	})
	return found, found != nil
}

// MoveDown опускает кубы в колонке pos вслед за рельефом
func (mp *MovingPool) MoveDown(pos vec.Vec3) bool {
	moved := false
	mp.cubes.each(func(m *Moving) {
		if m.Active && !m.Falling && !m.Stepping && m.Block.SameColumn(pos) {
			m.lowerBlock(mp.cfg.StepDuration)
			moved = true
		}
	})
	return moved
}

// Each обходит кубы пула
func (mp *MovingPool) Each(fn func(m *Moving)) {
	mp.cubes.each(fn)
}

func (mp *MovingPool) Len() int     { return mp.cubes.len() }
func (mp *MovingPool) Pending() int { return len(mp.pending) }

// Dispose уничтожает кубы и шкалу пула
func (mp *MovingPool) Dispose() {
	mp.cubes.clear(func(m *Moving) { m.Dispose() })
	mp.tl.Dispose()
}
