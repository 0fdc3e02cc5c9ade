// Package stage управляет рельефом уровня: очередями рядов на постройку,
// активными рядами и рядами в процессе обрушения.
package stage

import (
	"fmt"
	"math/rand"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/logging"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
)

// Stage рельеф уровня.
// Активные ряды непрерывны по z и занимают диапазон [ActiveBottomZ, ActiveTopZ).
type Stage struct {
	cfg    config.StageConfig
	bus    *event.Bus
	rng    *rand.Rand
	logger *logging.Logger

	anim  *timeline.Timeline // анимации кубов
	tasks *timeline.Timeline // цепочки постройки и обрушения

	pending    []*Row
	active     []*Row
	collapsing []*Row

	bottomZ int // z нижнего активного ряда
	nextZ   int // z, который получит следующий добавленный ряд

	palette      []timeline.Color
	buildEases   []timeline.EaseFunc
	collapseEase timeline.EaseFunc

	building      bool
	finishedBuild bool
	buildSpeed    float64
	startSpeedup  bool
	builtInRun    int
	buildGen      int

	collapseRunning bool
	collapseStopZ   int
	collapseSpeed   float64
	collapseGen     int
	startedCollapse bool
	autoCollapse    *timeline.Item

	finishLineZ   int
	hasFinishLine bool
}

// New создаёт пустой рельеф со своими дочерними шкалами времени
func New(parent *timeline.Timeline, cfg config.StageConfig, bus *event.Bus, rng *rand.Rand) (*Stage, error) {
	palette := make([]timeline.Color, 0, len(cfg.Palette))
	for _, hex := range cfg.Palette {
		c, err := timeline.ParseHexColor(hex)
		if err != nil {
			return nil, fmt.Errorf("stage palette: %w", err)
		}
		palette = append(palette, c)
	}
	if len(palette) == 0 {
		palette = append(palette, timeline.White)
	}

	eases, err := timeline.EasesByName(cfg.BuildEases)
	if err != nil {
		return nil, fmt.Errorf("stage build eases: %w", err)
	}
	collapseEase := timeline.InQuad
	if cfg.CollapseEase != "" {
		if collapseEase, err = timeline.EaseByName(cfg.CollapseEase); err != nil {
			return nil, fmt.Errorf("stage collapse ease: %w", err)
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	return &Stage{
		cfg:           cfg,
		bus:           bus,
		rng:           rng,
		logger:        logging.GetStageLogger(),
		anim:          timeline.New(parent),
		tasks:         timeline.New(parent),
		palette:       palette,
		buildEases:    eases,
		collapseEase:  collapseEase,
		buildSpeed:    1,
		collapseSpeed: 1,
	}, nil
}

// Dispose отцепляет шкалы рельефа от родителя
func (s *Stage) Dispose() {
	s.tasks.Dispose()
	s.anim.Dispose()
}

// AddCubes разбирает участок в ряды очереди на постройку.
// Возвращает новый верхний z очереди и число точек появления сущностей участка.
// palette переопределяет палитру рельефа, nil: палитра из конфигурации.
func (s *Stage) AddCubes(seg *segment.Segment, xOffset int, palette []timeline.Color) (int, segment.Counts) {
	if len(palette) == 0 {
		palette = s.palette
	}
	cubes := 0
	for _, heights := range seg.Body {
		row := &Row{Z: s.nextZ}
		for x, y := range heights {
			if y < 0 {
				continue
			}
			pos := vec.Vec3{X: x + xOffset, Y: y, Z: s.nextZ}
			row.Cubes = append(row.Cubes, newCube(pos, palette[y%len(palette)]))
			cubes++
		}
		s.pending = append(s.pending, row)
		s.nextZ++
	}
	if len(s.active) == 0 && len(s.collapsing) == 0 && len(s.pending) == len(seg.Body) {
		s.bottomZ = s.pending[0].Z
	}
	s.finishedBuild = false
	s.logger.Debug("Добавлен участок %q: рядов %d, кубов %d, top=%d", seg.Name, seg.Rows(), cubes, s.nextZ)
	return s.nextZ, seg.Counts()
}

// SetFinishLine задаёт z ряда, постройка которого порождает BuildFinishLine
func (s *Stage) SetFinishLine(z int) {
	s.finishLineZ = z
	s.hasFinishLine = true
}

// ActiveBottomZ возвращает z нижнего активного ряда
func (s *Stage) ActiveBottomZ() int { return s.bottomZ }

// ActiveTopZ возвращает z за верхним активным рядом
func (s *Stage) ActiveTopZ() int { return s.bottomZ + len(s.active) }

// PendingTopZ возвращает z за последним добавленным рядом
func (s *Stage) PendingTopZ() int { return s.nextZ }

func (s *Stage) PendingRows() int    { return len(s.pending) }
func (s *Stage) ActiveRows() int     { return len(s.active) }
func (s *Stage) CollapsingRows() int { return len(s.collapsing) }

// FinishedBuild сообщает, что очередь постройки исчерпана
func (s *Stage) FinishedBuild() bool { return s.finishedBuild }

// Building сообщает, идёт ли постройка
func (s *Stage) Building() bool { return s.building }

// Collapsing сообщает, идёт ли обрушение
func (s *Stage) Collapsing() bool { return s.collapseRunning }

func (s *Stage) row(z int) (*Row, bool) {
	if z < s.bottomZ || z >= s.ActiveTopZ() {
		return nil, false
	}
	return s.active[z-s.bottomZ], true
}

// StageHeight возвращает высоту куба в колонке pos.X ряда pos.Z.
// Вне активного диапазона куба нет.
func (s *Stage) StageHeight(pos vec.Vec3) (int, bool) {
	r, ok := s.row(pos.Z)
	if !ok {
		return 0, false
	}
	return r.height(pos.X, false)
}

// RideableHeight как StageHeight, но только для кубов, закончивших анимацию
func (s *Stage) RideableHeight(pos vec.Vec3) (int, bool) {
	r, ok := s.row(pos.Z)
	if !ok {
		return 0, false
	}
	return r.height(pos.X, true)
}

// CubeAt возвращает активный куб в колонке pos
func (s *Stage) CubeAt(pos vec.Vec3) (*Cube, bool) {
	r, ok := s.row(pos.Z)
	if !ok {
		return nil, false
	}
	c := r.cubeAt(pos.X)
	return c, c != nil
}

// Rows вызывает fn для каждого активного ряда снизу вверх
func (s *Stage) Rows(fn func(r *Row)) {
	for _, r := range s.active {
		fn(r)
	}
}

// MoveStageCube опускает куб колонки на одну клетку.
// Новая высота фиксируется только по окончании анимации.
func (s *Stage) MoveStageCube(pos vec.Vec3) bool {
	c, ok := s.CubeAt(pos)
	if !ok {
		return false
	}
	c.CanRide = false
	c.BlockPositionNew = c.BlockPositionNew.Down()
	target := c.BlockPositionNew.ToWorld()
	c.animate(s.anim, target, s.cfg.MoveDownDuration, timeline.InOutSine).OnComplete(func() {
		c.BlockPosition = c.BlockPositionNew
		c.CanRide = true
		c.tween = nil
	})
	s.logger.Debug("Куб %s опускается", pos)
	return true
}

// OpenStartLine после задержки опускает нижний активный ряд на одну клетку
func (s *Stage) OpenStartLine() {
	s.tasks.After(s.cfg.OpenStartDelay, func() {
		if len(s.active) == 0 {
			return
		}
		r := s.active[0]
		for _, c := range r.Cubes {
			c := c
			c.CanRide = false
			c.BlockPositionNew = c.BlockPositionNew.Down()
			c.animate(s.anim, c.BlockPositionNew.ToWorld(), s.cfg.MoveDownDuration, timeline.InQuad).OnComplete(func() {
				c.BlockPosition = c.BlockPositionNew
				c.CanRide = true
				c.tween = nil
			})
		}
		s.emit(event.StartlineOpened{Z: r.Z})
	})
}

// IsFinishedBuildAndCollapse сообщает, что постройка завершена и все кубы встали,
// обрушение дошло до stopZ и ни один ряд не падает
func (s *Stage) IsFinishedBuildAndCollapse(stopZ int) bool {
	if !s.finishedBuild || len(s.collapsing) > 0 {
		return false
	}
	if len(s.active) > 0 && s.bottomZ < stopZ {
		return false
	}
	for _, r := range s.active {
		for _, c := range r.Cubes {
			if !c.CanRide {
				return false
			}
		}
	}
	return true
}

// IsEmpty сообщает, что на поле не осталось ни активных, ни падающих рядов
func (s *Stage) IsEmpty() bool {
	return len(s.active) == 0 && len(s.collapsing) == 0
}

// DiscardPending выбрасывает ещё не построенные ряды
func (s *Stage) DiscardPending() {
	s.pending = nil
	s.finishedBuild = true
}

func (s *Stage) emit(ev event.Event) {
	if s.bus != nil {
		s.bus.Emit(ev)
	}
}
