package cube

import (
	"math"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// Pickable куб, которым управляет игрок
type Pickable struct {
	Body

	Moving      bool
	Sleep       bool // не реагирует на ввод, пока его не разбудят
	Pressed     bool // раздавлен падающим кубом
	AdjoinOther bool // рядом по X стоит другой куб игрока
	Finished    bool // пересёк финишную линию этапа
	Falling     bool

	cfg      *config.PickableConfig
	dir      vec.Direction // накопленное направление
	speed    int           // накопленная скорость (шагов)
	stepDir  vec.Direction
	rollBase mgl64.Quat
}

// Awake сообщает, что куб на поле и не спит
func (p *Pickable) Awake() bool {
	return p.Active && !p.Sleep
}

// Push накапливает команду движения: то же направление добавляет скорость
// (не больше MaxSpeed), новое направление заменяет накопленное
func (p *Pickable) Push(dir vec.Direction, speed int) {
	if dir == vec.DirNone || speed <= 0 {
		return
	}
	if dir == p.dir && p.speed > 0 {
		p.speed += speed
	} else {
		p.dir = dir
		p.speed = speed
	}
	if p.speed > p.cfg.MaxSpeed {
		p.speed = p.cfg.MaxSpeed
	}
}

// ForceMove заменяет накопленную команду (односторонняя панель)
func (p *Pickable) ForceMove(dir vec.Direction, power int) {
	p.dir = dir
	p.speed = power
	if p.speed > p.cfg.MaxSpeed {
		p.speed = p.cfg.MaxSpeed
	}
}

// PendingMove возвращает накопленные направление и скорость
func (p *Pickable) PendingMove() (vec.Direction, int) {
	return p.dir, p.speed
}

// CancelMove сбрасывает накопленную команду
func (p *Pickable) CancelMove() {
	p.dir = vec.DirNone
	p.speed = 0
}

// Target возвращает клетку следующего шага, если есть накопленная команда
func (p *Pickable) Target() (vec.Vec3, bool) {
	if p.dir == vec.DirNone || p.speed <= 0 {
		return vec.Vec3{}, false
	}
	return p.Block.Add(p.dir.Offset()), true
}

// StepDuration длительность шага при текущей скорости:
// чем больше накоплено шагов, тем короче каждый
func (p *Pickable) StepDuration() float64 {
	speed := math.Max(float64(p.speed), 1)
	k := math.Pow(speed, -p.cfg.SpeedExponent)
	return p.cfg.MoveDurationMin + (p.cfg.MoveDurationMax-p.cfg.MoveDurationMin)*k
}

// MinZ возвращает меньший из z текущей и предыдущей клетки (учёт шага в полёте)
func (p *Pickable) MinZ() int {
	if p.Moving && p.Prev.Z < p.Block.Z {
		return p.Prev.Z
	}
	return p.Block.Z
}

// MaxZ возвращает больший из z текущей и предыдущей клетки
func (p *Pickable) MaxZ() int {
	if p.Moving && p.Prev.Z > p.Block.Z {
		return p.Prev.Z
	}
	return p.Block.Z
}

// beginStep запускает шаг к Target: клетка меняется сразу, анимация
// перекатывает куб на 90 градусов. Скорость расходуется на один шаг.
func (p *Pickable) beginStep(onDone func()) (vec.Vec3, bool) {
	target, ok := p.Target()
	if !ok || p.Moving {
		return vec.Vec3{}, false
	}
	duration := p.StepDuration()
	p.speed--
	dir := p.dir
	if p.speed <= 0 {
		p.dir = vec.DirNone
		p.speed = 0
	}

	p.Prev = p.Block
	p.Block = target
	p.Moving = true
	p.stepDir = dir
	p.rollBase = p.Rotation

	p.tweenPosition(standOn(target), duration, timeline.Linear).OnComplete(func() {
		p.Moving = false
		p.stepDir = vec.DirNone
		if onDone != nil {
			onDone()
		}
	})
	p.tl.Tween(timeline.AngleTrack{
		Target: &p.Rotation,
		Base:   p.rollBase,
		Axis:   dir.RollAxis(),
		From:   0,
		To:     math.Pi / 2,
	}, duration)
	return target, true
}

// press сплющивает куб на месте
func (p *Pickable) press() {
	p.Pressed = true
	p.CancelMove()
	p.tl.Tween(timeline.Vec3Track{Target: &p.Scale, From: p.Scale, To: mgl64.Vec3{1, p.cfg.PressedScale, 1}}, 0.1).Ease(timeline.OutQuad)
	p.Position = p.Position.Add(mgl64.Vec3{0, (p.cfg.PressedScale - 1) / 2, 0})
}

// PickablePool пул кубов игрока
type PickablePool struct {
	cfg    config.PickableConfig
	tl     *timeline.Timeline
	bus    *event.Bus
	cubes  *registry[*Pickable]
	nextID uint32
}

// NewPickablePool создаёт пул со своей шкалой времени
func NewPickablePool(parent *timeline.Timeline, cfg config.PickableConfig, bus *event.Bus) *PickablePool {
	return &PickablePool{
		cfg:   cfg,
		tl:    timeline.New(parent),
		bus:   bus,
		cubes: newRegistry[*Pickable](),
	}
}

// Spawn создаёт куб в клетке pos; после задержки он спускается на поле
func (pp *PickablePool) Spawn(pos vec.Vec3, sleep bool, delay float64) *Pickable {
	pp.nextID++
	p := &Pickable{
		Body:  newBody(pp.nextID, pos, pp.tl),
		Sleep: sleep,
		cfg:   &pp.cfg,
	}
	pp.cubes.put(p.ID, p)
	p.enter(delay, pp.cfg.EntryOffset, pp.cfg.EntryDuration, func() {
		pp.emit(event.PickableOnStage{ID: p.ID, Pos: p.Block})
	})
	return p
}

// Get находит куб по id
func (pp *PickablePool) Get(id uint32) (*Pickable, bool) {
	return pp.cubes.get(id)
}

// Each обходит кубы в порядке появления
func (pp *PickablePool) Each(fn func(p *Pickable)) {
	pp.cubes.each(fn)
}

// Len возвращает число кубов в пуле
func (pp *PickablePool) Len() int {
	return pp.cubes.len()
}

// Step начинает шаг куба; onDone вызывается по прибытии
func (pp *PickablePool) Step(p *Pickable, onDone func()) (vec.Vec3, bool) {
	from := p.Block
	dir := p.dir
	target, ok := p.beginStep(func() {
		pp.emit(event.PickableMoved{ID: p.ID, From: from, To: p.Block, Dir: dir})
		if onDone != nil {
			onDone()
		}
	})
	return target, ok
}

// DetectFalls запускает падение кубов, под которыми исчез рельеф.
// Возвращает упавшие кубы.
func (pp *PickablePool) DetectFalls(g Ground) []*Pickable {
	var fallen []*Pickable
	pp.cubes.each(func(p *Pickable) {
		if !p.Alive() || p.Falling {
			return
		}
		if groundLost(g, p.Block) {
			pp.Fall(p)
			fallen = append(fallen, p)
		}
	})
	return fallen
}

// Fall снимает куб с поля. Раздавленный куб падает со сдвигом и без события.
func (pp *PickablePool) Fall(p *Pickable) {
	if p.Falling || !p.Active {
		return
	}
	p.Falling = true
	p.Moving = false
	p.CancelMove()
	if p.Pressed {
		p.Position = p.Position.Add(mgl64.Vec3{0, pp.cfg.PressedFallShift, 0})
		p.fall(pp.cfg.FallDistance, pp.cfg.FallDuration, nil)
		return
	}
	p.fall(pp.cfg.FallDistance, pp.cfg.FallDuration, nil)
	pp.emit(event.FallingPickable{ID: p.ID, Pos: p.Block})
}

// Press отмечает куб раздавленным; повторное нажатие игнорируется
func (pp *PickablePool) Press(p *Pickable, fallingID uint32) bool {
	if p.Pressed || p.Falling || !p.Alive() {
		return false
	}
	p.press()
	pp.emit(event.PressedPickable{ID: p.ID, FallingID: fallingID, Pos: p.Block})
	return true
}

// Prune удаляет кубы, закончившие падение
func (pp *PickablePool) Prune() int {
	return pp.cubes.prune(func(p *Pickable) bool { return p.Active }, func(p *Pickable) { p.Dispose() })
}

// Occupant возвращает активный куб, занимающий клетку (или покидающий её)
func (pp *PickablePool) Occupant(pos vec.Vec3, except uint32) (*Pickable, bool) {
	var found *Pickable
	pp.cubes.each(func(p *Pickable) {
		if found != nil || p.ID == except || !p.Active || p.Falling {
			return
		}
		if p.Block.SameColumn(pos) || (p.Moving && p.Prev.SameColumn(pos)) {
			found = p
		}
	})
	return found, found != nil
}

// Dispose уничтожает все кубы и шкалу пула
func (pp *PickablePool) Dispose() {
	pp.cubes.clear(func(p *Pickable) { p.Dispose() })
	pp.tl.Dispose()
}

func (pp *PickablePool) emit(ev event.Event) {
	if pp.bus != nil {
		pp.bus.Emit(ev)
	}
}
