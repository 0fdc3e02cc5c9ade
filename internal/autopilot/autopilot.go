// Package autopilot ведёт кубы игрока к финишу без участия человека.
// Используется в безголовом режиме и в нагрузочных прогонах.
package autopilot

import (
	"github.com/annel0/cube-runner/internal/cube"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/field"
	"github.com/annel0/cube-runner/internal/vec"
)

// Pilot раз в Interval секунд выдаёт каждому свободному кубу по шагу:
// вперёд, если можно, иначе в сторону, если ряд впереди уже построен
type Pilot struct {
	field    *field.Field
	bus      *event.Bus
	interval float64
	speed    int
	acc      float64
	moves    int
}

// New создаёт пилота; команды идут через bus как от игрока
func New(f *field.Field, bus *event.Bus, interval float64, speed int) *Pilot {
	if speed <= 0 {
		speed = 1
	}
	return &Pilot{field: f, bus: bus, interval: interval, speed: speed}
}

// Moves число выданных команд
func (p *Pilot) Moves() int { return p.moves }

// Tick вызывается перед шагом симуляции
func (p *Pilot) Tick(dt float64) {
	p.acc += dt
	if p.acc < p.interval {
		return
	}
	p.acc = 0

	switch p.field.Phase() {
	case field.PhaseStart, field.PhaseFinish, field.PhaseClear:
	default:
		return
	}

	var cmds []event.MovePickable
	p.field.Pickables().Each(func(c *cube.Pickable) {
		if dir, ok := p.decide(c); ok {
			cmds = append(cmds, event.MovePickable{ID: c.ID, Dir: dir, Speed: p.speed})
		}
	})
	// Команды после обхода: обработчики могут менять пул
	for _, cmd := range cmds {
		p.bus.Emit(cmd)
		p.moves++
	}
}

func (p *Pilot) decide(c *cube.Pickable) (vec.Direction, bool) {
	if !c.Awake() || !c.OnStage || c.Moving || c.Falling || c.Pressed {
		return vec.DirNone, false
	}
	if _, speed := c.PendingMove(); speed > 0 {
		return vec.DirNone, false
	}

	up := c.Block.Add(vec.DirUp.Offset())
	if p.field.CanPickableCubeMove(c, up) {
		return vec.DirUp, true
	}
	if _, built := p.field.Stage().RideableHeight(up); !built {
		return vec.DirNone, false
	}
	for _, dir := range []vec.Direction{vec.DirLeft, vec.DirRight} {
		side := c.Block.Add(dir.Offset())
		ahead := side.Add(vec.DirUp.Offset())
		if p.field.CanPickableCubeMove(c, side) {
			if _, ok := p.field.Stage().RideableHeight(ahead); ok {
				return dir, true
			}
		}
	}
	return vec.DirNone, false
}
