package field

import (
	"math"

	"github.com/annel0/cube-runner/internal/cube"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/vec"
)

// MovePickable накапливает команду движения для куба id.
// Спящие, раздавленные и падающие кубы команды не принимают.
func (f *Field) MovePickable(id uint32, dir vec.Direction, speed int) {
	if !f.TryMovePickable(id, dir, speed) {
		f.violation("MovePickable: куб игрока %d не найден", id)
	}
}

// TryMovePickable как MovePickable, но неизвестный id молча отбрасывается.
// Команды с шины (REST, автопилот) идут сюда: куб мог уже упасть.
func (f *Field) TryMovePickable(id uint32, dir vec.Direction, speed int) bool {
	p, ok := f.pickables.Get(id)
	if !ok {
		f.logger.Debug("Команда движения для неизвестного куба %d отброшена", id)
		return false
	}
	if !p.Awake() || p.Pressed || p.Falling || !p.OnStage {
		return true
	}
	p.Push(dir, speed)
	return true
}

// FallPickable принудительно снимает куб id с поля
func (f *Field) FallPickable(id uint32) {
	if !f.TryFallPickable(id) {
		f.violation("FallPickable: куб игрока %d не найден", id)
	}
}

// TryFallPickable как FallPickable, но без проверки контракта
func (f *Field) TryFallPickable(id uint32) bool {
	p, ok := f.pickables.Get(id)
	if !ok {
		f.logger.Debug("Команда падения для неизвестного куба %d отброшена", id)
		return false
	}
	f.pickables.Fall(p)
	return true
}

// FallAllPickable роняет все кубы игрока и объявляет конец игры
func (f *Field) FallAllPickable() {
	f.pickables.Each(func(p *cube.Pickable) { f.pickables.Fall(p) })
	f.queue = nil
	f.entries.Clear()
	f.beginGameover("fall-all")
}

// CanPickableCubeMove проверяет, может ли куб p шагнуть в клетку target.
// Клетка должна быть свободна от других кубов игрока (в том числе покидающих её),
// движущихся и лежащих падающих кубов, а высота рельефа в ней должна совпадать
// с высотой куба. Финишировавший куб не может вернуться за финишную линию.
func (f *Field) CanPickableCubeMove(p *cube.Pickable, target vec.Vec3) bool {
	if _, busy := f.pickables.Occupant(target, p.ID); busy {
		return false
	}
	if _, busy := f.moving.Occupant(target, 0); busy {
		return false
	}
	if f.falling.Occupies(target) {
		return false
	}
	y, ok := f.stage.RideableHeight(target)
	if !ok || y != p.Block.Y {
		return false
	}
	if p.Finished && target.Z < f.finishLineZ {
		return false
	}
	return true
}

// resolveMoves начинает шаги кубов с накопленными командами.
// Недопустимый ход отбрасывается целиком.
func (f *Field) resolveMoves() {
	f.pickables.Each(func(p *cube.Pickable) {
		if !p.Alive() || p.Moving || p.Falling || p.Pressed || p.Sleep {
			return
		}
		target, ok := p.Target()
		if !ok {
			return
		}
		if !f.CanPickableCubeMove(p, target) {
			p.CancelMove()
			return
		}
		if _, ok := f.pickables.Step(p, nil); ok {
			f.arrive(p, target)
		}
	})
}

// arrive разрешает взаимодействия с клеткой в начале шага
func (f *Field) arrive(p *cube.Pickable, pos vec.Vec3) {
	if it, ok := f.items.Pick(pos); ok {
		f.logger.Debug("Куб %d забрал предмет %d в %s", p.ID, it.ID, pos)
		f.emit(event.ItemPicked{ItemID: it.ID, PickableID: p.ID, Pos: pos})
	}
	if sw, ok := f.switches.Activate(pos); ok {
		for _, t := range sw.Targets {
			f.stage.MoveStageCube(t)
			f.items.MoveDown(t)
			f.moving.MoveDown(t)
		}
		f.logger.Debug("Куб %d включил переключатель %d, целей %d", p.ID, sw.ID, len(sw.Targets))
		f.emit(event.SwitchActivated{SwitchID: sw.ID, PickableID: p.ID, Targets: sw.Targets})
	}
	if ow, ok := f.oneways.Activate(pos); ok {
		p.ForceMove(ow.Dir, ow.Power)
		f.emit(event.OnewayActivated{OnewayID: ow.ID, PickableID: p.ID, Dir: ow.Dir, Power: ow.Power})
	}
}

// updateAdjoin отмечает кубы с соседом по X и будит спящих рядом с бодрствующими
func (f *Field) updateAdjoin() {
	var live []*cube.Pickable
	f.pickables.Each(func(p *cube.Pickable) {
		if p.Alive() && !p.Falling {
			live = append(live, p)
		}
	})

	for _, p := range live {
		p.AdjoinOther = false
		for _, q := range live {
			if q != p && q.Block.Z == p.Block.Z && absInt(q.Block.X-p.Block.X) == 1 {
				p.AdjoinOther = true
				break
			}
		}
	}

	for _, p := range live {
		if !p.Sleep {
			continue
		}
		for _, q := range live {
			if q.Sleep || q.Pressed || q == p {
				continue
			}
			if p.Block.ManhattanXZ(q.Block) == 1 {
				p.Sleep = false
				f.emit(event.PickableAwake{ID: p.ID, Pos: p.Block})
				break
			}
		}
	}
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// PickableAt выбирает куб игрока по точке касания в мировых координатах.
// Кубы с соседом по X получают меньший запас, чтобы касание не уходило соседу.
func (f *Field) PickableAt(x, z float64) (*cube.Pickable, bool) {
	var best *cube.Pickable
	bestDist := math.MaxFloat64
	f.pickables.Each(func(p *cube.Pickable) {
		if !p.Alive() || p.Falling {
			return
		}
		pad := f.cfg.Pickable.Padding
		if p.AdjoinOther {
			pad = f.cfg.Pickable.AdjoinPadding
		}
		dx := math.Abs(p.Position.X() - x)
		dz := math.Abs(p.Position.Z() - z)
		half := 0.5 + pad
		if dx > half || dz > half {
			return
		}
		if d := dx*dx + dz*dz; d < bestDist {
			best, bestDist = p, d
		}
	})
	return best, best != nil
}
