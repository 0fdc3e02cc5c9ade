package field

import (
	"math"

	"github.com/annel0/cube-runner/internal/cube"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/segment"
)

// updatePhase проверяет условия перехода текущей фазы.
// За кадр выполняется не больше одного перехода.
func (f *Field) updatePhase() {
	switch f.phase {
	case PhaseStart:
		f.checkStarted()
	case PhaseFinish:
		f.checkFinished()
	case PhaseClear:
		f.checkCleared()
	case PhaseCleanup:
		f.checkCollapsed()
		return
	}
	f.checkGameover()
}

// checkStarted START → FINISH: бодрствующий куб дошёл до стартовой линии
func (f *Field) checkStarted() {
	var first *cube.Pickable
	f.pickables.Each(func(p *cube.Pickable) {
		if first == nil && p.Alive() && !p.Sleep && !p.Falling && p.MaxZ() >= f.startLineZ {
			first = p
		}
	})
	if first == nil {
		return
	}

	f.startedAt = f.clock.Now()
	f.setPhase(PhaseFinish)
	f.stage.StartCollapseStage(f.finishLineZ, f.collapseRate)
	f.stage.OpenStartLine()
	f.emit(event.FirstPickableStarted{ID: first.ID, StartLineZ: f.startLineZ})
}

// checkFinished FINISH → CLEAR: все бодрствующие целые кубы на поле
// за финишной линией. Куб в полёте учитывается по меньшему z.
func (f *Field) checkFinished() {
	var runners []*cube.Pickable
	all := true
	f.pickables.Each(func(p *cube.Pickable) {
		if !p.Alive() || p.Sleep || p.Pressed || p.Falling {
			return
		}
		runners = append(runners, p)
		if p.MinZ() < f.finishLineZ {
			all = false
		}
	})
	if len(runners) == 0 || !all {
		return
	}

	for _, p := range runners {
		p.Finished = true
	}
	f.setPhase(PhaseClear)
	f.stage.StartCollapseStage(f.finishLineZ, f.cfg.Stage.ClearCollapseRate)
	f.emit(event.AllPickableFinished{Count: len(runners), FinishLineZ: f.finishLineZ})
	f.emit(event.BeginStageClear{Stage: f.stageIndex})
}

// checkCleared CLEAR → NONE: рельеф достроен и обрушен до финишной линии
func (f *Field) checkCleared() {
	if !f.stage.IsFinishedBuildAndCollapse(f.finishLineZ) {
		return
	}
	cubes := 0
	f.pickables.Each(func(p *cube.Pickable) {
		if p.Alive() && !p.Falling && !p.Pressed {
			cubes++
		}
	})
	ev := event.StageCleared{
		Stage:       f.stageIndex,
		Time:        f.clock.Now() - f.startedAt,
		Items:       f.items.Picked(),
		ItemsTotal:  f.itemsTotal,
		Cubes:       cubes,
		Rows:        f.rows,
		FinishLineZ: f.finishLineZ,
	}
	f.setPhase(PhaseNone)
	// Подписчики могут сразу начать следующий этап
	f.emit(ev)
}

// checkGameover объявляет конец игры, когда не осталось ни одного куба,
// способного двигаться, и очередь появления пуста
func (f *Field) checkGameover() {
	if f.gameover || (f.phase != PhaseStart && f.phase != PhaseFinish) || len(f.queue) > 0 {
		return
	}
	playable := 0
	f.pickables.Each(func(p *cube.Pickable) {
		if p.Active && !p.Falling && !p.Pressed && !p.Sleep {
			playable++
		}
	})
	if playable == 0 {
		f.beginGameover("no-pickable")
	}
}

func (f *Field) beginGameover(reason string) {
	if f.gameover || f.phase == PhaseCleanup {
		return
	}
	f.gameover = true
	f.logger.Info("Этап %d: конец игры (%s)", f.stageIndex, reason)
	f.emit(event.BeginGameover{Stage: f.stageIndex, Reason: reason})
}

// GameoverAgree останавливает постройку и обрушает рельеф целиком.
// Когда поле опустеет, будет разослано StageAllCollapsed с режимом mode.
func (f *Field) GameoverAgree(mode event.CollapseMode) {
	if f.phase == PhaseCleanup {
		return
	}
	f.gameover = true
	f.cleanupMode = mode
	f.queue = nil
	f.entries.Clear()

	f.stage.StopBuildAndCollapse()
	f.stage.DiscardPending()
	f.pickables.Each(func(p *cube.Pickable) { f.pickables.Fall(p) })
	f.setPhase(PhaseCleanup)
	f.stage.StartCollapseStage(math.MaxInt, f.cfg.Stage.CleanupRate)
}

// checkCollapsed CLEANUP → NONE: рельеф пуст и кубов игрока не осталось
func (f *Field) checkCollapsed() {
	if !f.stage.IsEmpty() || f.pickables.Len() > 0 {
		return
	}
	f.disposePools()
	f.newPools()
	f.started = 0
	f.gameover = false
	f.background = 0
	f.setPhase(PhaseNone)
	f.emit(event.StageAllCollapsed{Mode: f.cleanupMode})
}

// Snapshot возвращает расстановку живых кубов игрока относительно
// финишной линии текущего этапа: [x - xOffset, z - finishLineZ]
func (f *Field) Snapshot() segment.Formation {
	var out segment.Formation
	f.pickables.Each(func(p *cube.Pickable) {
		if !p.Alive() || p.Falling || p.Pressed || p.Sleep {
			return
		}
		out = append(out, segment.Cell{p.Block.X - f.xOffset, max(p.Block.Z-f.finishLineZ, 0)})
	})
	return out
}
