package stage

import (
	"math"

	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/go-gl/mathgl/mgl64"
)

// StartBuildStage запускает постройку: каждые BuildInterval/speedRate секунд
// один ряд переходит из очереди в активные. При startSpeedup первые ряды
// строятся быстрее. Повторный вызов во время постройки ничего не делает.
func (s *Stage) StartBuildStage(speedRate float64, startSpeedup bool) {
	if s.building {
		return
	}
	if speedRate <= 0 {
		speedRate = 1
	}
	s.buildSpeed = speedRate
	s.startSpeedup = startSpeedup
	s.builtInRun = 0
	s.buildGen++
	s.building = true
	s.finishedBuild = false
	s.buildStep()
}

// buildStep строит один ряд и планирует следующий шаг
func (s *Stage) buildStep() {
	if !s.building {
		return
	}
	if len(s.pending) == 0 {
		s.building = false
		s.finishedBuild = true
		s.logger.Debug("Постройка завершена, top=%d", s.ActiveTopZ())
		return
	}

	r := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	if len(s.active) == 0 {
		s.bottomZ = r.Z
	}
	s.active = append(s.active, r)
	s.builtInRun++
	gen := s.buildGen

	for _, c := range r.Cubes {
		s.dropIn(c)
	}

	s.emit(event.BuildOneLine{Z: r.Z, Cubes: len(r.Cubes)})
	if s.hasFinishLine && r.Z == s.finishLineZ {
		s.emit(event.BuildFinishLine{Z: r.Z})
	}
	if !s.building || gen != s.buildGen {
		// обработчик события мог остановить или перезапустить постройку
		return
	}

	s.tasks.After(s.buildDelay(), s.buildStep)
}

// dropIn анимирует появление куба со случайным смещением по Y
func (s *Stage) dropIn(c *Cube) {
	final := c.BlockPosition.ToWorld()
	offset := lerp(s.cfg.BuildOffsetMin, s.cfg.BuildOffsetMax, s.rng.Float64())
	if s.rng.Intn(2) == 0 {
		offset = -offset
	}
	c.Position = final.Add(mgl64.Vec3{0, offset, 0})
	c.CanRide = false

	duration := lerp(s.cfg.BuildDurationMin, s.cfg.BuildDurationMax, s.rng.Float64()) / s.buildSpeed
	ease := s.buildEases[s.rng.Intn(len(s.buildEases))]
	c.animate(s.anim, final, duration, ease).OnComplete(func() {
		c.CanRide = true
		c.tween = nil
	})
}

func (s *Stage) buildDelay() float64 {
	interval := s.cfg.BuildInterval / s.buildSpeed
	if !s.startSpeedup || s.cfg.StartSpeedupLines <= 0 || s.builtInRun >= s.cfg.StartSpeedupLines {
		return interval
	}
	rate := math.Max(s.cfg.StartSpeedupRate, 1)
	t := timeline.InQuad(float64(s.builtInRun) / float64(s.cfg.StartSpeedupLines))
	return lerp(interval/rate, interval, t)
}

// StartCollapseStage запускает обрушение: каждые CollapseInterval/speedRate секунд
// нижний активный ряд уходит в очередь падения. Останавливается, когда активных
// рядов нет или нижний ряд достиг stopZ. Во время обрушения вызов обновляет
// stopZ и скорость.
func (s *Stage) StartCollapseStage(stopZ int, speedRate float64) {
	if speedRate <= 0 {
		speedRate = 1
	}
	s.startedCollapse = true
	s.collapseStopZ = stopZ
	s.collapseSpeed = speedRate
	if s.autoCollapse != nil {
		s.autoCollapse.Cancel()
		s.autoCollapse = nil
	}
	if s.collapseRunning {
		return
	}
	s.collapseRunning = true
	s.collapseGen++
	s.collapseStep()
}

func (s *Stage) collapseStep() {
	if !s.collapseRunning {
		return
	}
	if len(s.active) == 0 || s.bottomZ >= s.collapseStopZ {
		s.collapseRunning = false
		return
	}

	r := s.active[0]
	s.active[0] = nil
	s.active = s.active[1:]
	s.bottomZ++
	s.collapsing = append(s.collapsing, r)

	duration := s.cfg.CollapseDuration / s.collapseSpeed
	for _, c := range r.Cubes {
		c.CanRide = false
		c.animate(s.anim, c.Position.Add(mgl64.Vec3{0, s.cfg.CollapseOffset, 0}), duration, s.collapseEase)
	}
	s.anim.After(duration, func() { s.removeCollapsed(r) })

	gen := s.collapseGen
	s.emit(event.CollapseOneLine{Z: r.Z})
	if !s.collapseRunning || gen != s.collapseGen {
		return
	}
	s.tasks.After(s.cfg.CollapseInterval/s.collapseSpeed, s.collapseStep)
}

func (s *Stage) removeCollapsed(r *Row) {
	for _, c := range r.Cubes {
		c.Active = false
		c.tween = nil
	}
	for i, cr := range s.collapsing {
		if cr == r {
			s.collapsing = append(s.collapsing[:i], s.collapsing[i+1:]...)
			return
		}
	}
}

// SetupAutoCollapse через delay секунд запускает обрушение до stopZ,
// если к тому времени его никто не запустил
func (s *Stage) SetupAutoCollapse(delay float64, stopZ int, speedRate float64) {
	s.startedCollapse = false
	if s.autoCollapse != nil {
		s.autoCollapse.Cancel()
	}
	if delay < 0 {
		s.autoCollapse = nil
		return
	}
	s.autoCollapse = s.tasks.After(delay, func() {
		s.autoCollapse = nil
		if s.startedCollapse {
			return
		}
		s.logger.Debug("Автоматическое обрушение до z=%d", stopZ)
		s.StartCollapseStage(stopZ, speedRate)
	})
}

// StartedCollapse сообщает, запускалось ли обрушение после последнего SetupAutoCollapse
func (s *Stage) StartedCollapse() bool { return s.startedCollapse }

// StopBuildAndCollapse отменяет цепочки постройки и обрушения.
// Уже начатые анимации кубов доигрываются.
func (s *Stage) StopBuildAndCollapse() {
	s.tasks.Clear()
	s.building = false
	s.collapseRunning = false
	s.autoCollapse = nil
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
