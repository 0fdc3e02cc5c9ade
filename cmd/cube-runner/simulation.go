package main

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/cube-runner/internal/autopilot"
	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/game"
	"github.com/annel0/cube-runner/internal/logging"
	"github.com/annel0/cube-runner/internal/metrics"
)

var errQueueFull = errors.New("очередь команд заполнена")

// commandQueue переносит команды из HTTP-горутин в горутину симуляции
type commandQueue chan event.Event

func newCommandQueue(size int) commandQueue {
	return make(commandQueue, size)
}

// Submit реализует api.CommandSink
func (q commandQueue) Submit(ev event.Event) error {
	select {
	case q <- ev:
		return nil
	default:
		return errQueueFull
	}
}

type simulation struct {
	game     *game.Game
	cfg      *config.Config
	commands commandQueue
	metrics  *metrics.GameMetrics
	pilot    *autopilot.Pilot
	logger   *logging.Logger
}

func newSimulation(g *game.Game, cfg *config.Config, commands commandQueue, m *metrics.GameMetrics, withPilot bool) *simulation {
	s := &simulation{
		game:     g,
		cfg:      cfg,
		commands: commands,
		metrics:  m,
		logger:   logging.GetComponentLogger(logging.ComponentSimulation),
	}
	if withPilot {
		s.pilot = autopilot.New(g.Field(), g.Bus(), 0.15, 1)
	}
	return s
}

// Run крутит кадры с частотой simulation.frame_rate до отмены ctx или конца забега
func (s *simulation) Run(ctx context.Context) {
	rate := s.cfg.Simulation.FrameRate
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	last := time.Now()
	frames := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Остановка симуляции после %d кадров", frames)
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.frame(dt)
			frames++
			if s.game.Over() {
				s.logger.Info("Забег завершён, кадров %d", frames)
				return
			}
		}
	}
}

func (s *simulation) frame(dt float64) {
drain:
	for {
		select {
		case ev := <-s.commands:
			s.game.Bus().Emit(ev)
		default:
			break drain
		}
	}
	if s.pilot != nil {
		s.pilot.Tick(dt)
	}
	s.game.Step(dt)
	s.metrics.Observe(s.game.Snapshot().Field)
}
