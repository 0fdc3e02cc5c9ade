// Package input переводит жесты игрока в команды движения кубов.
package input

import (
	"math"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/vec"
)

// Swipe определяет направление и скорость по смещению жеста.
// dx вправо, dz вверх по полю (к финишу); velocity в тех же единицах в секунду.
// Смещение короче swipe_threshold не считается жестом и даёт DirNone.
func Swipe(dx, dz, velocity float64, cfg config.PickableConfig) (vec.Direction, int) {
	if math.Hypot(dx, dz) < cfg.SwipeThreshold {
		return vec.DirNone, 0
	}

	var dir vec.Direction
	switch {
	case math.Abs(dx) > math.Abs(dz) && dx > 0:
		dir = vec.DirRight
	case math.Abs(dx) > math.Abs(dz):
		dir = vec.DirLeft
	case dz > 0:
		dir = vec.DirUp
	default:
		dir = vec.DirDown
	}

	speed := 1 + int(math.Max(velocity, 0)*cfg.SwipeSpeedScale)
	if cfg.MaxSpeed > 0 && speed > cfg.MaxSpeed {
		speed = cfg.MaxSpeed
	}
	return dir, speed
}

// Tap переводит точку касания в мировые координаты поля.
// Для выбора куба используется field.PickableAt.
func Tap(screenX, screenY, scale, originX, originZ float64) (x, z float64) {
	return originX + screenX/scale, originZ - screenY/scale
}
