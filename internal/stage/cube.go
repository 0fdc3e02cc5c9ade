package stage

import (
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// Cube статичный куб рельефа
type Cube struct {
	Position mgl64.Vec3 // Анимированная позиция
	Rotation mgl64.Quat
	Scale    float64

	// BlockPosition авторитетная клетка сетки.
	// BlockPositionNew хранит новое значение, пока идёт анимация опускания.
	BlockPosition    vec.Vec3
	BlockPositionNew vec.Vec3

	Color   timeline.Color
	CanRide bool // false на время собственной анимации
	Active  bool // false после полного обрушения

	tween *timeline.Item
}

func newCube(pos vec.Vec3, color timeline.Color) *Cube {
	return &Cube{
		Position:         pos.ToWorld(),
		Rotation:         mgl64.QuatIdent(),
		Scale:            1,
		BlockPosition:    pos,
		BlockPositionNew: pos,
		Color:            color,
		Active:           true,
	}
}

// animate запускает анимацию позиции, отменяя предыдущую
func (c *Cube) animate(tl *timeline.Timeline, to mgl64.Vec3, duration float64, ease timeline.EaseFunc) *timeline.Item {
	if c.tween != nil {
		c.tween.Cancel()
	}
	c.tween = tl.Tween(timeline.Vec3Track{Target: &c.Position, From: c.Position, To: to}, duration).Ease(ease)
	return c.tween
}

// Row ряд кубов с одинаковым z
type Row struct {
	Z     int
	Cubes []*Cube
}

// height возвращает высоту куба в колонке x; при нескольких кубах побеждает последний
func (r *Row) height(x int, rideable bool) (int, bool) {
	y, found := 0, false
	for _, c := range r.Cubes {
		if c.BlockPosition.X != x {
			continue
		}
		if rideable && !c.CanRide {
			found = false
			continue
		}
		y, found = c.BlockPosition.Y, true
	}
	return y, found
}

func (r *Row) cubeAt(x int) *Cube {
	var out *Cube
	for _, c := range r.Cubes {
		if c.BlockPosition.X == x {
			out = c
		}
	}
	return out
}
