// Package cube содержит подвижные сущности поля и их пулы: кубы игрока,
// предметы, движущиеся и падающие кубы, переключатели и односторонние панели.
package cube

import (
	"github.com/annel0/cube-runner/internal/timeline"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// fallDistance глубина падения сущностей, кроме кубов игрока
const fallDistance = 12.0

// Ground запросы высоты рельефа, нужные сущностям
type Ground interface {
	StageHeight(pos vec.Vec3) (int, bool)
	RideableHeight(pos vec.Vec3) (int, bool)
}

// Body общая часть всех сущностей, привязанных к клетке сетки.
// Block.Y: высота куба рельефа, на котором стоит сущность.
type Body struct {
	ID       uint32
	Block    vec.Vec3 // Авторитетная клетка
	Prev     vec.Vec3 // Клетка до начала текущего шага
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
	OnStage  bool // true после анимации появления, false с начала падения
	Active   bool // false после анимации исчезновения

	tl   *timeline.Timeline
	move *timeline.Item
}

func newBody(id uint32, pos vec.Vec3, parent *timeline.Timeline) Body {
	return Body{
		ID:       id,
		Block:    pos,
		Prev:     pos,
		Position: standOn(pos),
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
		Active:   true,
		tl:       timeline.New(parent),
	}
}

// standOn возвращает мировую позицию сущности, стоящей на кубе pos
func standOn(pos vec.Vec3) mgl64.Vec3 {
	return pos.ToWorld().Add(mgl64.Vec3{0, 1, 0})
}

// Dispose отцепляет шкалу сущности от пула
func (b *Body) Dispose() {
	b.tl.Dispose()
}

// Alive сообщает, что сущность стоит на поле
func (b *Body) Alive() bool {
	return b.Active && b.OnStage
}

func (b *Body) tweenPosition(to mgl64.Vec3, duration float64, ease timeline.EaseFunc) *timeline.Item {
	if b.move != nil {
		b.move.Cancel()
	}
	b.move = b.tl.Tween(timeline.Vec3Track{Target: &b.Position, From: b.Position, To: to}, duration).Ease(ease)
	return b.move
}

// enter анимирует появление сверху; onStage вызывается, когда сущность встала
func (b *Body) enter(delay, offset, duration float64, onStage func()) {
	final := standOn(b.Block)
	b.Position = final.Add(mgl64.Vec3{0, offset, 0})
	b.tweenPosition(final, duration, timeline.OutBack).Delay(delay).OnComplete(func() {
		b.OnStage = true
		if onStage != nil {
			onStage()
		}
	})
}

// fall снимает сущность с поля и анимирует падение; по окончании Active=false
func (b *Body) fall(distance, duration float64, onDone func()) {
	b.OnStage = false
	to := b.Position.Add(mgl64.Vec3{0, -distance, 0})
	b.tweenPosition(to, duration, timeline.InQuad).OnComplete(func() {
		b.Active = false
		if onDone != nil {
			onDone()
		}
	})
}

// lowerBlock опускает клетку сущности вслед за кубом рельефа
func (b *Body) lowerBlock(duration float64) {
	b.Block = b.Block.Down()
	b.Prev = b.Prev.Down()
	b.tweenPosition(standOn(b.Block), duration, timeline.InOutSine)
}

// groundLost сообщает, что куба под клеткой больше нет
func groundLost(g Ground, pos vec.Vec3) bool {
	_, ok := g.StageHeight(pos)
	return !ok
}
