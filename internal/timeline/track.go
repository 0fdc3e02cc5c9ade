package timeline

import "github.com/go-gl/mathgl/mgl64"

// Track закрытый набор целей анимации. Реализации есть только в этом пакете,
// поэтому набор видов анимаций проверяется компилятором.
type Track interface {
	apply(p float64)
}

// Vec3Track анимирует позицию или масштаб
type Vec3Track struct {
	Target   *mgl64.Vec3
	From, To mgl64.Vec3
}

func (tr Vec3Track) apply(p float64) {
	*tr.Target = tr.From.Add(tr.To.Sub(tr.From).Mul(p))
}

// QuatTrack анимирует поворот сферической интерполяцией
type QuatTrack struct {
	Target   *mgl64.Quat
	From, To mgl64.Quat
}

func (tr QuatTrack) apply(p float64) {
	*tr.Target = mgl64.QuatSlerp(tr.From, tr.To, p)
}

// AngleTrack анимирует поворот вокруг оси на угол от From до To (радианы).
// В отличие от QuatTrack корректно проходит полный оборот.
type AngleTrack struct {
	Target   *mgl64.Quat
	Base     mgl64.Quat
	Axis     mgl64.Vec3
	From, To float64
}

func (tr AngleTrack) apply(p float64) {
	angle := tr.From + (tr.To-tr.From)*p
	*tr.Target = mgl64.QuatRotate(angle, tr.Axis).Mul(tr.Base)
}

// FloatTrack анимирует скаляр
type FloatTrack struct {
	Target   *float64
	From, To float64
}

func (tr FloatTrack) apply(p float64) {
	*tr.Target = tr.From + (tr.To-tr.From)*p
}

// ColorTrack анимирует цвет
type ColorTrack struct {
	Target   *Color
	From, To Color
}

func (tr ColorTrack) apply(p float64) {
	*tr.Target = tr.From.Lerp(tr.To, p)
}
