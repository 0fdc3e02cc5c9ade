package vec

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 представляет позицию в сетке уровня.
// X - полоса (влево/вправо), Y - высота, Z - глубина (направление движения).
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// String возвращает строковое представление позиции
func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// SameColumn сравнивает только X и Z: высота колонки задаётся уровнем
func (v Vec3) SameColumn(other Vec3) bool {
	return v.X == other.X && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Down возвращает позицию на один уровень ниже
func (v Vec3) Down() Vec3 {
	return Vec3{X: v.X, Y: v.Y - 1, Z: v.Z}
}

// ToWorld переводит позицию сетки в мировые координаты центра куба
func (v Vec3) ToWorld() mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

// ManhattanXZ возвращает расстояние по плоскости XZ
func (v Vec3) ManhattanXZ(other Vec3) int {
	return abs(v.X-other.X) + abs(v.Z-other.Z)
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
