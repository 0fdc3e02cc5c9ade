package vec

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Direction направление перемещения куба по сетке
type Direction uint8

const (
	DirNone  Direction = iota
	DirUp              // +Z, вперёд по ходу уровня
	DirDown            // -Z, назад
	DirLeft            // -X
	DirRight           // +X
)

// String возвращает имя направления
func (d Direction) String() string {
	switch d {
	case DirUp:
		return "UP"
	case DirDown:
		return "DOWN"
	case DirLeft:
		return "LEFT"
	case DirRight:
		return "RIGHT"
	default:
		return "NONE"
	}
}

// Offset возвращает смещение на одну клетку в направлении d
func (d Direction) Offset() Vec3 {
	switch d {
	case DirUp:
		return Vec3{Z: 1}
	case DirDown:
		return Vec3{Z: -1}
	case DirLeft:
		return Vec3{X: -1}
	case DirRight:
		return Vec3{X: 1}
	default:
		return Vec3{}
	}
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	default:
		return DirNone
	}
}

// RollAxis возвращает ось, вокруг которой куб перекатывается при движении.
// Для DirNone ось нулевая.
func (d Direction) RollAxis() mgl64.Vec3 {
	switch d {
	case DirUp:
		return mgl64.Vec3{1, 0, 0}
	case DirDown:
		return mgl64.Vec3{-1, 0, 0}
	case DirLeft:
		return mgl64.Vec3{0, 0, 1}
	case DirRight:
		return mgl64.Vec3{0, 0, -1}
	default:
		return mgl64.Vec3{}
	}
}

// ParseDirection разбирает имя направления ("UP", "u", "right"...)
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UP", "U":
		return DirUp, nil
	case "DOWN", "D":
		return DirDown, nil
	case "LEFT", "L":
		return DirLeft, nil
	case "RIGHT", "R":
		return DirRight, nil
	case "NONE", "", "N":
		return DirNone, nil
	}
	return DirNone, fmt.Errorf("неизвестное направление: %q", s)
}

// MarshalText сериализует направление в имя
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText разбирает направление из имени
func (d *Direction) UnmarshalText(text []byte) error {
	dir, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = dir
	return nil
}
