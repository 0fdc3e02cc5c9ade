package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

// Color цвет RGBA в диапазоне 0..1
type Color struct {
	R, G, B, A float64
}

// White непрозрачный белый
var White = Color{R: 1, G: 1, B: 1, A: 1}

// Lerp линейно смешивает два цвета
func (c Color) Lerp(o Color, p float64) Color {
	return Color{
		R: c.R + (o.R-c.R)*p,
		G: c.G + (o.G-c.G)*p,
		B: c.B + (o.B-c.B)*p,
		A: c.A + (o.A-c.A)*p,
	}
}

// WithAlpha возвращает цвет с другой прозрачностью
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// ParseHexColor разбирает "#RRGGBB" или "#RRGGBBAA"
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("неверный формат цвета: %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("неверный формат цвета %q: %w", s, err)
	}
	if len(h) == 6 {
		v = v<<8 | 0xFF
	}
	return Color{
		R: float64((v>>24)&0xFF) / 255,
		G: float64((v>>16)&0xFF) / 255,
		B: float64((v>>8)&0xFF) / 255,
		A: float64(v&0xFF) / 255,
	}, nil
}
