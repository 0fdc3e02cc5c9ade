package segment

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/annel0/cube-runner/internal/vec"
	"github.com/aquilax/go-perlin"
)

const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3

	marginRows = 4 // Сплошные ряды в начале и в конце участка
)

// Generator строит бесконечную последовательность участков по шуму Перлина.
// Один и тот же seed и номер дают один и тот же участок.
type Generator struct {
	noise  *perlin.Perlin
	seed   int64
	width  int
	length int
}

// NewGenerator создаёт генератор участков шириной width и длиной length рядов
func NewGenerator(seed int64, width, length int) *Generator {
	if width < 3 {
		width = 3
	}
	if length < 2*marginRows+2 {
		length = 2*marginRows + 2
	}
	return &Generator{
		noise:  perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
		seed:   seed,
		width:  width,
		length: length,
	}
}

// noise2D возвращает шум в диапазоне от 0 до 1
func (g *Generator) noise2D(x, y float64) float64 {
	v := (g.noise.Noise2D(x, y) + 1) / 2
	return math.Max(0, math.Min(1, v))
}

// Generate строит участок номер index (с нуля)
func (g *Generator) Generate(index int) *Segment {
	rng := rand.New(rand.NewSource(g.seed + int64(index)*7919))
	difficulty := math.Min(1, float64(index)/10)
	W, L := g.width, g.length

	// Безопасная полоса: гарантированный проход через весь участок
	lanes := make([]int, L)
	lane := W / 2
	for z := 0; z < L; z++ {
		n := g.noise2D(float64(z)*0.15, float64(index)*7.3+0.5)
		target := int(math.Round(n * float64(W-1)))
		if target > lane {
			lane++
		} else if target < lane {
			lane--
		}
		lanes[z] = lane
	}

	body := make([][]int, L)
	for z := 0; z < L; z++ {
		row := make([]int, W)
		body[z] = row
		if z < marginRows || z >= L-marginRows {
			continue
		}
		lo, hi := lanes[z], lanes[z-1]
		if lo > hi {
			lo, hi = hi, lo
		}
		for x := 0; x < W; x++ {
			if x >= lo && x <= hi {
				continue
			}
			n := g.noise2D(float64(x)*0.5+float64(index)*3.1, float64(z+index*L)*0.35)
			switch {
			case n < 0.25+0.15*difficulty:
				row[x] = Empty
			case n > 0.8:
				row[x] = 1
			}
		}
	}

	s := &Segment{
		Name: fmt.Sprintf("generated-%03d", index),
		Body: body,
	}
	switch {
	case index == 0:
		s.Pickable = 3
	case index%4 == 3:
		s.Pickable = 1
	}

	used := make(map[Cell]bool)
	onLane := func(z int) Cell { return Cell{lanes[z], z} }
	free := func(c Cell) bool { return !used[c] }

	for z := marginRows + 1; z < L-marginRows; z += 6 {
		c := onLane(z)
		if free(c) {
			used[c] = true
			s.Items = append(s.Items, ItemEntry{Pos: c})
		}
	}

	if index >= 1 {
		c := onLane(L / 3)
		if free(c) {
			used[c] = true
			s.Oneways = append(s.Oneways, OnewayEntry{Pos: c, Dir: vec.DirUp, Power: 2})
		}
	}

	if index >= 2 {
		c := onLane(L / 2)
		if free(c) {
			used[c] = true
			s.Falling = append(s.Falling, FallingEntry{
				Pos:      c,
				Interval: 3 - difficulty,
				Delay:    rng.Float64(),
			})
		}
	}

	if difficulty > 0.2 {
		g.placeSwitch(s, lanes, used)
	}

	if index >= 3 {
		mz := L - marginRows - 2
		for x := range body[mz] {
			body[mz][x] = 0
		}
		c := Cell{0, mz}
		if free(c) {
			used[c] = true
			s.Moving = append(s.Moving, MovingEntry{
				Pos:      c,
				Pattern:  strings.Repeat("R", W-1) + strings.Repeat("L", W-1),
				Interval: 1,
				Delay:    rng.Float64(),
			})
		}
	}
	return s
}

// placeSwitch ставит переключатель перед первой колонной высоты 1 рядом с полосой
func (g *Generator) placeSwitch(s *Segment, lanes []int, used map[Cell]bool) {
	for z := marginRows + 1; z < len(s.Body)-marginRows; z++ {
		for x, h := range s.Body[z] {
			if h != 1 {
				continue
			}
			sw := Cell{lanes[z-1], z - 1}
			if used[sw] {
				return
			}
			used[sw] = true
			s.Switches = append(s.Switches, SwitchEntry{Pos: sw, Targets: []Cell{{x, z}}})
			return
		}
	}
}
