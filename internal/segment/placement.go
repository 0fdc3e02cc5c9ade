package segment

import "github.com/annel0/cube-runner/internal/vec"

// ItemDef предмет в координатах поля
type ItemDef struct {
	Pos vec.Vec3
}

// SwitchDef переключатель в координатах поля
type SwitchDef struct {
	Pos     vec.Vec3
	Targets []vec.Vec3
}

// MovingDef движущийся куб в координатах поля
type MovingDef struct {
	Pos      vec.Vec3
	Pattern  []vec.Direction
	Interval float64
	Delay    float64
}

// FallingDef падающий куб в координатах поля
type FallingDef struct {
	Pos      vec.Vec3
	Interval float64
	Delay    float64
}

// OnewayDef односторонняя панель в координатах поля
type OnewayDef struct {
	Pos   vec.Vec3
	Dir   vec.Direction
	Power int
}

// Placement точки появления участка, пересчитанные в координаты поля
type Placement struct {
	BaseZ    int
	XOffset  int
	Items    []ItemDef
	Switches []SwitchDef
	Moving   []MovingDef
	Falling  []FallingDef
	Oneways  []OnewayDef
}

// Place переводит относительные точки появления в координаты поля.
// baseZ: z первого ряда участка; y берётся из рельефа.
// Участок должен пройти Validate.
func (s *Segment) Place(baseZ, xOffset int) Placement {
	abs := func(c Cell) vec.Vec3 {
		y, _ := s.Height(c)
		return vec.Vec3{X: c.X() + xOffset, Y: y, Z: c.Z() + baseZ}
	}

	p := Placement{BaseZ: baseZ, XOffset: xOffset}
	for _, e := range s.Items {
		p.Items = append(p.Items, ItemDef{Pos: abs(e.Pos)})
	}
	for _, e := range s.Switches {
		d := SwitchDef{Pos: abs(e.Pos)}
		for _, t := range e.Targets {
			d.Targets = append(d.Targets, abs(t))
		}
		p.Switches = append(p.Switches, d)
	}
	for _, e := range s.Moving {
		pattern, _ := ParsePattern(e.Pattern)
		interval := e.Interval
		if interval <= 0 {
			interval = 1
		}
		p.Moving = append(p.Moving, MovingDef{Pos: abs(e.Pos), Pattern: pattern, Interval: interval, Delay: e.Delay})
	}
	for _, e := range s.Falling {
		interval := e.Interval
		if interval <= 0 {
			interval = 3
		}
		p.Falling = append(p.Falling, FallingDef{Pos: abs(e.Pos), Interval: interval, Delay: e.Delay})
	}
	for _, e := range s.Oneways {
		power := e.Power
		if power <= 0 {
			power = 1
		}
		p.Oneways = append(p.Oneways, OnewayDef{Pos: abs(e.Pos), Dir: e.Dir, Power: power})
	}
	return p
}

// Counts число точек появления каждого типа
type Counts struct {
	Items    int `json:"items"`
	Switches int `json:"switches"`
	Moving   int `json:"moving"`
	Falling  int `json:"falling"`
	Oneways  int `json:"oneways"`
}

// Counts возвращает число точек появления каждого типа
func (s *Segment) Counts() Counts {
	return Counts{
		Items:    len(s.Items),
		Switches: len(s.Switches),
		Moving:   len(s.Moving),
		Falling:  len(s.Falling),
		Oneways:  len(s.Oneways),
	}
}

// Formation расстановка кубов игрока относительно линии: [x, z], z >= 0
type Formation []Cell

// DefaultFormation ставит count кубов в первый ряд участка, начиная от центра
func (s *Segment) DefaultFormation(count int) Formation {
	var out Formation
	for z := 0; z < len(s.Body) && len(out) < count; z++ {
		row := s.Body[z]
		center := len(row) / 2
		for i := 0; i < len(row) && len(out) < count; i++ {
			// 0, +1, -1, +2, -2 ...
			off := (i + 1) / 2
			if i%2 == 0 {
				off = -off
			}
			x := center + off
			if x < 0 || x >= len(row) || row[x] < 0 {
				continue
			}
			out = append(out, Cell{x, z})
		}
	}
	return out
}

// Fit переносит расстановку на участок: ячейки без куба сдвигаются
// к ближайшей свободной колонке того же ряда
func (s *Segment) Fit(f Formation) Formation {
	used := make(map[Cell]bool, len(f))
	var out Formation
	for _, c := range f {
		z := c.Z()
		if z < 0 {
			z = 0
		}
		if z >= len(s.Body) {
			z = len(s.Body) - 1
		}
		row := s.Body[z]
		for d := 0; d < 2*len(row)+2; d++ {
			off := (d + 1) / 2
			if d%2 == 1 {
				off = -off
			}
			cand := Cell{c.X() + off, z}
			if _, ok := s.Height(cand); ok && !used[cand] {
				used[cand] = true
				out = append(out, cand)
				break
			}
		}
	}
	return out
}
