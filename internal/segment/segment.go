// Package segment описывает данные одного участка уровня: рельеф и точки появления сущностей.
package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/annel0/cube-runner/internal/vec"
)

// Empty значение ячейки рельефа без куба
const Empty = -1

var (
	// ErrEmptyBody участок без рядов
	ErrEmptyBody = errors.New("segment: empty body")
	// ErrEntryOutside точка появления вне рельефа или над пустой ячейкой
	ErrEntryOutside = errors.New("segment: entry outside body")
)

// Cell относительная позиция [x, z] внутри участка
type Cell [2]int

func (c Cell) X() int { return c[0] }
func (c Cell) Z() int { return c[1] }

// ItemEntry точка появления предмета
type ItemEntry struct {
	Pos Cell `json:"pos"`
}

// SwitchEntry переключатель и колонки, которые он опускает
type SwitchEntry struct {
	Pos     Cell   `json:"pos"`
	Targets []Cell `json:"targets"`
}

// MovingEntry движущийся куб; Pattern: буквы направлений, например "RRLL"
type MovingEntry struct {
	Pos      Cell    `json:"pos"`
	Pattern  string  `json:"pattern"`
	Interval float64 `json:"interval"`
	Delay    float64 `json:"delay"`
}

// FallingEntry падающий куб с периодом и начальной задержкой
type FallingEntry struct {
	Pos      Cell    `json:"pos"`
	Interval float64 `json:"interval"`
	Delay    float64 `json:"delay"`
}

// OnewayEntry односторонняя панель
type OnewayEntry struct {
	Pos   Cell          `json:"pos"`
	Dir   vec.Direction `json:"dir"`
	Power int           `json:"power"`
}

// Segment участок уровня в формате JSON-файла stageNN.json
type Segment struct {
	Name     string         `json:"name,omitempty"`
	Body     [][]int        `json:"body"`
	Pickable int            `json:"pickable,omitempty"`
	Items    []ItemEntry    `json:"items,omitempty"`
	Switches []SwitchEntry  `json:"switches,omitempty"`
	Moving   []MovingEntry  `json:"moving,omitempty"`
	Falling  []FallingEntry `json:"falling,omitempty"`
	Oneways  []OnewayEntry  `json:"oneways,omitempty"`

	// Подсказки для отрисовки; ядро их не интерпретирует
	Color      json.RawMessage `json:"color,omitempty"`
	BgColor    json.RawMessage `json:"bg_color,omitempty"`
	LightTween json.RawMessage `json:"light_tween,omitempty"`
	Camera     json.RawMessage `json:"camera,omitempty"`

	XOffset       int     `json:"x_offset,omitempty"`
	BuildSpeed    float64 `json:"build_speed,omitempty"`
	CollapseSpeed float64 `json:"collapse_speed,omitempty"`
	// AutoCollapse задержка автоматического обрушения в секундах:
	// 0: значение из конфигурации, отрицательное: отключено
	AutoCollapse float64 `json:"auto_collapse,omitempty"`
}

// Parse разбирает и проверяет участок
func Parse(data []byte) (*Segment, error) {
	var s Segment
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("segment: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load читает участок из файла
func Load(path string) (*Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("segment: read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(baseName(path), ".json")
	}
	return s, nil
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Rows возвращает число рядов
func (s *Segment) Rows() int {
	return len(s.Body)
}

// Width возвращает ширину самого широкого ряда
func (s *Segment) Width() int {
	w := 0
	for _, row := range s.Body {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Height возвращает высоту рельефа в относительной ячейке
func (s *Segment) Height(c Cell) (int, bool) {
	if c.Z() < 0 || c.Z() >= len(s.Body) {
		return 0, false
	}
	row := s.Body[c.Z()]
	if c.X() < 0 || c.X() >= len(row) || row[c.X()] < 0 {
		return 0, false
	}
	return row[c.X()], true
}

// Validate проверяет рельеф и все точки появления
func (s *Segment) Validate() error {
	if len(s.Body) == 0 {
		return ErrEmptyBody
	}
	for z, row := range s.Body {
		for x, h := range row {
			if h < Empty {
				return fmt.Errorf("segment: row %d column %d: height %d", z, x, h)
			}
		}
	}
	if s.Pickable < 0 {
		return fmt.Errorf("segment: negative pickable count %d", s.Pickable)
	}

	check := func(kind string, i int, c Cell) error {
		if _, ok := s.Height(c); !ok {
			return fmt.Errorf("%w: %s[%d] at %v", ErrEntryOutside, kind, i, c)
		}
		return nil
	}
	for i, e := range s.Items {
		if err := check("items", i, e.Pos); err != nil {
			return err
		}
	}
	for i, e := range s.Switches {
		if err := check("switches", i, e.Pos); err != nil {
			return err
		}
		for _, t := range e.Targets {
			if err := check("switches.targets", i, t); err != nil {
				return err
			}
		}
	}
	for i, e := range s.Moving {
		if err := check("moving", i, e.Pos); err != nil {
			return err
		}
		if _, err := ParsePattern(e.Pattern); err != nil {
			return fmt.Errorf("segment: moving[%d]: %w", i, err)
		}
	}
	for i, e := range s.Falling {
		if err := check("falling", i, e.Pos); err != nil {
			return err
		}
	}
	for i, e := range s.Oneways {
		if err := check("oneways", i, e.Pos); err != nil {
			return err
		}
		if e.Dir == vec.DirNone {
			return fmt.Errorf("segment: oneways[%d]: direction required", i)
		}
	}
	return nil
}

// ParsePattern разбирает строку направлений ("RRLL", "U D") в список шагов
func ParsePattern(p string) ([]vec.Direction, error) {
	var out []vec.Direction
	for _, r := range p {
		if r == ' ' || r == ',' {
			continue
		}
		d, err := vec.ParseDirection(string(r))
		if err != nil {
			return nil, err
		}
		if d == vec.DirNone {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty pattern %q", p)
	}
	return out, nil
}
