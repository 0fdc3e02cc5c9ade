package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/annel0/cube-runner/internal/logging"
)

// Source выдаёт участок по порядковому номеру этапа (с нуля)
type Source interface {
	Segment(index int) (*Segment, error)
}

var stageFile = regexp.MustCompile(`^stage(\d+)\.json$`)

// Catalog упорядоченный набор участков из каталога stageNN.json
type Catalog struct {
	dir      string
	segments []*Segment
}

// LoadCatalog загружает все stageNN.json из каталога в порядке номеров.
// Ошибка в любом файле фатальна: данные поставляются вместе со сборкой.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("segment: read catalog %s: %w", dir, err)
	}

	type numbered struct {
		n    int
		name string
	}
	var files []numbered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := stageFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		files = append(files, numbered{n: n, name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })

	c := &Catalog{dir: dir}
	for _, f := range files {
		s, err := Load(filepath.Join(dir, f.name))
		if err != nil {
			return nil, err
		}
		c.segments = append(c.segments, s)
	}
	logging.Debug("Каталог %s: загружено участков %d", dir, len(c.segments))
	return c, nil
}

// Len возвращает число участков
func (c *Catalog) Len() int {
	return len(c.segments)
}

// Segment возвращает участок по номеру
func (c *Catalog) Segment(index int) (*Segment, error) {
	if index < 0 || index >= len(c.segments) {
		return nil, fmt.Errorf("segment: index %d outside catalog of %d", index, len(c.segments))
	}
	return c.segments[index], nil
}

// Sequence сначала отдаёт участки каталога, затем сгенерированные
type Sequence struct {
	Catalog   *Catalog
	Generator *Generator
}

// Segment реализует Source
func (s *Sequence) Segment(index int) (*Segment, error) {
	if s.Catalog != nil && index < s.Catalog.Len() {
		return s.Catalog.Segment(index)
	}
	if s.Generator == nil {
		return nil, fmt.Errorf("segment: no segment for stage %d", index)
	}
	offset := 0
	if s.Catalog != nil {
		offset = s.Catalog.Len()
	}
	return s.Generator.Generate(index - offset), nil
}
