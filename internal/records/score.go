// Package records считает результат этапа и хранит рекорды игрока.
package records

import (
	"fmt"
	"math"

	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/event"
)

// Rank оценка прохождения этапа; меньшее значение лучше
type Rank uint8

const (
	RankS Rank = iota
	RankA
	RankB
	RankC
)

// Пороги отношения времени к контрольному
const (
	rankSRatio = 1.0
	rankARatio = 1.25
	rankBRatio = 1.6
)

func (r Rank) String() string {
	switch r {
	case RankS:
		return "S"
	case RankA:
		return "A"
	case RankB:
		return "B"
	case RankC:
		return "C"
	}
	return "?"
}

// Better сообщает, что r лучше other
func (r Rank) Better(other Rank) bool { return r < other }

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	switch string(text) {
	case "S":
		*r = RankS
	case "A":
		*r = RankA
	case "B":
		*r = RankB
	case "C":
		*r = RankC
	default:
		return fmt.Errorf("records: unknown rank %q", text)
	}
	return nil
}

// Telemetry сырые данные этапа, которые поле сообщает при его завершении
type Telemetry struct {
	Stage      int
	Time       float64
	Items      int
	ItemsTotal int
	Cubes      int
	Rows       int
}

// FromEvent переводит событие StageCleared в телеметрию
func FromEvent(ev event.StageCleared) Telemetry {
	return Telemetry{
		Stage:      ev.Stage,
		Time:       ev.Time,
		Items:      ev.Items,
		ItemsTotal: ev.ItemsTotal,
		Cubes:      ev.Cubes,
		Rows:       ev.Rows,
	}
}

// StageResult итог этапа
type StageResult struct {
	Stage      int     `json:"stage"`
	Time       float64 `json:"time"`
	Par        float64 `json:"par"`
	Rank       Rank    `json:"rank"`
	Items      int     `json:"items"`
	ItemsTotal int     `json:"items_total"`
	Cubes      int     `json:"cubes"`
	Score      int     `json:"score"`
}

// AllItems сообщает, что собраны все предметы этапа
func (r StageResult) AllItems() bool {
	return r.Items >= r.ItemsTotal
}

// ComputeStageResult считает оценку и очки этапа.
// Контрольное время: число рядов × seconds_per_row. S требует ещё и всех предметов.
// Бонус за время полный до контрольного времени и линейно убывает до нуля к двойному.
func ComputeStageResult(t Telemetry, cfg config.RecordsConfig) StageResult {
	res := StageResult{
		Stage:      t.Stage,
		Time:       t.Time,
		Par:        float64(t.Rows) * cfg.SecondsPerRow,
		Items:      t.Items,
		ItemsTotal: t.ItemsTotal,
		Cubes:      t.Cubes,
	}

	ratio := math.Inf(1)
	if res.Par > 0 {
		ratio = t.Time / res.Par
	}
	switch {
	case ratio <= rankSRatio && res.AllItems():
		res.Rank = RankS
	case ratio <= rankARatio:
		res.Rank = RankA
	case ratio <= rankBRatio:
		res.Rank = RankB
	default:
		res.Rank = RankC
	}

	bonus := 0.0
	if !math.IsInf(ratio, 1) {
		bonus = float64(cfg.TimeBonus) * math.Max(0, math.Min(1, 2-ratio))
	}
	res.Score = cfg.StageScore + t.Items*cfg.ItemScore + t.Cubes*cfg.CubeScore + int(math.Round(bonus))
	return res
}
