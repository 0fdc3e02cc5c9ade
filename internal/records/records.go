package records

import (
	"time"

	"github.com/annel0/cube-runner/internal/segment"
)

// StageRecord лучший результат на этапе
type StageRecord struct {
	BestTime  float64 `json:"best_time"`
	BestRank  Rank    `json:"best_rank"`
	BestScore int     `json:"best_score"`
	AllItems  bool    `json:"all_items"`
	Clears    int     `json:"clears"`
}

// Records сохраняемое состояние игрока
type Records struct {
	Stages    map[int]*StageRecord `json:"stages"`
	PlayCount int                  `json:"play_count"`
	PlayTime  float64              `json:"play_time"`
	HighScore int                  `json:"high_score"`

	// Текущий забег; обнуляется в ApplyGameOver
	RunScore  int `json:"run_score"`
	RunStages int `json:"run_stages"`

	// Точка продолжения после конца игры
	LastStage int               `json:"last_stage"`
	Continue  segment.Formation `json:"continue,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// New возвращает пустые рекорды
func New() *Records {
	return &Records{Stages: make(map[int]*StageRecord)}
}

// Stage возвращает рекорд этапа
func (r *Records) Stage(index int) (StageRecord, bool) {
	s, ok := r.Stages[index]
	if !ok {
		return StageRecord{}, false
	}
	return *s, true
}

// ApplyStageClear учитывает пройденный этап и формацию для продолжения.
// Возвращает true, если побит рекорд времени этапа.
func (r *Records) ApplyStageClear(res StageResult, formation segment.Formation) bool {
	if r.Stages == nil {
		r.Stages = make(map[int]*StageRecord)
	}
	r.RunScore += res.Score
	r.RunStages++
	r.PlayTime += res.Time
	r.LastStage = res.Stage + 1
	r.Continue = append(segment.Formation(nil), formation...)
	r.UpdatedAt = time.Now()

	s, ok := r.Stages[res.Stage]
	if !ok {
		r.Stages[res.Stage] = &StageRecord{
			BestTime:  res.Time,
			BestRank:  res.Rank,
			BestScore: res.Score,
			AllItems:  res.AllItems(),
			Clears:    1,
		}
		return true
	}

	s.Clears++
	s.AllItems = s.AllItems || res.AllItems()
	if res.Rank.Better(s.BestRank) {
		s.BestRank = res.Rank
	}
	if res.Score > s.BestScore {
		s.BestScore = res.Score
	}
	if res.Time < s.BestTime {
		s.BestTime = res.Time
		return true
	}
	return false
}

// ApplyGameOver завершает забег: счётчик игр, время, рекорд очков.
// stage: этап, на котором закончилась игра; с него можно продолжить.
// Возвращает true при новом рекорде очков.
func (r *Records) ApplyGameOver(stage int, playTime float64) bool {
	r.PlayCount++
	r.PlayTime += playTime
	r.LastStage = stage
	r.UpdatedAt = time.Now()

	best := r.RunScore > r.HighScore
	if best {
		r.HighScore = r.RunScore
	}
	r.RunScore = 0
	r.RunStages = 0
	return best
}

// Clone возвращает глубокую копию
func (r *Records) Clone() *Records {
	out := *r
	out.Stages = make(map[int]*StageRecord, len(r.Stages))
	for k, v := range r.Stages {
		s := *v
		out.Stages[k] = &s
	}
	out.Continue = append(segment.Formation(nil), r.Continue...)
	return &out
}
