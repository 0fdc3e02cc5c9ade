// Package event описывает закрытый набор игровых событий ядра и синхронную шину.
package event

import (
	"fmt"

	"github.com/annel0/cube-runner/internal/vec"
)

// Kind определяет тип события
type Kind uint8

const (
	KindPickableOnStage      Kind = iota + 1 // Куб игрока встал на поле
	KindPickableMoved                        // Куб игрока завершил шаг
	KindFallingPickable                      // Куб игрока начал падение
	KindPressedPickable                      // Куб игрока раздавлен
	KindFirstPickableStarted                 // Первый куб пересёк стартовую линию
	KindAllPickableFinished                  // Все кубы пересекли финишную линию
	KindStageCleared                         // Этап пройден
	KindBuildOneLine                         // Построен ряд
	KindBuildFinishLine                      // Построен финишный ряд
	KindCollapseOneLine                      // Обрушен ряд
	KindStartlineOpened                      // Стартовая линия опущена
	KindStageAllCollapsed                    // Поле полностью обрушено
	KindBeginStageClear                      // Начало прохождения этапа
	KindBeginGameover                        // Начало конца игры
	KindItemPicked                           // Подобран предмет
	KindSwitchActivated                      // Сработал переключатель
	KindOnewayActivated                      // Сработала односторонняя панель
	KindPickableAwake                        // Спящий куб проснулся

	// Входящие команды
	KindMovePickable
	KindFallPickable
	KindFallAllPickable
	KindGameoverAgree
)

var kindNames = map[Kind]string{
	KindPickableOnStage:      "pickable-on-stage",
	KindPickableMoved:        "pickable-moved",
	KindFallingPickable:      "falling-pickable",
	KindPressedPickable:      "pressed-pickable",
	KindFirstPickableStarted: "first-pickable-started",
	KindAllPickableFinished:  "all-pickable-finished",
	KindStageCleared:         "stage-cleared",
	KindBuildOneLine:         "build-one-line",
	KindBuildFinishLine:      "build-finish-line",
	KindCollapseOneLine:      "collapse-one-line",
	KindStartlineOpened:      "startline-opened",
	KindStageAllCollapsed:    "stage-all-collapsed",
	KindBeginStageClear:      "begin-stageclear",
	KindBeginGameover:        "begin-gameover",
	KindItemPicked:           "item-picked",
	KindSwitchActivated:      "switch-activated",
	KindOnewayActivated:      "oneway-activated",
	KindPickableAwake:        "pickable-awake",
	KindMovePickable:         "move-pickable",
	KindFallPickable:         "fall-pickable",
	KindFallAllPickable:      "fall-all-pickable",
	KindGameoverAgree:        "gameover-agree",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Kinds возвращает все известные типы в порядке объявления
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindPickableOnStage; k <= KindGameoverAgree; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind находит тип по имени вида "stage-cleared"
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Event интерфейс всех событий
type Event interface {
	Kind() Kind
}

// CollapseMode режим завершения очистки поля после конца игры
type CollapseMode uint8

const (
	ModeRestart  CollapseMode = iota // Новый забег с первого этапа
	ModeContinue                     // Продолжение с последнего этапа
	ModeAbort                        // Выход без нового забега
)

func (m CollapseMode) String() string {
	switch m {
	case ModeRestart:
		return "restart"
	case ModeContinue:
		return "continue"
	case ModeAbort:
		return "abort"
	}
	return "unknown"
}

// MarshalText сериализует режим строкой
func (m CollapseMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *CollapseMode) UnmarshalText(text []byte) error {
	v, err := ParseCollapseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseCollapseMode разбирает режим из конфигурации: restart | continue | abort
func ParseCollapseMode(s string) (CollapseMode, error) {
	for _, m := range []CollapseMode{ModeRestart, ModeContinue, ModeAbort} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("event: unknown collapse mode %q", s)
}

type PickableOnStage struct {
	ID  uint32   `json:"id"`
	Pos vec.Vec3 `json:"pos"`
}

type PickableMoved struct {
	ID   uint32        `json:"id"`
	From vec.Vec3      `json:"from"`
	To   vec.Vec3      `json:"to"`
	Dir  vec.Direction `json:"dir"`
}

type FallingPickable struct {
	ID  uint32   `json:"id"`
	Pos vec.Vec3 `json:"pos"`
}

type PressedPickable struct {
	ID        uint32   `json:"id"`
	FallingID uint32   `json:"falling_id"`
	Pos       vec.Vec3 `json:"pos"`
}

type FirstPickableStarted struct {
	ID         uint32 `json:"id"`
	StartLineZ int    `json:"start_line_z"`
}

type AllPickableFinished struct {
	Count       int `json:"count"`
	FinishLineZ int `json:"finish_line_z"`
}

// StageCleared итог этапа
type StageCleared struct {
	Stage       int     `json:"stage"`
	Time        float64 `json:"time"`
	Items       int     `json:"items"`
	ItemsTotal  int     `json:"items_total"`
	Cubes       int     `json:"cubes"`
	Rows        int     `json:"rows"`
	FinishLineZ int     `json:"finish_line_z"`
}

type BuildOneLine struct {
	Z     int `json:"z"`
	Cubes int `json:"cubes"`
}

type BuildFinishLine struct {
	Z int `json:"z"`
}

type CollapseOneLine struct {
	Z int `json:"z"`
}

type StartlineOpened struct {
	Z int `json:"z"`
}

type StageAllCollapsed struct {
	Mode CollapseMode `json:"mode"`
}

type BeginStageClear struct {
	Stage int `json:"stage"`
}

type BeginGameover struct {
	Stage  int    `json:"stage"`
	Reason string `json:"reason"`
}

type ItemPicked struct {
	ItemID     uint32   `json:"item_id"`
	PickableID uint32   `json:"pickable_id"`
	Pos        vec.Vec3 `json:"pos"`
}

type SwitchActivated struct {
	SwitchID   uint32     `json:"switch_id"`
	PickableID uint32     `json:"pickable_id"`
	Targets    []vec.Vec3 `json:"targets"`
}

type OnewayActivated struct {
	OnewayID   uint32        `json:"oneway_id"`
	PickableID uint32        `json:"pickable_id"`
	Dir        vec.Direction `json:"dir"`
	Power      int           `json:"power"`
}

type PickableAwake struct {
	ID  uint32   `json:"id"`
	Pos vec.Vec3 `json:"pos"`
}

type MovePickable struct {
	ID    uint32        `json:"id"`
	Dir   vec.Direction `json:"dir"`
	Speed int           `json:"speed"`
}

type FallPickable struct {
	ID uint32 `json:"id"`
}

type FallAllPickable struct{}

type GameoverAgree struct {
	Mode CollapseMode `json:"mode"`
}

func (PickableOnStage) Kind() Kind      { return KindPickableOnStage }
func (PickableMoved) Kind() Kind        { return KindPickableMoved }
func (FallingPickable) Kind() Kind      { return KindFallingPickable }
func (PressedPickable) Kind() Kind      { return KindPressedPickable }
func (FirstPickableStarted) Kind() Kind { return KindFirstPickableStarted }
func (AllPickableFinished) Kind() Kind  { return KindAllPickableFinished }
func (StageCleared) Kind() Kind         { return KindStageCleared }
func (BuildOneLine) Kind() Kind         { return KindBuildOneLine }
func (BuildFinishLine) Kind() Kind      { return KindBuildFinishLine }
func (CollapseOneLine) Kind() Kind      { return KindCollapseOneLine }
func (StartlineOpened) Kind() Kind      { return KindStartlineOpened }
func (StageAllCollapsed) Kind() Kind    { return KindStageAllCollapsed }
func (BeginStageClear) Kind() Kind      { return KindBeginStageClear }
func (BeginGameover) Kind() Kind        { return KindBeginGameover }
func (ItemPicked) Kind() Kind           { return KindItemPicked }
func (SwitchActivated) Kind() Kind      { return KindSwitchActivated }
func (OnewayActivated) Kind() Kind      { return KindOnewayActivated }
func (PickableAwake) Kind() Kind        { return KindPickableAwake }
func (MovePickable) Kind() Kind         { return KindMovePickable }
func (FallPickable) Kind() Kind         { return KindFallPickable }
func (FallAllPickable) Kind() Kind      { return KindFallAllPickable }
func (GameoverAgree) Kind() Kind        { return KindGameoverAgree }
