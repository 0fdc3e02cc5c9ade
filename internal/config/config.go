package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации симуляции.
// Все значения имеют дефолты (см. Default), YAML только переопределяет их.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Stage      StageConfig      `yaml:"stage"`
	Pickable   PickableConfig   `yaml:"pickable"`
	Item       ItemConfig       `yaml:"item"`
	Moving     MovingConfig     `yaml:"moving"`
	Falling    FallingConfig    `yaml:"falling"`
	Panel      PanelConfig      `yaml:"panel"`
	Records    RecordsConfig    `yaml:"records"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Server     ServerConfig     `yaml:"server"`
	Stages     StagesConfig     `yaml:"stages"`
}

type SimulationConfig struct {
	// Максимальный шаг времени за кадр (секунды); защищает от рывков после зависания
	MaxProgressingSeconds float64 `yaml:"max_progressing_seconds"`
	FrameRate             int     `yaml:"frame_rate"`
	Debug                 bool    `yaml:"debug"`
	LogLevel              string  `yaml:"log_level"`
	// Уровни консоли по компонентам: field, stage, records, game, eventbus, server, simulation
	ComponentLevels      map[string]string `yaml:"component_levels"`
	Seed                 int64             `yaml:"seed"`
	BackgroundFollowRate float64           `yaml:"background_follow_rate"`
	// Пауза между объявлением конца игры и очисткой поля
	GameoverDelay float64 `yaml:"gameover_delay"`
	// Что делать после очистки: restart | continue | abort
	OnGameover string `yaml:"on_gameover"`
}

type StageConfig struct {
	BuildInterval     float64  `yaml:"build_interval"`
	CollapseInterval  float64  `yaml:"collapse_interval"`
	StartSpeedupLines int      `yaml:"start_speedup_lines"`
	StartSpeedupRate  float64  `yaml:"start_speedup_rate"`
	BuildOffsetMin    float64  `yaml:"build_offset_min"`
	BuildOffsetMax    float64  `yaml:"build_offset_max"`
	BuildDurationMin  float64  `yaml:"build_duration_min"`
	BuildDurationMax  float64  `yaml:"build_duration_max"`
	BuildEases        []string `yaml:"build_eases"`
	CollapseOffset    float64  `yaml:"collapse_offset"`
	CollapseDuration  float64  `yaml:"collapse_duration"`
	CollapseEase      string   `yaml:"collapse_ease"`
	AutoCollapseDelay float64  `yaml:"auto_collapse_delay"`
	OpenStartDelay    float64  `yaml:"open_start_line_delay"`
	MoveDownDuration  float64  `yaml:"move_down_duration"`
	StartLineOffset   int      `yaml:"start_line_offset"`
	FinishLineOffset  int      `yaml:"finish_line_offset"`
	ClearCollapseRate float64  `yaml:"clear_collapse_rate"`
	CleanupRate       float64  `yaml:"cleanup_collapse_rate"`
	Palette           []string `yaml:"palette"`
}

type PickableConfig struct {
	EntryDelay       float64 `yaml:"entry_delay"`
	EntryInterval    float64 `yaml:"entry_interval"`
	EntryDuration    float64 `yaml:"entry_duration"`
	EntryOffset      float64 `yaml:"entry_offset"`
	MaxSpeed         int     `yaml:"max_speed"`
	MoveDurationMin  float64 `yaml:"move_duration_min"`
	MoveDurationMax  float64 `yaml:"move_duration_max"`
	SpeedExponent    float64 `yaml:"speed_exponent"`
	FallDuration     float64 `yaml:"fall_duration"`
	FallDistance     float64 `yaml:"fall_distance"`
	PressedScale     float64 `yaml:"pressed_scale"`
	PressedFallShift float64 `yaml:"pressed_fall_offset"`
	Padding          float64 `yaml:"padding"`
	AdjoinPadding    float64 `yaml:"adjoin_padding"`
	SwipeThreshold   float64 `yaml:"swipe_threshold"`
	SwipeSpeedScale  float64 `yaml:"swipe_speed_scale"`
}

type ItemConfig struct {
	EntryDuration    float64 `yaml:"entry_duration"`
	EntryOffset      float64 `yaml:"entry_offset"`
	SpinDuration     float64 `yaml:"spin_duration"`
	PickDuration     float64 `yaml:"pick_duration"`
	FallDuration     float64 `yaml:"fall_duration"`
	MoveDownDuration float64 `yaml:"move_down_duration"`
}

type MovingConfig struct {
	EntryDuration float64 `yaml:"entry_duration"`
	EntryOffset   float64 `yaml:"entry_offset"`
	StepDuration  float64 `yaml:"step_duration"`
	FallDuration  float64 `yaml:"fall_duration"`
}

type FallingConfig struct {
	EntryDuration float64 `yaml:"entry_duration"`
	Height        float64 `yaml:"height"`
	DropDuration  float64 `yaml:"drop_duration"`
	StayDuration  float64 `yaml:"stay_duration"`
	RiseDuration  float64 `yaml:"rise_duration"`
	FallDuration  float64 `yaml:"fall_duration"`
}

// PanelConfig общие параметры панелей (переключатели и односторонние)
type PanelConfig struct {
	EntryDuration float64 `yaml:"entry_duration"`
	FallDuration  float64 `yaml:"fall_duration"`
	PressDepth    float64 `yaml:"press_depth"`
}

type RecordsConfig struct {
	Backend       string  `yaml:"backend"` // memory | badger | redis
	Path          string  `yaml:"path"`
	RedisAddr     string  `yaml:"redis_addr"`
	RedisPrefix   string  `yaml:"redis_prefix"`
	SecondsPerRow float64 `yaml:"seconds_per_row"`
	StageScore    int     `yaml:"stage_score"`
	ItemScore     int     `yaml:"item_score"`
	CubeScore     int     `yaml:"cube_score"`
	TimeBonus     int     `yaml:"time_bonus"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Capacity  int    `yaml:"capacity"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type StagesConfig struct {
	Dir       string `yaml:"dir"`
	Generated bool   `yaml:"generated"`
	Width     int    `yaml:"width"`
	Length    int    `yaml:"length"`
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "CUBE_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "CUBE_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV CUBE_CONFIG или возвращает дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CUBE_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет, что интервалы и длительности положительны
func (c *Config) Validate() error {
	positive := map[string]float64{
		"simulation.max_progressing_seconds": c.Simulation.MaxProgressingSeconds,
		"stage.build_interval":               c.Stage.BuildInterval,
		"stage.collapse_interval":            c.Stage.CollapseInterval,
		"stage.build_duration_min":           c.Stage.BuildDurationMin,
		"stage.collapse_duration":            c.Stage.CollapseDuration,
		"stage.move_down_duration":           c.Stage.MoveDownDuration,
		"pickable.move_duration_min":         c.Pickable.MoveDurationMin,
		"pickable.fall_duration":             c.Pickable.FallDuration,
		"pickable.entry_duration":            c.Pickable.EntryDuration,
		"falling.drop_duration":              c.Falling.DropDuration,
		"moving.step_duration":               c.Moving.StepDuration,
		"item.move_down_duration":            c.Item.MoveDownDuration,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("конфигурация: %s должен быть > 0 (получено %v)", name, v)
		}
	}
	if c.Stage.BuildDurationMax < c.Stage.BuildDurationMin {
		return fmt.Errorf("конфигурация: stage.build_duration_max < build_duration_min")
	}
	if c.Pickable.MoveDurationMax < c.Pickable.MoveDurationMin {
		return fmt.Errorf("конфигурация: pickable.move_duration_max < move_duration_min")
	}
	switch c.Simulation.OnGameover {
	case "restart", "continue", "abort":
	default:
		return fmt.Errorf("конфигурация: simulation.on_gameover должен быть restart, continue или abort (получено %q)", c.Simulation.OnGameover)
	}
	if c.Pickable.MaxSpeed < 1 {
		return fmt.Errorf("конфигурация: pickable.max_speed должен быть >= 1")
	}
	return nil
}
