// Package metrics экспортирует состояние симуляции в Prometheus.
package metrics

import (
	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/field"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cube_runner"

// GameMetrics счётчики событий ядра и датчики состояния поля
type GameMetrics struct {
	events        *prometheus.CounterVec
	stagesCleared prometheus.Counter
	gameovers     *prometheus.CounterVec
	fallen        prometheus.Counter
	pressed       prometheus.Counter
	items         prometheus.Counter
	switches      prometheus.Counter
	clearTime     prometheus.Histogram

	phase      *prometheus.GaugeVec
	stage      prometheus.Gauge
	activeRows prometheus.Gauge
	pendingRow prometheus.Gauge
	pickables  prometheus.Gauge
	awake      prometheus.Gauge
}

// NewGameMetrics создаёт метрики и регистрирует их в reg
func NewGameMetrics(reg prometheus.Registerer) *GameMetrics {
	m := &GameMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "События ядра по типу.",
		}, []string{"type"}),
		stagesCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stages_cleared_total",
			Help:      "Пройденные этапы.",
		}),
		gameovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gameovers_total",
			Help:      "Концы игры по причине.",
		}, []string{"reason"}),
		fallen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pickables_fallen_total",
			Help:      "Упавшие кубы игрока.",
		}),
		pressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pickables_pressed_total",
			Help:      "Раздавленные кубы игрока.",
		}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_picked_total",
			Help:      "Подобранные предметы.",
		}),
		switches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "switches_activated_total",
			Help:      "Сработавшие переключатели.",
		}),
		clearTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_clear_seconds",
			Help:      "Время прохождения этапа от старта до финиша.",
			Buckets:   []float64{2, 4, 6, 8, 10, 15, 20, 30, 45, 60},
		}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "field_phase",
			Help:      "1 для текущей фазы поля.",
		}, []string{"phase"}),
		stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_index",
			Help:      "Номер текущего этапа.",
		}),
		activeRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_active_rows",
			Help:      "Построенные и ещё не обрушенные ряды.",
		}),
		pendingRow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_pending_rows",
			Help:      "Ряды в очереди постройки.",
		}),
		pickables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pickables",
			Help:      "Кубы игрока в пуле.",
		}),
		awake: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pickables_awake",
			Help:      "Бодрствующие кубы игрока.",
		}),
	}
	reg.MustRegister(
		m.events, m.stagesCleared, m.gameovers, m.fallen, m.pressed, m.items, m.switches, m.clearTime,
		m.phase, m.stage, m.activeRows, m.pendingRow, m.pickables, m.awake,
	)
	return m
}

// Attach подписывает метрики на все события шины
func (m *GameMetrics) Attach(bus *event.Bus) event.Subscription {
	return bus.SubscribeAll(m.Record)
}

// Record учитывает одно событие
func (m *GameMetrics) Record(ev event.Event) {
	m.events.WithLabelValues(ev.Kind().String()).Inc()
	switch e := ev.(type) {
	case event.StageCleared:
		m.stagesCleared.Inc()
		m.clearTime.Observe(e.Time)
	case event.BeginGameover:
		m.gameovers.WithLabelValues(e.Reason).Inc()
	case event.FallingPickable:
		m.fallen.Inc()
	case event.PressedPickable:
		m.pressed.Inc()
	case event.ItemPicked:
		m.items.Inc()
	case event.SwitchActivated:
		m.switches.Inc()
	}
}

// Observe обновляет датчики по снимку поля
func (m *GameMetrics) Observe(s field.Stats) {
	for _, p := range []field.Phase{field.PhaseNone, field.PhaseStart, field.PhaseFinish, field.PhaseClear, field.PhaseCleanup} {
		v := 0.0
		if p == s.Phase {
			v = 1
		}
		m.phase.WithLabelValues(p.String()).Set(v)
	}
	m.stage.Set(float64(s.Stage))
	m.activeRows.Set(float64(s.ActiveRows))
	m.pendingRow.Set(float64(s.PendingRows))
	m.pickables.Set(float64(s.Pickables))
	m.awake.Set(float64(s.Awake))
}
