package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/cube-runner/internal/api"
	"github.com/annel0/cube-runner/internal/config"
	"github.com/annel0/cube-runner/internal/eventbus"
	"github.com/annel0/cube-runner/internal/game"
	"github.com/annel0/cube-runner/internal/logging"
	"github.com/annel0/cube-runner/internal/metrics"
	"github.com/annel0/cube-runner/internal/observability"
	"github.com/annel0/cube-runner/internal/records"
	"github.com/annel0/cube-runner/internal/segment"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации (или CUBE_CONFIG)")
		autopilot  = flag.Bool("autopilot", true, "Вести кубы автоматически")
		duration   = flag.Duration("duration", 0, "Остановиться через заданное время (0: до сигнала)")
		startStage = flag.Int("stage", 0, "Этап, с которого начинается забег")
		tracing    = flag.Bool("tracing", false, "Экспорт трассировки OpenTelemetry (OTLP HTTP)")
		logDir     = flag.String("log-dir", "logs", "Каталог файлов логов")
	)
	flag.Parse()

	logging.SetLogDir(*logDir)
	if err := logging.InitDefaultLogger("cube-runner"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer func() { _ = logging.GetLoggerManager().CloseAll() }()

	if err := run(*configPath, *autopilot, *duration, *startStage, *tracing); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Симуляция остановлена")
}

func run(configPath string, autopilot bool, duration time.Duration, startStage int, tracing bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if lvl, err := logging.ParseLevel(cfg.Simulation.LogLevel); err == nil {
		logging.SetDefaultLevel(lvl, logging.DEBUG)
	}
	if err := logging.GetLoggerManager().ApplyLevels(cfg.Simulation.ComponentLevels); err != nil {
		return fmt.Errorf("конфигурация: %w", err)
	}
	logging.Info("🎮 Запуск cube-runner: seed=%d, рекорды=%s, автопилот=%v", cfg.Simulation.Seed, backendName(cfg.Records.Backend), autopilot)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	// === Участки ===
	source, err := openSource(cfg)
	if err != nil {
		return err
	}

	// === Трассировка ===
	if tracing {
		shutdown, err := observability.InitTelemetry(ctx, observability.TelemetryOptions{
			ServiceName:    "cube-runner",
			Seed:           cfg.Simulation.Seed,
			RecordsBackend: backendName(cfg.Records.Backend),
			StageSource:    sourceName(source),
			Autopilot:      autopilot,
		})
		if err != nil {
			return fmt.Errorf("трассировка: %w", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	// === Рекорды ===
	store, err := records.Open(cfg.Records)
	if err != nil {
		return fmt.Errorf("рекорды: %w", err)
	}

	g, err := game.New(cfg, source, store)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer func() {
		if err := g.Close(); err != nil {
			logging.Error("Ошибка закрытия забега: %v", err)
		}
	}()

	// === Метрики ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gameMetrics := metrics.NewGameMetrics(reg)
	gameMetrics.Attach(g.Bus())

	// === Внешняя шина событий ===
	bus, err := eventbus.Open(cfg.EventBus.URL, cfg.EventBus.Stream, time.Duration(cfg.EventBus.Retention)*time.Hour, cfg.EventBus.Capacity)
	if err != nil {
		return fmt.Errorf("шина событий: %w", err)
	}
	defer func() { _ = bus.Close() }()
	if _, err := eventbus.StartLoggingListener(ctx, bus, eventbus.Filter{}); err != nil {
		return err
	}
	busMetrics := eventbus.NewMetricsExporter(bus, reg)
	busMetrics.Start(time.Second)
	defer busMetrics.Stop()

	fwdCtx, fwdCancel := context.WithCancel(context.Background())
	fwd := eventbus.NewForwarder(bus, "cube-runner", g.RunInfo, cfg.EventBus.Capacity)
	fwd.Attach(g.Bus())
	fwdDone := make(chan struct{})
	go func() {
		fwd.Run(fwdCtx)
		close(fwdDone)
	}()
	defer func() {
		fwdCancel()
		<-fwdDone
	}()

	if tracing {
		tracer := observability.NewStageTracer(g.Bus(), otel.GetTracerProvider(), g.Field().StageIndex)
		defer tracer.Close()
	}

	// === HTTP ===
	commands := newCommandQueue(64)
	var lb records.Leaderboard
	if l, ok := store.(records.Leaderboard); ok {
		lb = l
	}
	rest := api.NewRestServer(api.Config{
		Port:        fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Game:        g,
		Leaderboard: lb,
		Commands:    commands,
		Registry:    reg,
		Tracing:     tracing,
	})
	go func() {
		if err := rest.Start(); err != nil {
			logging.Error("❌ REST API: %v", err)
		}
	}()

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rest.Stop(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки REST API: %v", err)
		}
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	// === Симуляция ===
	if err := g.StartRun(startStage); err != nil {
		return err
	}
	sim := newSimulation(g, cfg, commands, gameMetrics, autopilot)
	sim.Run(ctx)

	snap := g.Snapshot()
	logging.Info("🏁 Итог: рекорд %d, игр %d, этап %d", snap.HighScore, snap.PlayCount, snap.Field.Stage)
	return nil
}

func openSource(cfg *config.Config) (*segment.Sequence, error) {
	seq := &segment.Sequence{}
	if cfg.Stages.Dir != "" {
		cat, err := segment.LoadCatalog(cfg.Stages.Dir)
		switch {
		case err == nil:
			seq.Catalog = cat
			logging.Info("📦 Загружено участков: %d (%s)", cat.Len(), cfg.Stages.Dir)
		case errors.Is(err, os.ErrNotExist):
			logging.Warn("Каталог участков %s не найден", cfg.Stages.Dir)
		default:
			return nil, err
		}
	}
	if cfg.Stages.Generated || seq.Catalog == nil {
		seq.Generator = segment.NewGenerator(cfg.Simulation.Seed, cfg.Stages.Width, cfg.Stages.Length)
	}
	return seq, nil
}

// sourceName описывает источник участков для атрибутов трассировки
func sourceName(seq *segment.Sequence) string {
	switch {
	case seq.Catalog != nil && seq.Generator != nil:
		return "catalog+generated"
	case seq.Catalog != nil:
		return "catalog"
	default:
		return "generated"
	}
}

func backendName(b string) string {
	if b == "" {
		return "memory"
	}
	return b
}
