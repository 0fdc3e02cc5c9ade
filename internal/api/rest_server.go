// Package api отдаёт состояние забега, рекорды и метрики по HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/cube-runner/internal/event"
	"github.com/annel0/cube-runner/internal/game"
	"github.com/annel0/cube-runner/internal/logging"
	"github.com/annel0/cube-runner/internal/middleware"
	"github.com/annel0/cube-runner/internal/records"
	"github.com/annel0/cube-runner/internal/vec"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// GameView то, что REST читает из забега; безопасно для любой горутины
type GameView interface {
	Snapshot() game.Snapshot
	Records() *records.Records
}

// CommandSink передаёт команды игрока в горутину симуляции
type CommandSink interface {
	Submit(ev event.Event) error
}

// RestServer представляет REST API сервер
type RestServer struct {
	router      *gin.Engine
	httpServer  *http.Server
	game        GameView
	leaderboard records.Leaderboard
	commands    CommandSink
	metrics     *ServerMetrics
	logger      *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string              // адрес, например ":8088"
	Game        GameView            // забег
	Leaderboard records.Leaderboard // nil: таблица очков недоступна
	Commands    CommandSink         // nil: команды отключены
	Registry    *prometheus.Registry
	Tracing     bool // otelgin поверх глобального TracerProvider
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MoveRequest команда движения куба
type MoveRequest struct {
	ID    uint32 `json:"id" binding:"required"`
	Dir   string `json:"dir" binding:"required"`
	Speed int    `json:"speed"`
}

// GameoverRequest согласие на конец игры
type GameoverRequest struct {
	Mode event.CollapseMode `json:"mode"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if config.Tracing {
		router.Use(otelgin.Middleware("cube-runner"))
	}
	router.Use(middleware.NewRequestLogger(nil).Handler())

	promMw := middleware.NewPrometheusMiddleware("rest_api", config.Registry, config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	rs := &RestServer{
		router:      router,
		game:        config.Game,
		leaderboard: config.Leaderboard,
		commands:    config.Commands,
		metrics:     NewServerMetrics(),
		logger:      logging.GetServerLogger(),
	}
	rs.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/records", rs.handleRecords)
		api.GET("/records/stages/:stage", rs.handleStageRecord)
		api.GET("/leaderboard", rs.handleLeaderboard)
	}

	cmd := api.Group("/commands")
	{
		cmd.POST("/move", rs.handleMove)
		cmd.POST("/fall-all", rs.handleFallAll)
		cmd.POST("/gameover-agree", rs.handleGameoverAgree)
	}
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	snap := rs.game.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
		"run_id": snap.RunID,
		"over":   snap.Over,
	})
}

// handleStats состояние забега и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"game":   rs.game.Snapshot(),
			"server": rs.metrics.Snapshot(),
		},
	})
}

func (rs *RestServer) handleRecords(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Рекорды получены",
		Data:    rs.game.Records(),
	})
}

func (rs *RestServer) handleStageRecord(c *gin.Context) {
	stage, err := strconv.Atoi(c.Param("stage"))
	if err != nil || stage < 0 {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный номер этапа"})
		return
	}
	rec, ok := rs.game.Records().Stage(stage)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Message: "Этап ещё не пройден"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Рекорд этапа", Data: rec})
}

func (rs *RestServer) handleLeaderboard(c *gin.Context) {
	if rs.leaderboard == nil {
		c.JSON(http.StatusNotImplemented, GenericResponse{Message: "Хранилище не поддерживает таблицу очков"})
		return
	}
	n, err := strconv.Atoi(c.DefaultQuery("n", "10"))
	if err != nil || n <= 0 || n > 100 {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "n должно быть от 1 до 100"})
		return
	}
	top, err := rs.leaderboard.TopScores(c.Request.Context(), n)
	if err != nil {
		rs.logger.Error("Ошибка чтения таблицы очков: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Message: "Внутренняя ошибка сервера"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Таблица очков", Data: top})
}

func (rs *RestServer) handleMove(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный формат запроса"})
		return
	}
	dir, err := vec.ParseDirection(req.Dir)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: err.Error()})
		return
	}
	if req.Speed <= 0 {
		req.Speed = 1
	}
	rs.submit(c, event.MovePickable{ID: req.ID, Dir: dir, Speed: req.Speed})
}

func (rs *RestServer) handleFallAll(c *gin.Context) {
	rs.submit(c, event.FallAllPickable{})
}

func (rs *RestServer) handleGameoverAgree(c *gin.Context) {
	var req GameoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Message: "Неверный формат запроса"})
		return
	}
	rs.submit(c, event.GameoverAgree{Mode: req.Mode})
}

func (rs *RestServer) submit(c *gin.Context, ev event.Event) {
	if rs.commands == nil {
		c.JSON(http.StatusNotImplemented, GenericResponse{Message: "Команды отключены"})
		return
	}
	if err := rs.commands.Submit(ev); err != nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Команда принята: " + ev.Kind().String()})
}

// Start запускает HTTP сервер; блокирует до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.httpServer.Addr)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
