package logging

import (
	"fmt"
	"sort"
	"sync"
)

// Компоненты симуляции с собственными логгерами
const (
	ComponentField      = "field"
	ComponentStage      = "stage"
	ComponentRecords    = "records"
	ComponentGame       = "game"
	ComponentEventBus   = "eventbus"
	ComponentServer     = "server"
	ComponentSimulation = "simulation"
)

// LoggerManager хранит логгеры компонентов; каждый пишет в свой файл
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	// уровни, заданные до первого обращения к компоненту
	levels map[string]LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
			levels:  make(map[string]LogLevel),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при необходимости
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger, nil
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Компонент мог появиться, пока ждали write lock
	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер компонента %s: %w", component, err)
	}
	if lvl, ok := lm.levels[component]; ok {
		logger.SetLevel(lvl, DEBUG)
	}

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный при ошибке файла
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return NewConsoleLogger(component)
	}
	return logger
}

// CloseAll закрывает все логгеры
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("закрытие логгера %s: %w", component, err)
		}
	}

	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// ListComponents возвращает зарегистрированные компоненты по алфавиту
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// SetLogLevel устанавливает уровень логирования для компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.RLock()
	logger, exists := lm.loggers[component]
	lm.mu.RUnlock()

	if !exists {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}

	logger.SetLevel(consoleLevel, fileLevel)
	return nil
}

// ApplyLevels задаёт консольные уровни по компонентам, например
// {"field": "debug", "stage": "warn"}. Уровень запоминается и для
// компонентов, чьи логгеры ещё не созданы. Файл пишет всё с DEBUG.
func (lm *LoggerManager) ApplyLevels(levels map[string]string) error {
	parsed := make(map[string]LogLevel, len(levels))
	for component, name := range levels {
		lvl, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("уровень компонента %s: %w", component, err)
		}
		parsed[component] = lvl
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	for component, lvl := range parsed {
		lm.levels[component] = lvl
		if logger, ok := lm.loggers[component]; ok {
			logger.SetLevel(lvl, DEBUG)
		}
	}
	return nil
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetFieldLogger() *Logger   { return GetComponentLogger(ComponentField) }
func GetStageLogger() *Logger   { return GetComponentLogger(ComponentStage) }
func GetRecordsLogger() *Logger { return GetComponentLogger(ComponentRecords) }
func GetServerLogger() *Logger  { return GetComponentLogger(ComponentServer) }
