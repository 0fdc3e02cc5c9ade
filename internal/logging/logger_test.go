package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	logger := NewConsoleLogger("test")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Debug("скрыто %d", 1)
	assert.Empty(t, buf.String(), "DEBUG не должен попадать в консоль по умолчанию")

	logger.Info("видно %d", 2)
	assert.Contains(t, buf.String(), "[INFO] [test] видно 2")

	buf.Reset()
	logger.SetLevel(TRACE, TRACE)
	logger.Trace("трасса")
	assert.Contains(t, buf.String(), "[TRACE]")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WARN, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerManagerReusesComponents(t *testing.T) {
	lm := GetLoggerManager()
	a := lm.MustGetLogger("manager-test")
	b := lm.MustGetLogger("manager-test")
	assert.Same(t, a, b)
	assert.Contains(t, lm.ListComponents(), "manager-test")
	assert.NoError(t, lm.SetLogLevel("manager-test", ERROR, ERROR))
	assert.Error(t, lm.SetLogLevel("missing-component", ERROR, ERROR))
}

func TestApplyLevelsReachesLaterLoggers(t *testing.T) {
	lm := GetLoggerManager()
	early := lm.MustGetLogger("levels-early")

	require.NoError(t, lm.ApplyLevels(map[string]string{
		"levels-early": "error",
		"levels-late":  "warn",
	}))
	assert.Equal(t, ERROR, early.minConsoleLevel)

	late := lm.MustGetLogger("levels-late")
	assert.Equal(t, WARN, late.minConsoleLevel)
	assert.Equal(t, DEBUG, late.minFileLevel)

	assert.Error(t, lm.ApplyLevels(map[string]string{"field": "loud"}))
}
