package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Records.Backend)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.yaml")
	data := []byte(`
simulation:
  debug: true
stage:
  build_interval: 0.2
pickable:
  max_speed: 3
records:
  backend: badger
  path: /tmp/records
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Simulation.Debug)
	assert.Equal(t, 0.2, cfg.Stage.BuildInterval)
	assert.Equal(t, 3, cfg.Pickable.MaxSpeed)
	assert.Equal(t, "badger", cfg.Records.Backend)
	// Незаданные поля сохраняют дефолты
	assert.Equal(t, Default().Stage.CollapseInterval, cfg.Stage.CollapseInterval)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stage:\n  build_interval: 0\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("CUBE_REST_PORT", "9191")
	assert.Equal(t, 9191, s.GetRESTPort())
	assert.Equal(t, 2112, s.GetMetricsPort())

	s.RESTPort = 7000
	assert.Equal(t, 7000, s.GetRESTPort())
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := Load("../../configs/cube-runner.yaml")
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, "badger", cfg.Records.Backend)
	assert.Equal(t, "assets/stages", cfg.Stages.Dir)
	assert.Empty(t, cfg.EventBus.URL)
	assert.Equal(t, 0.5, cfg.Item.MoveDownDuration)
	assert.Equal(t, "warn", cfg.Simulation.ComponentLevels["stage"])
}
