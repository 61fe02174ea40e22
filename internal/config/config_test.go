package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsSelfConsistent(t *testing.T) {
	cfg := Default()
	require.Equal(t, "uart", cfg.Nodes.PowerAmp.Kind)
	require.Equal(t, "i2c", cfg.Nodes.Battery.Kind)
	require.Less(t, cfg.PVDD.VMin, cfg.PVDD.VMax)
	require.Less(t, cfg.AdaptiveSRC.Min, cfg.AdaptiveSRC.Max)
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
nodes:
  power_amp:
    kind: uart
    device: /dev/ttyUSB0
    baud: 230400
pvdd:
  v_min: 18
  v_max: 50
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", cfg.Nodes.PowerAmp.Device)
	require.Equal(t, 230400, cfg.Nodes.PowerAmp.Baud)
	require.Equal(t, float32(18), cfg.PVDD.VMin)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}
