package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrstage/qrstage/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qrstage.cfg.json"), []byte(content), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"reconcile": { "interval": "150ms", "settleDelay": "80ms" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 150*time.Millisecond, GetDuration("reconcile.interval"))
	assert.Equal(t, 80*time.Millisecond, GetDuration("reconcile.settleDelay"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./qrstagelogs", viper.GetString("logsDir"))
	assert.Equal(t, 200*time.Millisecond, GetDuration("reconcile.interval"))
	assert.Equal(t, 100*time.Millisecond, GetDuration("reconcile.settleDelay"))
	assert.Equal(t, "memory", viper.GetString("session.type"))
	assert.Equal(t, "./sessions", viper.GetString("session.memory.outputDir"))
	assert.Equal(t, true, viper.GetBool("session.memory.compressOutput"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestAssociations(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"associations": [
			{
				"identity": "Robot",
				"assetRef": "models/robot.glb",
				"positionOverride": { "x": 0, "y": 0.5, "z": 0 }
			},
			{
				"identity": "fern",
				"assetRef": "models/fern.glb",
				"rotationOverride": { "y": 180 }
			}
		]
	}`)

	require.NoError(t, Load(dir))

	entries, err := Associations()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Robot", entries[0].Identity)
	assert.Equal(t, "models/robot.glb", entries[0].AssetRef)
	assert.Equal(t, core.Position3D{Y: 0.5}, entries[0].PositionOverride)
	assert.True(t, entries[0].RotationOverride.IsZero())

	assert.Equal(t, "fern", entries[1].Identity)
	assert.Equal(t, core.Rotation3D{Y: 180}, entries[1].RotationOverride)
}

func TestGlobalDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"defaults": {
			"positionOffset": { "y": 0.1 },
			"scaleMultiplier": 0.5,
			"faceViewer": false
		}
	}`)

	require.NoError(t, Load(dir))

	d, err := GlobalDefaults()
	require.NoError(t, err)
	assert.Equal(t, core.Position3D{Y: 0.1}, d.PositionOffset)
	assert.Equal(t, 0.5, d.ScaleMultiplier)
	assert.False(t, d.FaceViewer)
}
