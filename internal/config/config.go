package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/qrstage/qrstage/internal/core"
)

// AssociationEntry is one configured marker-identity → asset mapping.
// Overrides left at the zero vector fall back to the global defaults.
type AssociationEntry struct {
	Identity         string          `json:"identity" mapstructure:"identity"`
	AssetRef         string          `json:"assetRef" mapstructure:"assetRef"`
	PositionOverride core.Position3D `json:"positionOverride" mapstructure:"positionOverride"`
	RotationOverride core.Rotation3D `json:"rotationOverride" mapstructure:"rotationOverride"`
}

// Defaults holds the global display defaults applied to every spawned instance.
type Defaults struct {
	PositionOffset  core.Position3D `json:"positionOffset" mapstructure:"positionOffset"`
	RotationOffset  core.Rotation3D `json:"rotationOffset" mapstructure:"rotationOffset"`
	ScaleMultiplier float64         `json:"scaleMultiplier" mapstructure:"scaleMultiplier"`
	FaceViewer      bool            `json:"faceViewer" mapstructure:"faceViewer"`
}

// MemoryConfig holds in-memory/JSON session storage settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./qrstagelogs")

	viper.SetDefault("reconcile.interval", "200ms")
	viper.SetDefault("reconcile.settleDelay", "100ms")

	viper.SetDefault("defaults.scaleMultiplier", 1.0)
	viper.SetDefault("defaults.faceViewer", true)

	viper.SetDefault("session.type", "memory")
	viper.SetDefault("session.flushInterval", "1s")
	viper.SetDefault("session.memory.outputDir", "./sessions")
	viper.SetDefault("session.memory.compressOutput", true)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "qrstage")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "qrstage-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetConfigName("qrstage.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// Associations returns the configured marker associations in file order.
func Associations() ([]AssociationEntry, error) {
	var entries []AssociationEntry
	if err := viper.UnmarshalKey("associations", &entries); err != nil {
		return nil, fmt.Errorf("error decoding associations: %w", err)
	}
	return entries, nil
}

// GlobalDefaults returns the global display defaults.
func GlobalDefaults() (Defaults, error) {
	var d Defaults
	if err := viper.UnmarshalKey("defaults", &d); err != nil {
		return Defaults{}, fmt.Errorf("error decoding defaults: %w", err)
	}
	return d, nil
}

// Memory returns the in-memory session storage settings.
func Memory() MemoryConfig {
	return MemoryConfig{
		OutputDir:      viper.GetString("session.memory.outputDir"),
		CompressOutput: viper.GetBool("session.memory.compressOutput"),
	}
}
