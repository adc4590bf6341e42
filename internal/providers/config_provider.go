package providers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"dppmini/internal/structures"

	"github.com/spf13/viper"
)

const AppName = "DPP Mini"

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.dataFile", "data/items.csv")
	v.SetDefault("storage.settingsFile", "data/config.json")
	v.SetDefault("webServer.host", "127.0.0.1")
	v.SetDefault("webServer.port", 8501)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", "data/logs")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 8)
	v.SetDefault("cache.ttl", 60)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("view.recentCount", 3)
	v.SetDefault("upload.maxFileSize", 10<<20)
}

// NewConfigProvider loads the YAML config named by flags. A missing file is
// not an error; defaults and environment overrides still apply.
func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	setDefaults(v)

	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.BindEnv("logger.level", "DPP_LOG_LEVEL")
	v.BindEnv("storage.dataFile", "DPP_DATA_FILE")
	v.BindEnv("storage.settingsFile", "DPP_SETTINGS_FILE")
	v.BindEnv("webServer.port", "DPP_PORT")
	v.BindEnv("cache.enabled", "DPP_CACHE_ENABLED")
	v.BindEnv("metrics.enabled", "DPP_METRICS_ENABLED")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := NewCnfValidator(&conf).Validate(); err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
