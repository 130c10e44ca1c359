package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables use the SPEECH_ prefix with underscores for
// nesting (e.g. SPEECH_SERVER_PORT, SPEECH_DATABASE_URL) and take precedence
// over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine; environment variables and defaults apply.
	}

	v.SetEnvPrefix("SPEECH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not register keys for Unmarshal, so bind every known
	// key explicitly.
	for _, key := range []string{
		"server.port",
		"server.log_level",
		"database.url",
		"task.worker_count",
		"task.queue_size",
		"task.timeout_minutes",
		"media.workspace_dir",
		"media.ffmpeg_path",
		"media.max_upload_mb",
		"analyzer.command",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for all optional settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("task.worker_count", 4)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.timeout_minutes", 30)
	v.SetDefault("media.workspace_dir", "uploads")
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.max_upload_mb", 100)
	v.SetDefault("analyzer.command", "speech-analyzer")
}
