package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Media    MediaConfig    `mapstructure:"media"    validate:"required"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer" validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	// WorkerCount bounds how many analysis pipelines run concurrently.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// QueueSize is the buffer size of the in-memory task queue. Submissions
	// beyond a full queue fail synchronously rather than piling up.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// TimeoutMinutes is an optional per-task deadline. Zero disables the
	// deadline; a hung external call then keeps its task in processing.
	TimeoutMinutes int `mapstructure:"timeout_minutes" validate:"gte=0"`
}

// MediaConfig contains settings for upload handling and audio extraction.
type MediaConfig struct {
	// WorkspaceDir is the root under which each task gets a private
	// working directory.
	WorkspaceDir string `mapstructure:"workspace_dir" validate:"required"`

	// FFmpegPath is the ffmpeg binary used for audio extraction.
	FFmpegPath string `mapstructure:"ffmpeg_path" validate:"required"`

	// MaxUploadMB caps the accepted upload size in megabytes.
	MaxUploadMB int `mapstructure:"max_upload_mb" validate:"required,gt=0"`
}

// AnalyzerConfig contains settings for the external speech analysis engine.
type AnalyzerConfig struct {
	// Command is the analyzer executable invoked per task.
	Command string `mapstructure:"command" validate:"required"`
}
