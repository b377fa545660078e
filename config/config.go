package config

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Display  DisplayConfig
	Session  SessionConfig
	Watch    WatchConfig
	Mappings MappingsConfig
	Debug    bool
}

type DisplayConfig struct {
	Theme      string
	ShowFlags  string
	Timestamps bool
	Truncation TruncationConfig
}

type TruncationConfig struct {
	Default    int
	ToolParam  int
	ToolResult int
	Error      int
}

type SessionConfig struct {
	ProjectsDir   string // relative to the home directory
	MaxFileSizeMB int
}

type WatchConfig struct {
	PollInterval time.Duration
	// StateFile persists watch offsets between runs; empty disables resume.
	StateFile string
}

type MappingsConfig struct {
	Path string
	// RetainDropped keeps the fields a minimal-field rule would drop as
	// unknown fields instead of discarding them.
	RetainDropped bool
}

func NewConfig() (*Config, error) {
	// Configure Viper to read the user defaults file
	viper.SetConfigName(".claudeviewrc")
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Enable automatic environment variable loading
	viper.SetEnvPrefix("CLAUDEVIEW")
	viper.AutomaticEnv()

	viper.SetDefault("THEME", "dark")
	viper.SetDefault("SHOW_FLAGS", "")
	viper.SetDefault("TIMESTAMPS", false)
	viper.SetDefault("TRUNCATE_DEFAULT", 500)
	viper.SetDefault("TRUNCATE_TOOL_PARAM", 200)
	viper.SetDefault("TRUNCATE_TOOL_RESULT", 500)
	viper.SetDefault("TRUNCATE_ERROR", 1000)
	viper.SetDefault("PROJECTS_DIR", ".claude/projects")
	viper.SetDefault("MAX_FILE_SIZE_MB", 100)
	viper.SetDefault("WATCH_POLL_INTERVAL", "500ms")
	viper.SetDefault("WATCH_STATE_FILE", "")
	viper.SetDefault("MAPPINGS_PATH", "")
	viper.SetDefault("MAPPINGS_RETAIN_DROPPED", false)
	viper.SetDefault("DEBUG", false)

	// Read config file; absence is fine, the defaults stand
	if err := viper.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg("No config file loaded, using defaults")
	}

	var config Config
	config.Display.Theme = viper.GetString("THEME")
	config.Display.ShowFlags = viper.GetString("SHOW_FLAGS")
	config.Display.Timestamps = viper.GetBool("TIMESTAMPS")
	config.Display.Truncation.Default = viper.GetInt("TRUNCATE_DEFAULT")
	config.Display.Truncation.ToolParam = viper.GetInt("TRUNCATE_TOOL_PARAM")
	config.Display.Truncation.ToolResult = viper.GetInt("TRUNCATE_TOOL_RESULT")
	config.Display.Truncation.Error = viper.GetInt("TRUNCATE_ERROR")

	config.Session.ProjectsDir = viper.GetString("PROJECTS_DIR")
	config.Session.MaxFileSizeMB = viper.GetInt("MAX_FILE_SIZE_MB")

	config.Watch.PollInterval = viper.GetDuration("WATCH_POLL_INTERVAL")
	config.Watch.StateFile = viper.GetString("WATCH_STATE_FILE")

	config.Mappings.Path = viper.GetString("MAPPINGS_PATH")
	config.Mappings.RetainDropped = viper.GetBool("MAPPINGS_RETAIN_DROPPED")

	config.Debug = viper.GetBool("DEBUG")
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Debug().Interface("config", config).Msg("Config loaded")
	return &config, nil
}
