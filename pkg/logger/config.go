package logger

import (
	"fmt"
	"time"
)

type Config struct {
	// OUTPUT is the sink: stdout, file, discard.
	OUTPUT string `yaml:"output" json:"output" mapstructure:"output"`
	// Dir is the log directory (used when OUTPUT is "file").
	Dir string `yaml:"dir" json:"dir" mapstructure:"dir"`
	// Name is the log file name.
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Level is the minimum zap level.
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// AddCaller adds the caller file:line to every entry.
	AddCaller bool `yaml:"add_caller" json:"add_caller" mapstructure:"add_caller"`
	// MaxSize is the max size in MB before a file is rotated.
	MaxSize int `yaml:"max_size" json:"max_size" mapstructure:"max_size"`
	// MaxAge is the max number of days to retain old files.
	MaxAge int `yaml:"max_age" json:"max_age" mapstructure:"max_age"`
	// MaxBackup is the max number of old files to retain.
	MaxBackup int `yaml:"max_backup" json:"max_backup" mapstructure:"max_backup"`
	// Interval is unused by the lumberjack-backed rotator; retained for config compatibility.
	Interval time.Duration `yaml:"interval" json:"interval" mapstructure:"interval"`
	// CallerSkip adjusts how many stack frames zap skips before recording the caller.
	CallerSkip int `yaml:"caller_skip" json:"caller_skip" mapstructure:"caller_skip"`
	// Async buffers writes rather than flushing every entry.
	Async           bool          `yaml:"async" json:"async" mapstructure:"async"`
	FlushBufferSize int           `yaml:"flush_buffer_size" json:"flush_buffer_size" mapstructure:"flush_buffer_size"`
	FlushInterval   time.Duration `yaml:"flush_interval" json:"flush_interval" mapstructure:"flush_interval"`
	// Debug switches to a colorized console encoder instead of JSON.
	Debug bool `yaml:"debug" json:"debug" mapstructure:"debug"`
	// Discard sends everything to /dev/null; used in tests.
	Discard bool `yaml:"discard" json:"discard" mapstructure:"discard"`
	// DisableSentry turns off the Sentry tee core entirely.
	DisableSentry bool   `yaml:"disable_sentry" json:"disable_sentry" mapstructure:"disable_sentry"`
	SentryLevel   string `yaml:"sentry_level" json:"sentry_level" mapstructure:"sentry_level"`
}

func (c *Config) Filename() string {
	return fmt.Sprintf("%s/%s", c.Dir, c.Name)
}

func (c *Config) Build() *Logger {
	return newLogger(c)
}

func DefaultConfig() *Config {
	return &Config{
		Name:            "app.log",
		OUTPUT:          "stdout",
		Dir:             "./logs",
		Level:           "info",
		MaxSize:         100, // 100M
		MaxAge:          7,   // 7 days
		MaxBackup:       10,
		Interval:        24 * time.Hour,
		CallerSkip:      0,
		AddCaller:       true,
		Async:           false,
		FlushBufferSize: 256 * 1024,
		FlushInterval:   5 * time.Second,
		DisableSentry:   true,
		SentryLevel:     "error",
	}
}
