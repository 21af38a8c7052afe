package logger

import (
	"io"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

func newRotate(config *Config) io.Writer {
	return &lumberjack.Logger{
		Filename:  config.Filename(),
		MaxSize:   config.MaxSize, // MB
		MaxAge:    config.MaxAge,  // days
		MaxBackups: config.MaxBackup,
		LocalTime: true,
		Compress:  false,
	}
}
