package config

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

// SetupLogger configures the process-wide logrus logger. In dev mode
// everything goes to stdout; otherwise logs rotate through a file and
// are mirrored to stdout for the supervisor.
func SetupLogger(isDev bool) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if isDev {
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.DebugLevel)
		return logger
	}

	rotator := &lumberjack.Logger{
		Filename:   "./logs/fleetledger.log",
		MaxSize:    10, // megabytes
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	logger.SetLevel(logrus.InfoLevel)
	return logger
}
