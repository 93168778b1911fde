package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// InitLogger configures the standard logrus logger. Production logs are JSON.
func InitLogger(cfg *Config) *logrus.Entry {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
	if cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.WithField("service", "notifyfeed")
}
