// Package config holds the process entry and configuration concerns shared
// by both the server and client binaries: logger construction, address
// parsing, and session password handling.
package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPort is the port used when none is given on the command line or in
// the "host:port" address the client is told to dial.
const DefaultPort = 53202

// Config holds application configuration.
type Config struct {
	LogLevel logrus.Level  `json:"log_level"`
	Shell    string        `json:"shell"`
	Timeout  time.Duration `json:"timeout"`
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: logrus.InfoLevel,
		Shell:    "/bin/bash",
		Timeout:  0,
	}
}

// NewLogger creates a configured logger instance.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

// Shell resolves the program to run as the remote shell: the SHELL
// environment variable, falling back to /bin/bash (spec §4.5 step 2).
func Shell(lookupEnv func(string) (string, bool)) string {
	if lookupEnv == nil {
		lookupEnv = defaultLookupEnv
	}
	if shell, ok := lookupEnv("SHELL"); ok && shell != "" {
		return shell
	}
	return "/bin/bash"
}

func defaultLookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}
