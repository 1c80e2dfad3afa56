// Package logging installs a dragonboat-compatible logger factory for this
// module. Every package obtains its own named logger via
// logger.GetLogger("<pkgname>"), matching the pattern rpc/common,
// rpc/client, and rpc/transport/base use in the teacher repo this module is
// descended from.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// gridLogger implements logger.ILogger with a compact, consistent format
// across every package in this module.
type gridLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *gridLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *gridLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *gridLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *gridLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *gridLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *gridLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

func (l *gridLogger) log(levelStr string, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-12s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// CreateLogger is a logger.Factory. It is installed once via
// logger.SetLoggerFactory during module initialization.
func CreateLogger(pkgName string) logger.ILogger {
	return &gridLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
}

// ParseLevel converts a string level ("debug", "info", "warn"/"warning",
// "error") to a logger.LogLevel, defaulting to INFO for unrecognized input.
func ParseLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warning", "warn":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// Init installs CreateLogger as the global dragonboat logger factory and
// sets the level for every named logger this module uses. Call this once
// from the CLI entrypoint before constructing a Client.
func Init(level string) {
	logger.SetLoggerFactory(CreateLogger)
	lvl := ParseLevel(level)
	for _, name := range []string{"router", "session", "pool", "affinity"} {
		logger.GetLogger(name).SetLevel(lvl)
	}
}
