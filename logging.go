package memjoy

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/efritz/memjoy/iface"
)

type (
	// Logger is an interface to the logger the client writes to.
	Logger = iface.Logger

	// Level is the severity of a log record.
	Level = iface.Level

	defaultLogger struct {
		stdout *log.Logger
		stderr *log.Logger
	}

	nilLogger struct{}

	zapLogger struct {
		logger *zap.SugaredLogger
	}

	// gatedLogger drops debug records unless debug logging is enabled.
	gatedLogger struct {
		logger Logger
		debug  bool
	}
)

const (
	// LevelDebug traces individual attempts. It is dropped unless debug
	// logging is enabled.
	LevelDebug = iface.LevelDebug

	// LevelInfo is unused by the client but available to custom loggers.
	LevelInfo = iface.LevelInfo

	// LevelWarn reports slow borrows and evicted or foreign connections.
	LevelWarn = iface.LevelWarn

	// LevelError reports failed calls and server outages.
	LevelError = iface.LevelError
)

// NilLogger discards every record.
var NilLogger = NewNilLogger()

// NewDefaultLogger creates a logger which writes warnings and errors to
// stderr and every other level to stdout.
func NewDefaultLogger() Logger {
	return &defaultLogger{
		stdout: log.New(os.Stdout, "", log.LstdFlags),
		stderr: log.New(os.Stderr, "", log.LstdFlags),
	}
}

// NewNilLogger creates a logger which discards every record.
func NewNilLogger() Logger {
	return &nilLogger{}
}

// NewZapLogger wraps a zap logger.
func NewZapLogger(logger *zap.Logger) Logger {
	return &zapLogger{logger: logger.Sugar()}
}

func newGatedLogger(logger Logger, debug bool) Logger {
	return &gatedLogger{logger: logger, debug: debug}
}

func (l *defaultLogger) Log(level Level, format string, args ...interface{}) {
	switch level {
	case LevelWarn, LevelError:
		l.stderr.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
	default:
		l.stdout.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
	}
}

func (l *nilLogger) Log(level Level, format string, args ...interface{}) {
}

func (l *zapLogger) Log(level Level, format string, args ...interface{}) {
	switch level {
	case LevelDebug:
		l.logger.Debugf(format, args...)
	case LevelWarn:
		l.logger.Warnf(format, args...)
	case LevelError:
		l.logger.Errorf(format, args...)
	default:
		l.logger.Infof(format, args...)
	}
}

func (l *gatedLogger) Log(level Level, format string, args ...interface{}) {
	if level == LevelDebug && !l.debug {
		return
	}

	l.logger.Log(level, format, args...)
}
