package utils

import (
	"fmt"
	"io"
	"log"
	"strings"
)

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

type Logger struct {
	level       LogLevel
	infoLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
}

// NewLoggerTo writes every level to w. Commands pass stderr so that stdout
// carries only their output.
func NewLoggerTo(w io.Writer, level string) *Logger {
	logLevel := parseLogLevel(level)
	flags := log.Ldate | log.Ltime | log.Lshortfile

	return &Logger{
		level:       logLevel,
		infoLogger:  log.New(w, "INFO: ", flags),
		errorLogger: log.New(w, "ERROR: ", flags),
		debugLogger: log.New(w, "DEBUG: ", flags),
	}
}

func NewDiscardLogger() *Logger {
	return &Logger{
		level:       LevelInfo,
		infoLogger:  log.New(io.Discard, "", 0),
		errorLogger: log.New(io.Discard, "", 0),
		debugLogger: log.New(io.Discard, "", 0),
	}
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func withID(reqID *string, format string) string {
	if reqID == nil || *reqID == "" {
		return format
	}
	return fmt.Sprintf("[%s] %s", *reqID, format)
}

func (l *Logger) Info(reqID *string, format string, v ...any) {
	if l.level == LevelError {
		return
	}
	l.infoLogger.Output(2, fmt.Sprintf(withID(reqID, format), v...))
}

func (l *Logger) Error(reqID *string, format string, v ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(withID(reqID, format), v...))
}

func (l *Logger) Debug(reqID *string, format string, v ...any) {
	if l.level != LevelDebug {
		return
	}
	l.debugLogger.Output(2, fmt.Sprintf(withID(reqID, format), v...))
}
