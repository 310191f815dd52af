package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu    sync.RWMutex
	level = LevelInfo
	out   io.Writer = os.Stderr
)

func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "INFO"
}

func logf(l Level, component, msg string, fields map[string]interface{}) {
	mu.RLock()
	minLevel := level
	w := out
	mu.RUnlock()
	if l < minLevel {
		return
	}

	line := fmt.Sprintf("%s %-5s [%s] %s", time.Now().Format(time.RFC3339), l, component, msg)
	if len(fields) > 0 {
		if encoded, err := json.Marshal(fields); err == nil {
			line += " " + string(encoded)
		}
	}
	fmt.Fprintln(w, line)
}

func Debug(component, msg string) { logf(LevelDebug, component, msg, nil) }
func Info(component, msg string)  { logf(LevelInfo, component, msg, nil) }
func Warn(component, msg string)  { logf(LevelWarn, component, msg, nil) }
func Error(component, msg string) { logf(LevelError, component, msg, nil) }

// The CF variants attach structured context fields to the log line.
func DebugCF(component, msg string, fields map[string]interface{}) {
	logf(LevelDebug, component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	logf(LevelInfo, component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	logf(LevelWarn, component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	logf(LevelError, component, msg, fields)
}
