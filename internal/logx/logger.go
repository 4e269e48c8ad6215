// Package logx provides a small leveled logger for the broker and host
// processes. Level is controlled by the LOG_LEVEL env var
// (debug/info/warn/error, default info).
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

var levelColor = map[Level]*color.Color{
	DebugLevel: color.New(color.FgCyan),
	InfoLevel:  color.New(color.FgGreen),
	WarnLevel:  color.New(color.FgYellow),
	ErrorLevel: color.New(color.FgRed),
}

var (
	minLevel   = InfoLevel
	out        = log.New(os.Stdout, "", 0)
	levelMutex sync.RWMutex
)

func init() {
	if env := strings.ToLower(os.Getenv("LOG_LEVEL")); env != "" {
		switch env {
		case "debug":
			minLevel = DebugLevel
		case "info":
			minLevel = InfoLevel
		case "warn", "warning":
			minLevel = WarnLevel
		case "error":
			minLevel = ErrorLevel
		}
	}
}

// SetLevel changes the minimum level at runtime.
func SetLevel(l Level) {
	levelMutex.Lock()
	minLevel = l
	levelMutex.Unlock()
}

func logf(lvl Level, format string, a ...interface{}) {
	levelMutex.RLock()
	defer levelMutex.RUnlock()
	if lvl < minLevel {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	prefix := levelColor[lvl].Sprintf("[%s] %s", levelNames[lvl], ts)
	out.Printf("%s %s", prefix, fmt.Sprintf(format, a...))
}

func Debug(format string, a ...interface{}) { logf(DebugLevel, format, a...) }
func Info(format string, a ...interface{})  { logf(InfoLevel, format, a...) }
func Warn(format string, a ...interface{})  { logf(WarnLevel, format, a...) }
func Error(format string, a ...interface{}) { logf(ErrorLevel, format, a...) }
