package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// ParseLevel converts a level name as found in configuration into a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "notice", "warn", "warning":
		return NoticeLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

type Chain int

const (
	None Chain = iota
	Eth
	Zora
)

var chainNameMap = map[string]Chain{
	"ethereum": Eth,
	"zora":     Zora,
}

var chainPrefixes = map[Chain]string{
	None: "",
	Eth:  "[ETH]  ",
	Zora: "[ZORA] ",
}

var colors = map[Chain]color.Attribute{
	None: color.FgWhite,
	Eth:  color.FgHiBlue,
	Zora: color.FgHiMagenta,
}

func chainOf(name string) Chain {
	return chainNameMap[strings.ToLower(name)]
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithChain(chain string, format string, args ...interface{})

	// Success logs a positive outcome.
	Success(format string, args ...interface{})
	SuccessWithChain(chain string, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithChain(chain string, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithChain(chain string, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithChain(chain string, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                       {}
func (l *EmptyLogger) InfoWithChain(_ string, _ string, _ ...interface{})    {}
func (l *EmptyLogger) Success(_ string, _ ...interface{})                    {}
func (l *EmptyLogger) SuccessWithChain(_ string, _ string, _ ...interface{}) {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                      {}
func (l *EmptyLogger) ErrorWithChain(_ string, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                      {}
func (l *EmptyLogger) DebugWithChain(_ string, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) NoticeWithChain(_ string, _ string, _ ...interface{})  {}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	out            *log.Logger
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
		out:            log.Default(),
	}
}

// formatMessage formats the log message with the appropriate log level, chain prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, chain Chain, format string) string {
	chainPrefix := chainPrefixes[chain]
	if l.enableColoring {
		chainPrefix = color.New(colors[chain]).Sprint(chainPrefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + chainPrefix + format
}

// colorize paints the whole message body; summaries are read at a glance
func (l *StdLogger) colorize(level Level, success bool, msg string) string {
	if !l.enableColoring {
		return msg
	}
	switch {
	case success:
		return color.GreenString("%s", msg)
	case level == NoticeLevel:
		return color.YellowString("%s", msg)
	case level == ErrorLevel:
		return color.RedString("%s", msg)
	}
	return msg
}

func (l *StdLogger) print(level Level, success bool, chain Chain, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level > level {
		return
	}
	msg := fmt.Sprintf(l.formatMessage(level, chain, format), args...)
	l.out.Print(l.colorize(level, success, msg))
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.print(InfoLevel, false, None, format, args...)
}

func (l *StdLogger) InfoWithChain(chain string, format string, args ...interface{}) {
	l.print(InfoLevel, false, chainOf(chain), format, args...)
}

func (l *StdLogger) Success(format string, args ...interface{}) {
	l.print(InfoLevel, true, None, format, args...)
}

func (l *StdLogger) SuccessWithChain(chain string, format string, args ...interface{}) {
	l.print(InfoLevel, true, chainOf(chain), format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.print(ErrorLevel, false, None, format, args...)
}

func (l *StdLogger) ErrorWithChain(chain string, format string, args ...interface{}) {
	l.print(ErrorLevel, false, chainOf(chain), format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.print(DebugLevel, false, None, format, args...)
}

func (l *StdLogger) DebugWithChain(chain string, format string, args ...interface{}) {
	l.print(DebugLevel, false, chainOf(chain), format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.print(NoticeLevel, false, None, format, args...)
}

func (l *StdLogger) NoticeWithChain(chain string, format string, args ...interface{}) {
	l.print(NoticeLevel, false, chainOf(chain), format, args...)
}
