package notify

import (
	"fmt"

	"github.com/speedrun-hq/zora-runner/pkg/logger"
)

// Store is where forwarded log lines are buffered
type Store interface {
	Store(line string)
}

// Logger decorates a logger so every line at info level and above is also
// buffered for the next notification flush
type Logger struct {
	logger.Logger
	store Store
}

var _ logger.Logger = (*Logger)(nil)

// NewLogger wraps next, forwarding lines to store
func NewLogger(next logger.Logger, store Store) *Logger {
	return &Logger{Logger: next, store: store}
}

func (l *Logger) forward(chain, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if chain != "" {
		msg = chain + ": " + msg
	}
	l.store.Store(msg)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.Logger.Info(format, args...)
	l.forward("", format, args...)
}

func (l *Logger) InfoWithChain(chain string, format string, args ...interface{}) {
	l.Logger.InfoWithChain(chain, format, args...)
	l.forward(chain, format, args...)
}

func (l *Logger) Success(format string, args ...interface{}) {
	l.Logger.Success(format, args...)
	l.forward("", format, args...)
}

func (l *Logger) SuccessWithChain(chain string, format string, args ...interface{}) {
	l.Logger.SuccessWithChain(chain, format, args...)
	l.forward(chain, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.Logger.Error(format, args...)
	l.forward("", format, args...)
}

func (l *Logger) ErrorWithChain(chain string, format string, args ...interface{}) {
	l.Logger.ErrorWithChain(chain, format, args...)
	l.forward(chain, format, args...)
}

func (l *Logger) Notice(format string, args ...interface{}) {
	l.Logger.Notice(format, args...)
	l.forward("", format, args...)
}

func (l *Logger) NoticeWithChain(chain string, format string, args ...interface{}) {
	l.Logger.NoticeWithChain(chain, format, args...)
	l.forward(chain, format, args...)
}
