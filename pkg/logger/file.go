package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// FileLogger writes JSON lines to a file. Used for the per-run console_output.txt.
type FileLogger struct {
	file *os.File
	log  zerolog.Logger
}

var _ Logger = (*FileLogger)(nil)

// NewFileLogger creates (or appends to) path, creating parent directories
func NewFileLogger(path string, level Level) (*FileLogger, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file: file,
		log:  newZerolog(file, level),
	}, nil
}

func newZerolog(w io.Writer, level Level) zerolog.Logger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	switch level {
	case DebugLevel:
		return zl.Level(zerolog.DebugLevel)
	case NoticeLevel:
		return zl.Level(zerolog.WarnLevel)
	case ErrorLevel:
		return zl.Level(zerolog.ErrorLevel)
	default:
		return zl.Level(zerolog.InfoLevel)
	}
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// Close closes the underlying file
func (l *FileLogger) Close() error {
	return l.file.Close()
}

func (l *FileLogger) Info(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *FileLogger) InfoWithChain(chain string, format string, args ...interface{}) {
	l.log.Info().Str("chain", chain).Msgf(format, args...)
}

func (l *FileLogger) Success(format string, args ...interface{}) {
	l.log.Info().Bool("success", true).Msgf(format, args...)
}

func (l *FileLogger) SuccessWithChain(chain string, format string, args ...interface{}) {
	l.log.Info().Bool("success", true).Str("chain", chain).Msgf(format, args...)
}

func (l *FileLogger) Error(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *FileLogger) ErrorWithChain(chain string, format string, args ...interface{}) {
	l.log.Error().Str("chain", chain).Msgf(format, args...)
}

func (l *FileLogger) Debug(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *FileLogger) DebugWithChain(chain string, format string, args ...interface{}) {
	l.log.Debug().Str("chain", chain).Msgf(format, args...)
}

func (l *FileLogger) Notice(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *FileLogger) NoticeWithChain(chain string, format string, args ...interface{}) {
	l.log.Warn().Str("chain", chain).Msgf(format, args...)
}

// TeeLogger fans every message out to several loggers
type TeeLogger []Logger

var _ Logger = TeeLogger(nil)

// Tee combines loggers, skipping nil entries
func Tee(loggers ...Logger) TeeLogger {
	out := make(TeeLogger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (t TeeLogger) Info(format string, args ...interface{}) {
	for _, l := range t {
		l.Info(format, args...)
	}
}

func (t TeeLogger) InfoWithChain(chain string, format string, args ...interface{}) {
	for _, l := range t {
		l.InfoWithChain(chain, format, args...)
	}
}

func (t TeeLogger) Success(format string, args ...interface{}) {
	for _, l := range t {
		l.Success(format, args...)
	}
}

func (t TeeLogger) SuccessWithChain(chain string, format string, args ...interface{}) {
	for _, l := range t {
		l.SuccessWithChain(chain, format, args...)
	}
}

func (t TeeLogger) Error(format string, args ...interface{}) {
	for _, l := range t {
		l.Error(format, args...)
	}
}

func (t TeeLogger) ErrorWithChain(chain string, format string, args ...interface{}) {
	for _, l := range t {
		l.ErrorWithChain(chain, format, args...)
	}
}

func (t TeeLogger) Debug(format string, args ...interface{}) {
	for _, l := range t {
		l.Debug(format, args...)
	}
}

func (t TeeLogger) DebugWithChain(chain string, format string, args ...interface{}) {
	for _, l := range t {
		l.DebugWithChain(chain, format, args...)
	}
}

func (t TeeLogger) Notice(format string, args ...interface{}) {
	for _, l := range t {
		l.Notice(format, args...)
	}
}

func (t TeeLogger) NoticeWithChain(chain string, format string, args ...interface{}) {
	for _, l := range t {
		l.NoticeWithChain(chain, format, args...)
	}
}

// TraceSink records full error traces in a side file, never on the console
type TraceSink struct {
	mu   sync.Mutex
	file *os.File
	log  zerolog.Logger
}

// NewTraceSink opens path for appending traces
func NewTraceSink(path string) (*TraceSink, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &TraceSink{
		file: file,
		log:  zerolog.New(file).With().Timestamp().Logger(),
	}, nil
}

// Record writes msg and err. When an error of the chain carries the stack it
// was created with, the innermost one is written too. Safe on a nil sink.
func (s *TraceSink) Record(msg string, err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	event := s.log.Error().Err(err)
	if stack := stackOf(err); len(stack) > 0 {
		event = event.Str("stack", string(stack))
	}
	event.Msg(msg)
}

type stackTracer interface {
	Stack() []byte
}

// stackOf returns the stack of the innermost error of the chain that has one
func stackOf(err error) []byte {
	var stack []byte
	for ; err != nil; err = errors.Unwrap(err) {
		if st, ok := err.(stackTracer); ok && len(st.Stack()) > 0 {
			stack = st.Stack()
		}
	}
	return stack
}

// Close closes the trace file. Safe on a nil sink.
func (s *TraceSink) Close() error {
	if s == nil {
		return nil
	}
	return s.file.Close()
}
