package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	defaultMaxSizeBytes = 20 * 1024 * 1024
	envLogFilePath      = "LOG_FILE_PATH"
	envLogMaxSizeMB     = "LOG_MAX_SIZE_MB"
	envLogFormat        = "LOG_FORMAT"
	envLogLevel         = "LOG_LEVEL"
	logFormatText       = "text"
	logFormatJSON       = "json"

	// zerolog has no level between error and fatal; exceptions are logged at
	// error level and tagged.
	exceptionField = "exception"
)

type Options struct {
	// FilePath enables the size-rotated file sink; empty logs to the
	// console only.
	FilePath     string
	MaxSizeBytes int64
	Format       string
	Level        string
	// Console overrides stdout; tests point it at a buffer.
	Console io.Writer
}

var (
	mu     sync.RWMutex
	global = newLogger(optionsFromEnv())
	sink   io.Closer
)

func optionsFromEnv() Options {
	opts := Options{
		FilePath: strings.TrimSpace(os.Getenv(envLogFilePath)),
		Format:   strings.ToLower(strings.TrimSpace(os.Getenv(envLogFormat))),
		Level:    strings.ToLower(strings.TrimSpace(os.Getenv(envLogLevel))),
	}
	if raw := strings.TrimSpace(os.Getenv(envLogMaxSizeMB)); raw != "" {
		if sizeMB, err := strconv.Atoi(raw); err == nil && sizeMB > 0 {
			opts.MaxSizeBytes = int64(sizeMB) * 1024 * 1024
		}
	}
	return opts
}

func newLogger(opts Options) zerolog.Logger {
	if opts.MaxSizeBytes <= 0 {
		opts.MaxSizeBytes = defaultMaxSizeBytes
	}
	if opts.Format != logFormatJSON {
		opts.Format = logFormatText
	}
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.Format == logFormatText {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
	}

	out := console
	var file *rotatingFile
	if opts.FilePath != "" {
		file = &rotatingFile{filePath: opts.FilePath, maxSizeBytes: opts.MaxSizeBytes}
		out = zerolog.MultiLevelWriter(console, file)
	}
	mu.Lock()
	if sink != nil {
		_ = sink.Close()
	}
	sink = nil
	if file != nil {
		sink = file
	}
	mu.Unlock()

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Configure replaces the process logger. Call once at startup after
// configuration is loaded.
func Configure(opts Options) {
	l := newLogger(opts)
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the process logger for structured events.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := global
	return &l
}

// Close flushes and closes the file sink.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}

func Debugf(format string, args ...any) {
	logf(zerolog.DebugLevel, false, format, args...)
}

func Infof(format string, args ...any) {
	logf(zerolog.InfoLevel, false, format, args...)
}

func Warnf(format string, args ...any) {
	logf(zerolog.WarnLevel, false, format, args...)
}

func Errorf(format string, args ...any) {
	logf(zerolog.ErrorLevel, false, format, args...)
}

func Exceptionf(format string, args ...any) {
	logf(zerolog.ErrorLevel, true, format, args...)
}

func logf(lv zerolog.Level, exception bool, format string, args ...any) {
	mu.RLock()
	l := global
	mu.RUnlock()

	event := l.WithLevel(lv)
	if event == nil {
		return
	}
	if exception {
		event = event.Bool(exceptionField, true)
	}
	event.Str(zerolog.CallerFieldName, callerFuncName(3)).Msg(fmt.Sprintf(format, args...))
}

func callerFuncName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	parts := strings.Split(fn.Name(), "/")
	return parts[len(parts)-1]
}
