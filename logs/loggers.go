package logs

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/tebeka/atexit"
	"gopkg.in/natefinch/lumberjack.v2"
)

var alsoLogToStderr = flag.Bool("alsoLogToStderr", false, "whether to log to stderr besides the log file")

var (
	once     sync.Once
	instance *slog.Logger
	levelVar = new(slog.LevelVar)
)

// GetLogger creates the process-wide *slog.Logger backed by a rotated log
// file, level: [Debug,Info,Warn,Error,Off].
//
// stdout stays untouched: the relay's echo output and any bridged process
// share it, so diagnostics never go there.
func GetLogger(filename string, level string) *slog.Logger {
	// "Off" is a special case for testing, it's not a valid slog.Level
	if level == "Off" {
		return slog.New(nopHandler{})
	}

	// GetLogger maybe called multiple times during low level test.
	once.Do(func() {
		if err := levelVar.UnmarshalText([]byte(level)); err != nil {
			log.Fatal("set log level:", err)
		}

		fileLogger := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    10, // MB before rotating
			MaxBackups: 20,
			MaxAge:     30, // days
			Compress:   true,
		}

		var sink io.Writer
		sink = fileLogger
		if *alsoLogToStderr {
			sink = io.MultiWriter(sink, os.Stderr)
		}

		handler := slog.NewTextHandler(sink, &slog.HandlerOptions{
			AddSource: true,
			Level:     levelVar,
		})

		atexit.Register(func() {
			_ = fileLogger.Close()
		})

		instance = slog.New(handler)
	})

	return instance
}

// Console returns a logger writing plain text to stderr, for short-lived
// interactive invocations where a log file is unwanted.
func Console(level string) *slog.Logger {
	if level == "Off" {
		return slog.New(nopHandler{})
	}

	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		log.Fatal("set log level:", err)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lv,
	}))
}

type nopHandler struct{}

func (n nopHandler) Enabled(context.Context, slog.Level) bool {
	return false
}

func (n nopHandler) Handle(context.Context, slog.Record) error {
	return nil
}

func (n nopHandler) WithAttrs([]slog.Attr) slog.Handler {
	return n
}

func (n nopHandler) WithGroup(string) slog.Handler {
	return n
}
