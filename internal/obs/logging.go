// Package obs holds the logging setup shared by every service binary.
package obs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"log/slog"
)

type Level int

const (
	Info Level = iota
	Debug
	Disable
)

// New builds the slog.Logger every service uses: text output to stdout
// plus, when logPath is set, a log file at logPath that is appended to
// across restarts (never rotated or truncated), source file basenames
// instead of full paths, and timestamps truncated to a 2-second bucket so
// near-simultaneous log lines from different goroutines line up.
func New(logPath string, level Level) (*slog.Logger, error) {
	replacer := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			source := a.Value.Any().(*slog.Source)
			source.File = filepath.Base(source.File)
		}
		if a.Key == slog.TimeKey {
			a.Value = slog.StringValue(time.Now().Truncate(2 * time.Second).Format(time.DateTime))
		}
		return a
	}

	var logWriter io.Writer = os.Stdout
	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logWriter = io.MultiWriter(os.Stdout, logFile)
	}

	slogLevel := slog.LevelInfo
	switch level {
	case Debug:
		slogLevel = slog.LevelDebug
	case Disable:
		logWriter = io.Discard
	}

	return slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slogLevel,
		ReplaceAttr: replacer,
	})), nil
}

// Logf wraps a *slog.Logger so the emitted record carries the source
// position of the caller of Infof/Errorf/Debugf rather than of Logf
// itself. Each service embeds one of these instead of calling the
// logger's own formatted helpers directly.
type Logf struct {
	Logger *slog.Logger
}

func (l Logf) log(level slog.Level, format string, args ...any) {
	if !l.Logger.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, fmt.Sprintf(format, args...), pcs[0])
	_ = l.Logger.Handler().Handle(context.Background(), r)
}

func (l Logf) Infof(format string, args ...any)  { l.log(slog.LevelInfo, format, args...) }
func (l Logf) Errorf(format string, args ...any) { l.log(slog.LevelError, format, args...) }
func (l Logf) Debugf(format string, args ...any) { l.log(slog.LevelDebug, format, args...) }
