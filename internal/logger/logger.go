// internal/logger/logger.go

package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/juju/loggo"
)

// Root is the module prefix every package logger lives under.
const Root = "hpcq"

// Get returns the module logger for a package, e.g. Get("ssh") -> "hpcq.ssh".
func Get(name string) loggo.Logger {
	return loggo.GetLogger(Root + "." + name)
}

// LevelFromVerbosity maps -v/-q counts to a loggo level, starting from base.
func LevelFromVerbosity(base loggo.Level, verbose int, quiet bool) loggo.Level {
	if quiet {
		return loggo.ERROR
	}
	level := base
	for i := 0; i < verbose && level > loggo.TRACE; i++ {
		level--
	}
	return level
}

// ParseLevel accepts the loggo level names (TRACE, DEBUG, INFO, WARNING, ERROR, CRITICAL).
func ParseLevel(name string) (loggo.Level, error) {
	level, ok := loggo.ParseLevel(name)
	if !ok {
		return loggo.UNSPECIFIED, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// Setup replaces the default writer and sets the level of the hpcq tree.
func Setup(w io.Writer, level loggo.Level) error {
	if _, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(w, formatter)); err != nil {
		return err
	}
	return loggo.ConfigureLoggers(fmt.Sprintf("<root>=WARNING;%s=%s", Root, level))
}

// RedirectToFile sends log output to path until the returned restore func is called.
// The dashboard uses it while it owns the terminal.
func RedirectToFile(path string) (restore func(), err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	previous, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(f, timestampedFormatter))
	if err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		loggo.ReplaceDefaultWriter(previous)
		f.Close()
	}, nil
}

func formatter(entry loggo.Entry) string {
	return fmt.Sprintf("[%s] %s", entry.Level, entry.Message)
}

func timestampedFormatter(entry loggo.Entry) string {
	ts := entry.Timestamp.In(time.UTC).Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s [%s] %s: %s", ts, entry.Level, entry.Module, entry.Message)
}
