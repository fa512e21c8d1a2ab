package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process logger. It is replaced by Init.
var Log = logrus.StandardLogger()

type Config struct {
	Level string
	// Format is "text" (default) or "json".
	Format string
	// File, when set, receives a copy of every line.
	File string
	// Stderr sends console output to stderr instead of stdout. The MCP
	// server needs this because stdout carries the protocol.
	Stderr bool
}

// LineFormatter writes "[TIME] [LEVL] [file:line] message key=value ...".
type LineFormatter struct{}

func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var fileLine string
	if entry.HasCaller() {
		fileLine = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s", entry.Time.Format("2006-01-02 15:04:05"), level, fileLine, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := entry.Data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		s := fmt.Sprint(v)
		if strings.ContainsAny(s, " \t\n\"=") {
			s = fmt.Sprintf("%q", s)
		}
		fmt.Fprintf(&b, " %s=%s", k, s)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func noopClose() error { return nil }

// New builds a logger from cfg. An unknown level falls back to info. The
// returned func closes the log file, if any.
func New(cfg Config) (*logrus.Logger, func() error, error) {
	l := logrus.New()
	l.SetReportCaller(true)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	case "", "text":
		l.SetFormatter(&LineFormatter{})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	var console io.Writer = os.Stdout
	if cfg.Stderr {
		console = os.Stderr
	}
	writers := []io.Writer{console}
	closeFile := noopClose
	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, f)
		closeFile = f.Close
	}
	l.SetOutput(io.MultiWriter(writers...))
	return l, closeFile, nil
}

var closeLog = noopClose

// Init builds a logger and installs it as Log, closing the file of any
// logger Init installed before.
func Init(cfg Config) error {
	l, closeFile, err := New(cfg)
	if err != nil {
		return err
	}
	prev := closeLog
	Log, closeLog = l, closeFile
	return prev()
}

// Close releases the log file opened by Init and installs the standard
// logger as Log.
func Close() error {
	c := closeLog
	closeLog = noopClose
	Log = logrus.StandardLogger()
	return c()
}
