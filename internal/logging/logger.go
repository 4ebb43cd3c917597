package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FilePrefix starts every log file name; the date follows.
const FilePrefix = "application-hdc-"

// DailyFile is an io.Writer appending to one log file per calendar day.
type DailyFile struct {
	dir         string
	timeNow     func() time.Time
	mu          sync.Mutex
	currentDate string
	file        *os.File
}

// NewDailyFile creates the log directory under dir.
func NewDailyFile(dir string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &DailyFile{dir: dir, timeNow: time.Now}, nil
}

// SetTimeNow replaces the time supplier; primarily for testing.
func (d *DailyFile) SetTimeNow(fn func() time.Time) {
	d.mu.Lock()
	d.timeNow = fn
	d.mu.Unlock()
}

// Write appends p to the file for the current day, rotating at midnight.
func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureFile(d.timeNow().Format("2006-01-02")); err != nil {
		return 0, err
	}
	return d.file.Write(p)
}

// Close closes the current file.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	d.currentDate = ""
	return err
}

// Path returns the file name used for date.
func (d *DailyFile) Path(date time.Time) string {
	return filepath.Join(d.dir, FilePrefix+date.Format("2006-01-02")+".log")
}

func (d *DailyFile) ensureFile(date string) error {
	if d.file != nil && d.currentDate == date {
		return nil
	}
	if d.file != nil {
		_ = d.file.Close()
		d.file = nil
	}

	path := filepath.Join(d.dir, FilePrefix+date+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	d.file = file
	d.currentDate = date
	return nil
}

// Options configures New.
type Options struct {
	// Dir holds the daily log files.
	Dir   string
	Level string
	// Console, when set, also receives human-readable output.
	Console io.Writer
}

// New builds a zerolog logger writing JSON lines to daily files. The
// returned closer releases the current file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	file, err := NewDailyFile(opts.Dir)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	var out io.Writer = file
	if opts.Console != nil {
		out = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.RFC3339})
	}
	logger := zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("app", "humble-doc-cli").
		Logger()
	return logger, file, nil
}

// DefaultDir is the log directory inside the user's config directory.
func DefaultDir(home, dirName string) string {
	return filepath.Join(home, dirName, "logs")
}

// ParseLevel maps a config value to a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
