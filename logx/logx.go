package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	defaultLogDir       = "./logs"
	defaultLogFile      = "accounting.log"
	defaultMaxSizeMB    = 100
	defaultMaxAgeDays   = 7
	defaultMaxBackups   = 5
	logFlags            = log.Ldate | log.Ltime | log.Lmicroseconds
	envLogFile          = "LOGFILE"
	envLogFileMaxSizeMB = "LOGFILE_MAX_SIZE_MB"
	envLogFileMaxAge    = "LOGFILE_MAX_AGE_DAYS"
)

// Options configures the rotating log file. Zero values fall back to the
// environment and then to package defaults.
type Options struct {
	Dir        string
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Stdout     bool
}

var (
	mu     sync.RWMutex
	logger = log.New(io.Discard, "", logFlags)
	closer io.Closer
	once   sync.Once
)

// Init replaces the package logger. It can be called more than once; the
// previous rotating file is closed.
func Init(opts Options) {
	lj := &lumberjack.Logger{
		Filename:   getLogFilename(opts),
		MaxSize:    getIntOption(opts.MaxSizeMB, envLogFileMaxSizeMB, defaultMaxSizeMB),
		MaxAge:     getIntOption(opts.MaxAgeDays, envLogFileMaxAge, defaultMaxAgeDays),
		MaxBackups: getIntOption(opts.MaxBackups, "", defaultMaxBackups),
	}

	var out io.Writer = lj
	if opts.Stdout {
		out = io.MultiWriter(lj, os.Stdout)
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	closer = lj
	logger = log.New(out, "", logFlags)
}

// SetOutput redirects logging to w, mostly for tests and one-shot CLI commands.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", logFlags)
}

func getLogFilename(opts Options) string {
	dir := opts.Dir
	if dir == "" {
		dir = defaultLogDir
	}
	if opts.File != "" {
		return dir + "/" + opts.File
	}
	if logFile := os.Getenv(envLogFile); logFile != "" {
		return dir + "/" + logFile
	}
	return dir + "/" + defaultLogFile
}

func getIntOption(value int, env string, fallback int) int {
	if value > 0 {
		return value
	}
	if env == "" {
		return fallback
	}
	raw := os.Getenv(env)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		once.Do(func() {
			fmt.Fprintf(os.Stderr, "invalid value %q for %s, using %d\n", raw, env, fallback)
		})
		return fallback
	}
	return parsed
}

func output(level, color, category string, content []interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)

	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	output("INFO", ColorGreen, category, content)
}

func Error(category string, content ...interface{}) {
	output("ERROR", ColorRed, category, content)
}

func Warn(category string, content ...interface{}) {
	output("WARN", ColorYellow, category, content)
}

func Debug(category string, content ...interface{}) {
	output("DEBUG", ColorBlue, category, content)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
