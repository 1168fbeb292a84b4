package neuprep

import (
	"fmt"
	"strings"
	"time"
)

// ModeFlag is a log severity threshold.
type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var modeNames = []string{"debug", "info", "warning", "error", "critical", "silent"}

func (m ModeFlag) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint(m))
}

// ParseLogMode returns the threshold for a [logging] level name.  An empty
// name is InfoMode.
func ParseLogMode(name string) (ModeFlag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return InfoMode, nil
	}
	for i, n := range modeNames {
		if n == name {
			return ModeFlag(i), nil
		}
	}
	return InfoMode, fmt.Errorf("unknown log level %q, must be one of %s", name, strings.Join(modeNames, ", "))
}

var (
	// Verbose turns on debug messages whatever the mode.  The -verbose flag
	// of the neuprep command sets it, e.g. to follow per-skeleton progress
	// of an update.
	Verbose bool

	mode = InfoMode
)

// Logger provides a way for the application to log messages at different severities.
type Logger interface {
	// Debugf formats its arguments analogous to fmt.Printf and records the text as a log
	// message at Debug level.
	Debugf(format string, args ...interface{})

	// Infof is like Debugf, but at Info level.
	Infof(format string, args ...interface{})

	// Warningf is like Debugf, but at Warning level.
	Warningf(format string, args ...interface{})

	// Errorf is like Debugf, but at Error level.
	Errorf(format string, args ...interface{})

	// Criticalf is like Debugf, but at Critical level.
	Criticalf(format string, args ...interface{})

	// Shutdown makes sure logs are closed.
	Shutdown()
}

// SetLogMode sets the severity required for a log message to be printed.
// For example, SetLogMode(neuprep.WarningMode) keeps collapse collisions and
// failed skeletons but drops per-run progress.  To turn off all logging, use
// SilentMode.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

// LogMode returns the current severity threshold.
func LogMode() ModeFlag {
	return mode
}

func enabled(level ModeFlag) bool {
	if level == DebugMode && Verbose {
		return true
	}
	return mode <= level
}

func Debugf(format string, args ...interface{}) {
	if enabled(DebugMode) {
		logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(InfoMode) {
		logger.Infof(format, args...)
	}
}

func Warningf(format string, args ...interface{}) {
	if enabled(WarningMode) {
		logger.Warningf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled(ErrorMode) {
		logger.Errorf(format, args...)
	}
}

func Criticalf(format string, args ...interface{}) {
	if enabled(CriticalMode) {
		logger.Criticalf(format, args...)
	}
}

// Shutdown closes any log file in use.
func Shutdown() {
	logger.Shutdown()
}

// TimeLog adds elapsed time to logging, and for a run log, the run id.
// Example:
//
//	runlog := NewRunLog(id)
//	...
//	runlog.Infof("stored %d skeletons", n)  // "[<id>] stored 12 skeletons: 1.2s"
type TimeLog struct {
	logger Logger
	start  time.Time
	tag    string
}

func NewTimeLog() TimeLog {
	return TimeLog{logger: logger, start: time.Now()}
}

// NewRunLog returns a TimeLog that prefixes messages with "[id] ".
func NewRunLog(id string) TimeLog {
	return TimeLog{logger: logger, start: time.Now(), tag: "[" + id + "] "}
}

func (t TimeLog) logf(level ModeFlag, f func(string, ...interface{}), format string, args []interface{}) {
	if enabled(level) {
		f(t.tag+format+": %s\n", append(args, time.Since(t.start))...)
	}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	t.logf(DebugMode, t.logger.Debugf, format, args)
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	t.logf(InfoMode, t.logger.Infof, format, args)
}

func (t TimeLog) Warningf(format string, args ...interface{}) {
	t.logf(WarningMode, t.logger.Warningf, format, args)
}

func (t TimeLog) Errorf(format string, args ...interface{}) {
	t.logf(ErrorMode, t.logger.Errorf, format, args)
}

func (t TimeLog) Criticalf(format string, args ...interface{}) {
	t.logf(CriticalMode, t.logger.Criticalf, format, args)
}

// Elapsed returns the time since the TimeLog was created.
func (t TimeLog) Elapsed() time.Duration {
	return time.Since(t.start)
}
