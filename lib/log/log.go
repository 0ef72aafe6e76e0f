// Package log provides leveled logging for davexplorer
package log

import (
	"fmt"
	stdlog "log"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Level describes davexplorer's log levels. These are a subset of the
// syslog log levels.
type Level byte

// Log levels in decreasing order of severity.
const (
	LevelError Level = iota // Error - can't be suppressed
	LevelNotice             // Normal logging, -q suppresses
	LevelInfo               // Transfers and operations, needs -v
	LevelDebug              // Debug level, needs -vv
)

var levelToString = []string{
	LevelError:  "ERROR",
	LevelNotice: "NOTICE",
	LevelInfo:   "INFO",
	LevelDebug:  "DEBUG",
}

// String turns a Level into a string
func (l Level) String() string {
	if l >= Level(len(levelToString)) {
		return fmt.Sprintf("Level(%d)", l)
	}
	return levelToString[l]
}

// Set a Level from a string, for use as a pflag.Value. The name is
// matched case-insensitively.
func (l *Level) Set(s string) error {
	for n, name := range levelToString {
		if s != "" && name == strings.ToUpper(s) {
			*l = Level(n)
			return nil
		}
	}
	return errors.Errorf("unknown log level %q", s)
}

// Type of the value
func (l *Level) Type() string {
	return "string"
}

// Opt holds the global logging configuration.
var Opt = struct {
	Level      Level
	UseJSONLog bool
}{
	Level: LevelNotice,
}

// print sends the text to the stdlib logger at the given level
var print = func(level Level, text string) {
	text = fmt.Sprintf("%-6s: %s", level, text)
	_ = stdlog.Output(4, text)
}

// printf produces a log string from the arguments passed in.
//
// o is the object the message is about (or nil) and is prepended to
// the message, or attached as structured fields in JSON mode.
func printf(level Level, o interface{}, text string, args ...interface{}) {
	out := fmt.Sprintf(text, args...)
	if Opt.UseJSONLog {
		fields := logrus.Fields{}
		if o != nil {
			fields = logrus.Fields{
				"object":     fmt.Sprintf("%+v", o),
				"objectType": fmt.Sprintf("%T", o),
			}
		}
		switch level {
		case LevelDebug:
			logrus.WithFields(fields).Debug(out)
		case LevelInfo:
			logrus.WithFields(fields).Info(out)
		case LevelNotice:
			logrus.WithFields(fields).Warn(out)
		case LevelError:
			logrus.WithFields(fields).Error(out)
		}
		return
	}
	if o != nil {
		out = fmt.Sprintf("%v: %s", o, out)
	}
	print(level, out)
}

// Errorf writes error log output for this Object. It should always be
// seen by the user.
func Errorf(o interface{}, text string, args ...interface{}) {
	if Opt.Level >= LevelError {
		printf(LevelError, o, text, args...)
	}
}

// Logf writes log output for this Object. This is the default level.
func Logf(o interface{}, text string, args ...interface{}) {
	if Opt.Level >= LevelNotice {
		printf(LevelNotice, o, text, args...)
	}
}

// Infof writes info on operations for this Object.
func Infof(o interface{}, text string, args ...interface{}) {
	if Opt.Level >= LevelInfo {
		printf(LevelInfo, o, text, args...)
	}
}

// Debugf writes debugging output for this Object.
func Debugf(o interface{}, text string, args ...interface{}) {
	if Opt.Level >= LevelDebug {
		printf(LevelDebug, o, text, args...)
	}
}

// InitLogging configures the logging backends from Opt. It should be
// called once at program start.
func InitLogging() {
	if Opt.UseJSONLog {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.999999-07:00",
		})
		switch Opt.Level {
		case LevelDebug:
			logrus.SetLevel(logrus.DebugLevel)
		case LevelInfo:
			logrus.SetLevel(logrus.InfoLevel)
		case LevelNotice:
			logrus.SetLevel(logrus.WarnLevel)
		case LevelError:
			logrus.SetLevel(logrus.ErrorLevel)
		}
	}
}
