package logging

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// logrusLogger is the default Logger, backed by logrus with colorized
// level prefixes. color and go-colorable were already indirect
// dependencies pulled in by logrus in the teacher's go.mod; here they
// are exercised directly instead of sitting unused.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger builds the default logger. debug toggles Debugf
// output, matching the teacher's DefaultLogger.ToggleDebug behavior.
func NewLogrusLogger(debug bool) Logger {
	l := logrus.New()
	l.SetOutput(colorableOutput())
	l.SetFormatter(&coloredTextFormatter{})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func colorableOutput() io.Writer {
	return colorable.NewColorable(os.Stderr)
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *logrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// coloredTextFormatter wraps the level name in the teacher-style
// "[LEVEL]: message" shape, colored per level via fatih/color.
type coloredTextFormatter struct{}

func (f *coloredTextFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var c *color.Color
	switch e.Level {
	case logrus.DebugLevel:
		c = color.New(color.FgCyan)
	case logrus.InfoLevel:
		c = color.New(color.FgGreen)
	case logrus.WarnLevel:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	line := c.Sprintf("[%s]", e.Level.String()) + ": " + e.Message + "\n"
	return []byte(line), nil
}
