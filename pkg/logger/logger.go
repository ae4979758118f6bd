package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger behind the same call shape the rest of
// the codebase uses: Info/Error/Debug/Fatal, with optional structured
// fields attached via With.
type Logger struct {
	base *logrus.Logger
}

func New() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.DebugLevel)
	return &Logger{base: l}
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.base.Infof(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.base.Errorf(format, v...)
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.base.Debugf(format, v...)
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.base.Errorf(format, v...)
	os.Exit(1)
}

// With returns an entry carrying the given structured fields, for call
// sites that want to attach a client ID or frame type alongside a
// formatted message.
func (l *Logger) With(fields logrus.Fields) *logrus.Entry {
	return l.base.WithFields(fields)
}

// GlobalLogger is the package-wide instance used by the convenience
// functions below.
var GlobalLogger = New()

func Info(format string, v ...interface{}) {
	GlobalLogger.Info(format, v...)
}

func Error(format string, v ...interface{}) {
	GlobalLogger.Error(format, v...)
}

func Debug(format string, v ...interface{}) {
	GlobalLogger.Debug(format, v...)
}

func Fatal(format string, v ...interface{}) {
	GlobalLogger.Fatal(format, v...)
}

func With(fields logrus.Fields) *logrus.Entry {
	return GlobalLogger.With(fields)
}
