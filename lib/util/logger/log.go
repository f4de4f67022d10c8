package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log  *Logger
	once sync.Once
)

// Fields is a set of structured key/value pairs attached to a log line.
type Fields = logrus.Fields

type Logger struct {
	*logrus.Logger
}

type Entry struct {
	*logrus.Entry
}

func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{l.Logger.WithField(key, value)}
}

func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{l.Logger.WithFields(fields)}
}

func (l *Logger) WithError(err error) *Entry {
	return &Entry{l.Logger.WithError(err)}
}

// parseLevel maps the DEBUG_BCGIDENT value onto a logrus level.
// Unknown values enable debug output.
func parseLevel(value string) logrus.Level {
	switch strings.ToLower(value) {
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "info":
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

func InitializeLogger() {
	once.Do(func() {
		log = &Logger{}
		log.Logger = logrus.New()
		// We do not want to log by default
		log.SetOutput(io.Discard)
		log.SetLevel(logrus.PanicLevel)
		if logLevel := os.Getenv("DEBUG_BCGIDENT"); logLevel != "" {
			log.SetOutput(os.Stderr)
			log.SetLevel(parseLevel(logLevel))
			log.WithField("level", log.GetLevel()).Debug("Logging enabled.")
		}
	})
}

// GetLogger returns the initialized Logger
func GetLogger() *Logger {
	if log == nil {
		InitializeLogger()
	}
	return log
}

func init() {
	InitializeLogger()
}
