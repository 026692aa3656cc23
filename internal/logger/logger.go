package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// Entry возвращает запись логгера с полями. Если логгер не инициализирован
// (например, в тестах), пишет в io.Discard.
func Entry(fields logrus.Fields) *logrus.Entry {
	if Log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		return silent.WithFields(fields)
	}
	return Log.WithFields(fields)
}
