package observability

import (
	"os"
	"sync"

	"github.com/bombsimon/logrusr/v3"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/pop/v6/logging"
	"github.com/ratersapp/siws/internal/conf"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var loggingOnce sync.Once

// ConfigureLogging sets up the standard logrus logger once per process and
// routes pop and OpenTelemetry diagnostics through it.
func ConfigureLogging(config *conf.LoggingConfig) error {
	var err error
	loggingOnce.Do(func() {
		err = configureLogger(logrus.StandardLogger(), config)
		if err != nil {
			return
		}
		pop.SetLogger(popLogger(logrus.StandardLogger(), config.SQL))
		otel.SetLogger(logrusr.New(logrus.StandardLogger().WithField("component", "otel")))
	})
	return err
}

func configureLogger(logger *logrus.Logger, config *conf.LoggingConfig) error {
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: config.TSFormat})

	if config.Level != "" {
		level, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	}

	if config.File != "" {
		f, err := os.OpenFile(config.File, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660) //#nosec G302
		if err != nil {
			return err
		}
		logger.SetOutput(f)
	}

	if len(config.Fields) > 0 {
		logger.AddHook(&fieldsHook{fields: logrus.Fields(config.Fields)})
	}

	logger.WithField("level", logger.GetLevel().String()).Debug("logger configured")
	return nil
}

// popLogger forwards pop's messages to logger. SQL statements are only
// emitted in the statement and all modes, and only "all" includes arguments.
func popLogger(logger logrus.FieldLogger, sqlMode string) func(logging.Level, string, ...interface{}) {
	popLog := logger.WithField("component", "pop")
	sqlLog := logger.WithField("component", "sql")

	return func(lvl logging.Level, s string, args ...interface{}) {
		entry := popLog
		if lvl == logging.SQL {
			switch sqlMode {
			case conf.LogSQLStatement:
				sqlLog.Info(s)
				return
			case conf.LogSQLAll:
				entry = sqlLog
			default:
				return
			}
		}
		if len(args) > 0 {
			entry = entry.WithField("args", args)
		}

		switch lvl {
		case logging.Debug:
			entry.Debug(s)
		case logging.Warn:
			entry.Warn(s)
		case logging.Error:
			entry.Error(s)
		default:
			entry.Info(s)
		}
	}
}

// fieldsHook stamps the configured static fields onto every entry.
type fieldsHook struct {
	fields logrus.Fields
}

func (h *fieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}
