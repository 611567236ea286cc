package conf

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SQL statement logging modes for SIWS_LOG_SQL.
const (
	LogSQLNone      = "none"
	LogSQLStatement = "statement"
	LogSQLAll       = "all"
)

type LoggingConfig struct {
	Level string `json:"log_level"`
	File  string `json:"log_file"`

	// TSFormat is a Go time layout for the "time" field.
	TSFormat string                 `json:"ts_format" envconfig:"TS_FORMAT"`
	Fields   map[string]interface{} `json:"fields"`
	SQL      string                 `json:"sql" default:"none"`
}

func (lc *LoggingConfig) Validate() error {
	if lc.Level != "" {
		if _, err := logrus.ParseLevel(lc.Level); err != nil {
			return fmt.Errorf("conf: SIWS_LOG_LEVEL: %w", err)
		}
	}
	switch lc.SQL {
	case "", LogSQLNone, LogSQLStatement, LogSQLAll:
		return nil
	default:
		return fmt.Errorf("conf: unknown SIWS_LOG_SQL mode %q", lc.SQL)
	}
}
