package launcher

import (
	"fmt"
	"os"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "launcher")

var verbosityLevels = []logrus.Level{
	logrus.FatalLevel,
	logrus.ErrorLevel,
	logrus.WarnLevel,
	logrus.InfoLevel,
	logrus.DebugLevel,
	logrus.TraceLevel,
}

// logLevel maps --log.verbosity onto a logrus level, clamping out-of-range values.
func logLevel(verbosity int) logrus.Level {
	if verbosity < 0 {
		verbosity = 0
	}
	if verbosity >= len(verbosityLevels) {
		verbosity = len(verbosityLevels) - 1
	}
	return verbosityLevels[verbosity]
}

func logFormatter(cfg LoggingConfig) (logrus.Formatter, error) {
	switch cfg.Format {
	case "json":
		return &logrus.JSONFormatter{}, nil
	case "text", "":
		return &logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   cfg.Color,
			DisableColors: !cfg.Color,
		}, nil
	}
	return nil, fmt.Errorf("unknown log format %q (valid: text, json)", cfg.Format)
}

// setupLogging configures the standard logrus logger and, with a DSN, ships
// errors to Sentry.
func setupLogging(cfg LoggingConfig, name string) error {
	formatter, err := logFormatter(cfg)
	if err != nil {
		return err
	}
	logrus.SetFormatter(formatter)
	logrus.SetLevel(logLevel(cfg.Verbosity))
	logrus.SetOutput(os.Stderr)

	if cfg.SentryDSN == "" {
		return nil
	}
	hook, err := logrus_sentry.NewWithTagsSentryHook(cfg.SentryDSN, map[string]string{"instance": name}, []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	})
	if err != nil {
		return fmt.Errorf("sentry hook: %w", err)
	}
	hook.StacktraceConfiguration.Enable = true
	logrus.AddHook(hook)
	return nil
}
