package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Flynotfly/gymstat/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerSetupParams struct {
	LogFileName      string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
	// Stdout replaces os.Stdout, for tests.
	Stdout io.Writer
}

// Setup configures the global logrus logger. The returned func flushes
// sentry and closes the log file; call it before exiting.
func Setup(params LoggerSetupParams) func() {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetLevel(GetLevel(params.LogLevel))

	stdout := params.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	sentryOn := false
	if params.SentryEnabled {
		err := sentry.Init(sentry.ClientOptions{
			Environment:      params.Environment,
			Dsn:              params.SentryDSN,
			TracesSampleRate: 1.0,
			ServerName:       params.SentryServerName,
		})
		if err != nil {
			logrus.Errorf("sentry.Init: %s", err)
		} else {
			sentryOn = true
			logrus.AddHook(NewSentryHook([]logrus.Level{
				logrus.PanicLevel,
				logrus.FatalLevel,
				logrus.ErrorLevel,
			}))
			logrus.Debugln("sentry set up successfully")
		}
	}

	var lumberJackLogger *lumberjack.Logger
	if params.LogFileName != "" {
		if !strings.HasSuffix(params.LogFileName, ".log") {
			params.LogFileName += ".log"
		}
		if err := pkg.EnsureParentDir(params.LogFileName); err != nil {
			logrus.Errorf("create logs dir, logging to stdout only: %s", err)
		} else {
			lumberJackLogger = &lumberjack.Logger{
				Filename:   params.LogFileName,
				MaxSize:    10, // megabytes
				MaxBackups: 5,
				LocalTime:  false,
				Compress:   true,
			}
		}
	}

	switch {
	case lumberJackLogger == nil:
		logrus.SetOutput(stdout)
	case params.LogToStdout:
		logrus.SetOutput(pkg.NewCombinedWriter(stdout, lumberJackLogger))
	default:
		logrus.SetOutput(lumberJackLogger)
	}

	return func() {
		if sentryOn {
			sentry.Flush(2 * time.Second)
		}
		if lumberJackLogger != nil {
			_ = lumberJackLogger.Close()
		}
	}
}

func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "info":
		return logrus.InfoLevel
	case "trace":
		return logrus.TraceLevel
	case "warn", "warning":
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}
