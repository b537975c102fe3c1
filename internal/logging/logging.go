package logging

import (
	"os"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/sirupsen/logrus"
)

// Init configures the global logrus logger from the configuration.
func Init() {
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	level, err := logrus.ParseLevel(config.GetString(config.LOG_LEVEL, "info"))
	if err != nil {
		logrus.Warnf("Unknown log level: %v. Using info.", err)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// ForRun returns an entry tagged with the coordinates of a single invocation.
// A negative stage means the run is not part of a pipeline.
func ForRun(thread, run, stage int) *logrus.Entry {
	fields := logrus.Fields{"thread": thread, "run": run}
	if stage >= 0 {
		fields["stage"] = stage
	}
	return logrus.WithFields(fields)
}
