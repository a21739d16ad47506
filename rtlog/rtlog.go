// Package rtlog wraps go.uber.org/zap for the runtime, following the
// teacher's logger package: a package-level no-op logger at init, an
// Initialize entry point choosing a minimal console encoder or JSON
// production output, and .Named sub-loggers per service.
package rtlog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global sugared logger. Safe to use before Initialize;
	// it starts as a no-op so early-init code never nil-derefs.
	Logger *zap.SugaredLogger
	// JSONOutput records which encoder Initialize selected.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. jsonOutput selects
// zap.NewProductionConfig(); otherwise a minimal console encoder is used,
// suited to an interactive run of the runtime's dedicated-thread loop.
func Initialize(jsonOutput bool) error {
	JSONOutput = jsonOutput

	var zl *zap.Logger
	var err error

	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zl, err = cfg.Build()
	} else {
		zl = zap.New(zapcore.NewCore(
			newMinimalEncoder(),
			zapcore.AddSync(os.Stdout),
			zap.InfoLevel,
		))
	}
	if err != nil {
		return err
	}

	Logger = zl.Sugar()
	return nil
}

// Named returns a sub-logger scoped to a service name, e.g. rtlog.Named("fs").
func Named(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Cleanup flushes buffered log entries. Sync errors on stdout/stderr
// (EINVAL on some platforms) are ignorable but returned for callers that
// want to know.
func Cleanup() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}
