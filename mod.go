// Package sealbox provides the toolkit to encrypt small secrets under a
// threshold committee, store them on a blob store and release them only to
// identities that a ledger authorizes.
//
// The logger is globally available and its level can be changed through the
// "LLVL" environment variable (trace, debug, info, warn, error). An unknown
// value enables every level. By default only warnings and errors are printed.
package sealbox

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// EnvLogLevel is the name of the environment variable to change the logging
// level.
const EnvLogLevel = "LLVL"

const defaultLevel = zerolog.WarnLevel

func init() {
	lvl := os.Getenv(EnvLogLevel)
	if lvl == "" {
		return
	}

	if !SetLevel(lvl) {
		Logger = Logger.Level(zerolog.TraceLevel)
	}
}

var logout = zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).Level(defaultLevel).
	With().Timestamp().Logger().
	With().Caller().Logger()

// SetLevel changes the level of the global logger. An unknown level leaves the
// logger untouched and returns false.
func SetLevel(lvl string) bool {
	level, err := zerolog.ParseLevel(lvl)
	if err != nil || lvl == "" {
		return false
	}

	Logger = Logger.Level(level)

	return true
}

// PromCollectors exposes Prometheus collectors created by the packages. A node
// registers them on its registry when it exposes the metrics.
var PromCollectors []prometheus.Collector
