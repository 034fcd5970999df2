package log

import (
	"os"
	"time"

	ddhook "github.com/bin3377/logrus-datadog-hook"
	"github.com/papermux/papermux/utils/dotenv"
	"github.com/sirupsen/logrus"
)

const (
	datadogUSHost    = "http-intake.logs.datadoghq.com"
	syncFrequencySec = 30
	syncRetry        = 3

	defaultService = "papermux"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger(defaultService)
}

// InitLogger builds the shared logger for the given service name. Production
// runs additionally ship entries to Datadog when DATADOG_API_KEY is set.
func InitLogger(service string) {
	logger = logrus.New()

	if apiKey := os.Getenv("DATADOG_API_KEY"); apiKey != "" && dotenv.GetEnv() == dotenv.ProdEnv {
		hook := ddhook.NewHook(
			datadogUSHost,
			apiKey,
			syncFrequencySec*time.Second,
			syncRetry,
			logrus.InfoLevel,
			&logrus.JSONFormatter{},
			ddhook.Options{},
		)
		logger.Hooks.Add(hook)
	}

	// Also send log to stderr, without json formatter for better readability
	logger.SetOutput(os.Stderr)

	Log = logger.WithFields(
		logrus.Fields{"service": service, "is_development": dotenv.GetEnv() != dotenv.ProdEnv},
	)
}
