package settings

// Keys understood by the daemon. Subsystem configs read these through the
// store; anything else set by the user is carried but uninterpreted.
const (
	KeyServiceName       = "SERVICE_NAME"
	KeyEnvironment       = "ENVIRONMENT"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFormat         = "LOG_FORMAT"
	KeySchedulerInterval = "SCHEDULER_INTERVAL"
	KeyReaderBatchSize   = "READER_BATCH_SIZE"
	KeyReaderPollTimeout = "READER_POLL_TIMEOUT"
	KeyKafkaBrokers      = "KAFKA_BROKERS"
	KeyKafkaGroupID      = "KAFKA_GROUP_ID"
	KeySentryDSN         = "SENTRY_DSN"
	KeyOpsPort           = "OPS_PORT"
)

// Defaults returns the built-in settings applied at the "default" priority.
func Defaults() map[string]any {
	return map[string]any{
		KeyServiceName:       "minotaur",
		KeyEnvironment:       "development",
		KeyLogLevel:          "info",
		KeyLogFormat:         "console",
		KeySchedulerInterval: 3,
		KeyReaderBatchSize:   100,
		KeyReaderPollTimeout: "1s",
		KeyKafkaBrokers:      "localhost:9092",
		KeyKafkaGroupID:      "minotaur",
		KeySentryDSN:         "",
		KeyOpsPort:           0,
	}
}
