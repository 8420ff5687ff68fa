package errors

// Code is a machine-readable error code.
type Code string

// Settings errors (not retryable).
const (
	// CodeSettingsFrozen indicates a mutation was attempted on a frozen settings store.
	CodeSettingsFrozen Code = "SETTINGS_FROZEN"
	// CodeKeyNotFound indicates a settings key does not exist.
	CodeKeyNotFound Code = "KEY_NOT_FOUND"
	// CodeUnknownPriority indicates a settings priority name is not registered.
	CodeUnknownPriority Code = "UNKNOWN_PRIORITY"
	// CodeInvalidConfig indicates configuration failed validation.
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// Runtime errors.
const (
	// CodeReaderFailed indicates a reader could not produce a batch.
	CodeReaderFailed Code = "READER_FAILED"
	// CodePipelineFailed indicates a pipeline could not process a batch.
	CodePipelineFailed Code = "PIPELINE_FAILED"
	// CodeConnectionFailed indicates a broker or service connection failed.
	CodeConnectionFailed Code = "CONNECTION_FAILED"
	// CodeTimeout indicates an operation exceeded its deadline.
	CodeTimeout Code = "TIMEOUT"
	// CodeSchedulerStopped indicates an operation on a stopped scheduler.
	CodeSchedulerStopped Code = "SCHEDULER_STOPPED"
	// CodeInternal indicates an unexpected internal failure.
	CodeInternal Code = "INTERNAL"
)

// retryableCodes lists codes whose operations may be retried.
var retryableCodes = map[Code]bool{
	CodeReaderFailed:     true,
	CodePipelineFailed:   true,
	CodeConnectionFailed: true,
	CodeTimeout:          true,
}

// IsRetryableCode reports whether operations failing with the given code may be retried.
func IsRetryableCode(code Code) bool {
	return retryableCodes[code]
}
