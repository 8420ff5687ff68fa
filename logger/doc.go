// Package logger provides structured logging for the minotaur daemon,
// built on zerolog. Subsystems obtain component-tagged sub-loggers via
// WithComponent; the daemon initializes the global logger once from the
// resolved settings.
package logger
