// Package logger wraps zap with:
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - a process-wide sugared logger with a runtime-adjustable level,
//   - leveled convenience functions (Info, Infof, InfoKV, ...) that read the
//     logger from the context so request-scoped fields propagate for free.
package logger
