// Package logger wraps zap to offer a global sugared logger with a console
// encoder, context helpers (ToContext/FromContext/WithName/WithKV), level
// parsing and KV-style convenience functions.
//
// Background loops receive a context and extract the logger from it, so every
// goroutine logs under its own name and fields.
package logger
