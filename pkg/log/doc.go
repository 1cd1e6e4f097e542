// Package log provides the logging abstraction used by svchost components.
//
// The engine and the host controller only depend on the Logger interface
// below. A zerolog adapter is provided for production use and a no-op
// logger for tests and for library users who do not want output.
//
// # Usage
//
//	logger := log.NewZerologAdapter(os.Stderr, log.FormatConsole, log.LevelInfo)
//
// Or reuse an existing zerolog logger:
//
//	logger := log.NewZerologAdapterWithLogger(zl)
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
