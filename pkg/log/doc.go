// Package log provides the structured logging abstraction used across
// fragship.
//
// Engines and adapters accept a Logger and never print directly. The
// zerolog adapter is the default for the CLI; NoopLogger is used when no
// logger is configured and in tests.
//
//	logger := log.NewZerologAdapter(os.Stderr, zerolog.InfoLevel)
//	logger.Info("session established", log.Stringer("peer", addr), log.Int("fragments", 3))
package log
