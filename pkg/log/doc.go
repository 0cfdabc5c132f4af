// Package log provides the structured logging facade used by every
// component in this module.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. The leveled methods build an
// Entry, format it with the configured Formatter and write it to every
// configured Output directly.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("broadcast"), log.Str("team", "team-a"))
//	l.Info("server started", log.Int("port", 8080))
//
// # Interop
//
// NewLogger also builds an *slog.Logger over an internal slog.Handler bridge
// that writes through the same formatter/outputs pipeline. It is held in an
// unexported field: no exported method returns it, and the leveled methods
// do not go through it.
package log
