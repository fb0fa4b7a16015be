package main

import "context"

// Logger is what the demos need from a logger; *log.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

type contextKey string

const contextKeyLogger = contextKey("logger")

func logger(ctx context.Context) Logger {
	l, ok := ctx.Value(contextKeyLogger).(Logger)
	if !ok {
		return discardLogger{}
	}
	return l
}
