package obs

import (
	"context"
	"log/slog"
	"os"
)

// ConsoleSinkName is the name of the default console sink.
const ConsoleSinkName = "console"

func defaultConsoleLogger() Logger {
	return SlogLogger{L: slog.New(slog.NewJSONHandler(os.Stderr, nil))}
}

// NewConsoleSink returns a sink that logs finished units through logger,
// one log line per unit, with data fields in insertion order.
func NewConsoleSink(logger Logger) Sink {
	return Sink{
		Name: ConsoleSinkName,
		Success: func(_ context.Context, unit *Unit) {
			logger.Info("unit completed", consoleArgs(unit, nil)...)
		},
		Error: func(_ context.Context, unit *Unit, err error) {
			logger.Error("unit failed", consoleArgs(unit, err)...)
		},
	}
}

func consoleArgs(unit *Unit, err error) []any {
	args := make([]any, 0, 8+unit.Data.Len()*2)
	args = append(args, "unit_id", unit.ID.String(), "unit", unit.Name)
	if unit.Scope != "" {
		args = append(args, "scope", unit.Scope)
	}
	if unit.Source != "" {
		args = append(args, "source", unit.Source)
	}
	if err != nil {
		args = append(args, "err", err)
	}
	unit.Data.Range(func(key string, value any) bool {
		args = append(args, key, value)

		return true
	})

	return args
}
