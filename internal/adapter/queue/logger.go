package queue

import (
	"fmt"
	"log/slog"
	"os"
)

// slogLogger routes asynq's internal logging through slog.
type slogLogger struct{}

func (slogLogger) Debug(args ...any) { slog.Debug(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Info(args ...any)  { slog.Info(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Warn(args ...any)  { slog.Warn(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Error(args ...any) { slog.Error(fmt.Sprint(args...), "component", "asynq") }

func (slogLogger) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
