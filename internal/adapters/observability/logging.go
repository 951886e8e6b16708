package observability

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env string) zerolog.Logger {
	if env == "dev" || env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// cronLogger routes robfig/cron's internal logging through zerolog.
type cronLogger struct{ l zerolog.Logger }

func CronLogger(l zerolog.Logger) cron.Logger {
	return cronLogger{l: l.With().Str("component", "scheduler").Logger()}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	// cron logs every wake/run at info; keep that out of production output
	withKV(c.l.Debug(), keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	withKV(c.l.Error().Err(err), keysAndValues).Msg(msg)
}

func withKV(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		e = e.Interface(fmt.Sprint(kv[i]), kv[i+1])
	}
	return e
}
