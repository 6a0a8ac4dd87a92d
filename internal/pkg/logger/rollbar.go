package logger

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rs/zerolog"
)

// RollbarConfig holds the error tracker settings
type RollbarConfig struct {
	Token       string
	Environment string
	ServerHost  string
	CodeVersion string
}

// rollbarHook mirrors error and fatal events to Rollbar
type rollbarHook struct{}

func newRollbarHook(cfg RollbarConfig) zerolog.Hook {
	if cfg.Token == "" {
		rollbar.SetEnabled(false)
		return nil
	}

	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetServerHost(cfg.ServerHost)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	rollbar.SetEnabled(true)
	return rollbarHook{}
}

func (rollbarHook) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	switch level {
	case zerolog.ErrorLevel:
		rollbar.Error(message)
	case zerolog.FatalLevel, zerolog.PanicLevel:
		rollbar.Critical(message)
		rollbar.Wait()
	}
}

// Flush waits for queued Rollbar items to be sent
func Flush() {
	rollbar.Wait()
}
