// Package logsvc reports log entries to Rollbar and mirrors them on a std logger.
package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/user"
)

// RollbarLogger implements core.Logger.
// Args may hold an error, a map[string]interface{} of extras and the user.User the entry concerns.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger configures the process-wide Rollbar client from conf.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

// Enable switches reporting on or off. The std logger always prints.
func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Flush blocks until queued reports are sent.
func (l RollbarLogger) Flush() {
	rollbar.Wait()
}

// rollbarItem builds the arguments of a rollbar.Log call and picks the first user.User out of args.
// rollbar drops the message of an item carrying an error, so it moves to the extras.
func rollbarItem(msg string, args []interface{}) (item []interface{}, person *user.User) {
	var (
		err    error
		extras map[string]interface{}
	)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if person == nil {
				usr := v
				person = &usr
			}
		case error:
			err = v
		case map[string]interface{}:
			extras = v
		default:
			item = append(item, v)
		}
	}

	if err == nil {
		item = append(item, msg)
		if extras != nil {
			item = append(item, extras)
		}
		return item, person
	}

	withMsg := make(map[string]interface{}, len(extras)+1)
	for k, v := range extras {
		withMsg[k] = v
	}
	withMsg["message"] = msg
	return append(item, err, withMsg), person
}

func (l RollbarLogger) report(level, msg string, args []interface{}) {
	item, person := rollbarItem(msg, args)
	if person != nil {
		rollbar.SetPerson(person.ID, person.Name, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, item...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.DEBUG, msg, args) }

func (l RollbarLogger) Info(msg string, args ...interface{}) { l.report(rollbar.INFO, msg, args) }

func (l RollbarLogger) Warn(msg string, args ...interface{}) { l.report(rollbar.WARN, msg, args) }

func (l RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.ERR, msg, args) }

// Fatal reports at critical level, waits for delivery and exits.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
