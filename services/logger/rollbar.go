// Package logsvc implements core.Logger: lines go to a standard logger and, when a token is configured, to Rollbar.
package logsvc

import (
	"fmt"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/kamusi/core"
)

type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
	debug  bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "github.com/trezcool/kamusi")
	client.SetStackTracer(errors.StackTracer)
	client.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, client: client, debug: conf.Debug}
}

// entry holds the arguments of one log call, with the caller identity taken out.
type entry struct {
	id     core.Identity
	extras []interface{}
}

// split separates the first non anonymous core.Identity from the other arguments.
// Other identities are dropped.
func split(args []interface{}) entry {
	var e entry
	for _, arg := range args {
		if id, ok := arg.(core.Identity); ok {
			if e.id.IsAnonymous() {
				e.id = id
			}
			continue
		}
		e.extras = append(e.extras, arg)
	}
	return e
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	e := split(args)

	if e.id.IsAnonymous() {
		l.client.ClearPerson()
	} else {
		l.client.SetPerson(e.id.UserID, e.id.Username, e.id.Email)
	}
	l.client.Log(level, append([]interface{}{msg}, e.extras...)...)

	_ = l.std.Output(3, fmt.Sprintf("[%s] %s", level, msg))
	for _, extra := range e.extras {
		l.std.Printf("%+v", extra)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.log(rollbar.DEBUG, msg, args)
	}
}

func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

// Fatal reports msg, waits for pending reports then exits.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	l.client.Wait()
	l.std.Fatal(msg)
}
