package report

import (
	"fmt"
	"runtime"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
)

// Collector stores the application metadata that is attached to every error
// and creates new Error values from exceptions the application runs into.
type Collector struct {
	app AppInfo
}

// NewCollector creates a Collector for the given application.
func NewCollector(app AppInfo) *Collector {
	return &Collector{app: app}
}

func (c *Collector) systemInfo() SystemInfo {
	return SystemInfo{
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Runtime: runtime.Version(),
	}
}

func (c *Collector) newError(kind, message, trace string) *Error {
	pkg, fn, file, line := callerInfo(2)

	return &Error{
		ID:       nanoid.New(),
		Package:  pkg,
		Function: fn,
		File:     file,
		Line:     line,
		Kind:     kind,
		Message:  message,
		Trace:    CleanTrace(trace),
		App:      c.app,
		System:   c.systemInfo(),
		Time:     time.Now().UTC(),
	}
}

// FromError builds a reportable Error from a Go error. If err carries an eris
// stack trace, it's included in cleaned form.
func (c *Collector) FromError(err error) *Error {
	trace := eris.ToString(err, true)
	return c.newError(fmt.Sprintf("%T", eris.Cause(err)), err.Error(), trace)
}

// FromPanic builds a reportable Error from a recovered panic value and the
// stack captured at the recovery site.
func (c *Collector) FromPanic(value interface{}, stack []byte) *Error {
	var message string
	if err, ok := value.(error); ok {
		message = err.Error()
	} else {
		message = fmt.Sprintf("%v", value)
	}

	return c.newError(fmt.Sprintf("panic(%T)", value), message, string(stack))
}

// Guard runs fn and converts a panic into a reportable Error. The returned
// Error is nil if fn returned normally.
func (c *Collector) Guard(fn func() error) (reported *Error, err error) {
	defer func() {
		if value := recover(); value != nil {
			stack := make([]byte, 64*1024)
			stack = stack[:runtime.Stack(stack, false)]
			reported = c.FromPanic(value, stack)
			err = eris.Errorf("panic: %v", value)
		}
	}()

	err = fn()
	if err != nil {
		reported = c.FromError(err)
	}
	return reported, err
}
