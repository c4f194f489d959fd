// Package report implements error capture: building reportable errors from
// Go errors or recovered panics, fingerprinting them and packaging them into
// reports that can be sent through one or more reporters.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"
)

// AppInfo identifies the application a report belongs to.
type AppInfo struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// SystemInfo describes the environment the error occurred in. It contains no
// personally identifiable information; the host name is never collected.
type SystemInfo struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Runtime string `json:"runtime"`
}

// Error contains all relevant information about an error to be reported.
type Error struct {
	ID       string     `json:"id"`
	Package  string     `json:"package"`
	Function string     `json:"function"`
	File     string     `json:"file"`
	Line     int        `json:"line"`
	Kind     string     `json:"kind"`
	Message  string     `json:"message"`
	Trace    string     `json:"trace"`
	App      AppInfo    `json:"app"`
	System   SystemInfo `json:"system"`
	Time     time.Time  `json:"time"`
}

// fingerprintFields lists the invariant parts of an error. The file base name
// counts as invariant; anything that can change between two occurrences of the
// same bug (line numbers, paths, timestamps) is deliberately excluded.
func (e *Error) fingerprintFields() []string {
	return []string{e.Package, e.File, e.Function, e.Kind, e.Message}
}

// Fingerprint returns a hash over the invariant information of this error.
// It's used for matching against already reported errors.
func (e *Error) Fingerprint() string {
	sha := sha256.New()
	for _, field := range e.fingerprintFields() {
		sha.Write([]byte(field))
		sha.Write([]byte{0})
	}
	return hex.EncodeToString(sha.Sum(nil))
}

var tracePathPattern = regexp.MustCompile(`(?m)^(\s+)(\S+?[/\\])([^/\\ ]+\.go)(:\d+)`)

// CleanTrace removes absolute directory prefixes from a stack trace so the
// report doesn't leak usernames or local directory layouts.
func CleanTrace(trace string) string {
	return tracePathPattern.ReplaceAllString(trace, "$1$3$4")
}

// callerInfo resolves the frame that raised the error, skipping frames inside
// this module.
func callerInfo(skip int) (pkg, fn, file string, line int) {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return "", "", "", 0
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function == "" {
			break
		}

		internal := strings.HasPrefix(frame.Function, "runtime.") ||
			(strings.Contains(frame.Function, "github.com/biologyguy/tattle/pkg/report.") &&
				!strings.HasSuffix(frame.File, "_test.go"))
		if !internal {
			fullName := frame.Function
			pos := strings.LastIndex(fullName, "/")
			dotPos := strings.Index(fullName[pos+1:], ".")
			if dotPos > -1 {
				pkg = fullName[:pos+1+dotPos]
				fn = fullName[pos+1+dotPos+1:]
			} else {
				fn = fullName
			}

			file = filepath.Base(frame.File)
			line = frame.Line
			return pkg, fn, file, line
		}

		if !more {
			break
		}
	}

	return "", "", "", 0
}
