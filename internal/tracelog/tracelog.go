// Package tracelog is a thin logrus wrapper mirroring the teacher's
// modules/trace: call sites get their location attached before logging,
// and a Tracker measures elapsed phases of a long-running operation (a
// projection or unapply run) for diagnostics.
package tracelog

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// SetVerbose raises the package logger to debug level; the default level
// only surfaces info and above.
func SetVerbose(verbose bool) {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
		return
	}
	logrus.SetLevel(logrus.InfoLevel)
}

func location(skip int) (string, int) {
	pc, _, line, ok := runtime.Caller(skip)
	if !ok {
		return "?", line
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "?", line
	}
	return fn.Name(), line
}

// Errorf logs format/a at the caller's location and returns an error
// carrying the formatted message, the same call-site-then-wrap idiom as
// the teacher's trace.Errorf.
func Errorf(format string, a ...any) error {
	fn, line := location(2)
	err := fmt.Errorf(format, a...)
	logrus.WithField("at", fmt.Sprintf("%s:%d", fn, line)).Error(err)
	return err
}

func Infof(format string, a ...any) {
	logrus.Infof(format, a...)
}

func Debugf(format string, a ...any) {
	logrus.Debugf(format, a...)
}

func Warnf(format string, a ...any) {
	logrus.Warnf(format, a...)
}

// Tracker measures elapsed time between successive phases of a single
// projection/unapply run, logging only when debug-enabled.
type Tracker struct {
	op   string
	last time.Time
}

func NewTracker(op string) *Tracker {
	return &Tracker{op: op, last: time.Now()}
}

// Step logs the elapsed time since the last Step (or since NewTracker)
// under the given phase label.
func (t *Tracker) Step(format string, a ...any) {
	now := time.Now()
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		phase := fmt.Sprintf(format, a...)
		logrus.WithFields(logrus.Fields{
			"op":    t.op,
			"phase": phase,
			"spent": now.Sub(t.last),
		}).Debug("step")
	}
	t.last = now
}
