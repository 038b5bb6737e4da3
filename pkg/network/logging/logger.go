// Package logging provides the Logger abstraction used across the
// simulator, grounded on the teacher's pkg/mcast/definition.Logger
// contract: a small leveled interface with two backends, selectable
// at wiring time rather than hardcoded.
package logging

// Logger is implemented by every logging backend used in this module.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}
