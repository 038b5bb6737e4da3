package logging

import promlog "github.com/prometheus/common/log"

// promLogger adapts prometheus/common/log to Logger. Grounded
// directly on the teacher's pkg/mcast/core/transport.go, which logs
// through this exact package. Selected via "--log-filter=prom".
type promLogger struct{}

// NewPromLogger builds the alternate logging backend.
func NewPromLogger() Logger {
	return promLogger{}
}

func (promLogger) Debugf(format string, args ...interface{}) { promlog.Debugf(format, args...) }
func (promLogger) Infof(format string, args ...interface{})  { promlog.Infof(format, args...) }
func (promLogger) Warnf(format string, args ...interface{})  { promlog.Warnf(format, args...) }
func (promLogger) Errorf(format string, args ...interface{}) { promlog.Errorf(format, args...) }
func (promLogger) Fatalf(format string, args ...interface{}) { promlog.Fatalf(format, args...) }
