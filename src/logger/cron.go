package logger

import (
	"fmt"
	"strings"
)

// CronLogger satisfies cron.Logger so scheduler internals land in the same
// stream as the rest of the service.
type CronLogger struct {
	*Logger
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.Logger.Debug("%s%s", msg, formatKV(keysAndValues))
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Logger.Error("%s: %v%s", msg, err, formatKV(keysAndValues))
}

func formatKV(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}

// ProfilerLogger satisfies pyroscope.Logger.
type ProfilerLogger struct {
	*Logger
}

func (p ProfilerLogger) Infof(format string, args ...interface{})  { p.Logger.Debug(format, args...) }
func (p ProfilerLogger) Debugf(format string, args ...interface{}) { p.Logger.Debug(format, args...) }
func (p ProfilerLogger) Errorf(format string, args ...interface{}) { p.Logger.Error(format, args...) }
