package logx

import "fmt"

// Entry accumulates fields for a single log call.
type Entry struct {
	logger *Logger
	fields Fields
	err    error
}

func newEntry(logger *Logger) *Entry {
	return &Entry{
		logger: logger,
		fields: make(Fields),
	}
}

func (e *Entry) WithField(key string, value any) *Entry {
	e.fields[key] = value
	return e
}

func (e *Entry) WithFields(fields Fields) *Entry {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

func (e *Entry) WithError(err error) *Entry {
	e.err = err
	if err != nil {
		e.fields["error"] = err.Error()
	}
	return e
}

// Log writes msg at an arbitrary level.
func (e *Entry) Log(level Level, msg string) {
	e.logger.log(level, msg, e.fields, e.err)
	if level == LevelFatal {
		e.logger.exit(1)
	}
}

func (e *Entry) Trace(msg string) { e.Log(LevelTrace, msg) }
func (e *Entry) Debug(msg string) { e.Log(LevelDebug, msg) }
func (e *Entry) Info(msg string)  { e.Log(LevelInfo, msg) }
func (e *Entry) Warn(msg string)  { e.Log(LevelWarn, msg) }
func (e *Entry) Error(msg string) { e.Log(LevelError, msg) }
func (e *Entry) Fatal(msg string) { e.Log(LevelFatal, msg) }

func (e *Entry) Debugf(format string, args ...any) { e.Log(LevelDebug, fmt.Sprintf(format, args...)) }
func (e *Entry) Infof(format string, args ...any)  { e.Log(LevelInfo, fmt.Sprintf(format, args...)) }
func (e *Entry) Warnf(format string, args ...any)  { e.Log(LevelWarn, fmt.Sprintf(format, args...)) }
func (e *Entry) Errorf(format string, args ...any) { e.Log(LevelError, fmt.Sprintf(format, args...)) }
func (e *Entry) Fatalf(format string, args ...any) { e.Log(LevelFatal, fmt.Sprintf(format, args...)) }
