package logx

import "context"

// Sink records titled, leveled messages with a free-form details block.
// It is the default log sink of the messages service when no persistent
// sink is configured.
type Sink struct {
	logger    *Logger
	component string
}

// NewSink returns a Sink writing through logger, or through the default
// logger when logger is nil.
func NewSink(logger *Logger, component string) *Sink {
	return &Sink{logger: logger, component: component}
}

func (s *Sink) Log(_ context.Context, level Level, title, details string) error {
	l := s.logger
	if l == nil {
		l = defaultLogger
	}
	entry := l.WithField("component", s.component)
	if details != "" {
		entry = entry.WithField("details", details)
	}
	l.log(level, title, entry.fields, nil)
	return nil
}
