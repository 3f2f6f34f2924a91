package audit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSink writes events as structured log entries. Failed events are logged at
// warn level, the rest at info.
type LogSink struct {
	logger logrus.FieldLogger
}

// NewLogSink returns a LogSink. A nil logger selects logrus.StandardLogger().
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(_ context.Context, event Event) {
	fields := logrus.Fields{
		"audit":   event.EventType,
		"success": event.Success,
	}
	if event.SubjectID != "" {
		fields["subject"] = event.SubjectID
	}
	if event.Role != "" {
		fields["role"] = event.Role
	}
	if event.IP != "" {
		fields["ip"] = event.IP
	}
	if event.Error != "" {
		fields["error_code"] = event.Error
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := s.logger.WithFields(fields)
	if event.Success {
		entry.Info("audit event")
		return
	}
	entry.Warn("audit event")
}
