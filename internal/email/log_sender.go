package email

import (
	"context"
	"log"
)

// LogSender logs sends instead of delivering them. Used when no email
// provider is configured.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and reports success.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Printf("email send (dry run): kind=%s to=%s", msg.Kind, msg.To)
	return nil
}

var _ Sender = (*LogSender)(nil)
