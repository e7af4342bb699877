package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// MessageSender delivers a short text message to a phone number.
type MessageSender interface {
	SendMessage(ctx context.Context, phone, body string) error
}

// LogMessageSender stands in for a WhatsApp provider. The clinic has no
// messaging account wired, so messages are only logged.
type LogMessageSender struct {
	logger zerolog.Logger
}

func NewLogMessageSender(logger zerolog.Logger) *LogMessageSender {
	return &LogMessageSender{logger: logger}
}

func (s *LogMessageSender) SendMessage(ctx context.Context, phone, body string) error {
	s.logger.Info().Str("phone", phone).Int("chars", len(body)).Msg("whatsapp message logged")
	return nil
}
