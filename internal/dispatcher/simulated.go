package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SimulatedSender does no network I/O: it logs the message, waits delay and
// reports success. Used whenever the Business API is not configured.
type SimulatedSender struct {
	delay time.Duration
	log   *zap.Logger
}

func NewSimulatedSender(delay time.Duration, log *zap.Logger) *SimulatedSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &SimulatedSender{delay: delay, log: log}
}

func (s *SimulatedSender) Kind() ChannelKind { return ChannelSimulated }

func (s *SimulatedSender) Send(ctx context.Context, phone, text string) error {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	s.log.Info("simulated whatsapp message sent",
		zap.String("phone", phone),
		zap.Int("length", len(text)),
	)
	s.log.Debug("simulated whatsapp message body", zap.String("text", text))

	return nil
}
