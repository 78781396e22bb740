package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier only logs messages. It is used when no webhook is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Send(ctx context.Context, m Message) error {
	n.Logger.Info().
		Str("to", m.To).
		Str("subject", m.Subject).
		Int64("ticket_id", m.TicketID).
		Msg("notification")
	return nil
}
