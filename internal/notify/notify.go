package notify

import "context"

type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	TicketID int64  `json:"ticket_id"`
}

// Notifier delivers a message to a technician. Rendering and delivery live
// behind the implementation.
type Notifier interface {
	Send(ctx context.Context, m Message) error
}
