package port

import "context"

// EmailMessage is a plain notification email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// EmailSender abstracts outbound notification delivery.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}
