package mail

import (
	"context"
	"log"
)

// Message is everything the transport needs: recipient metadata plus the
// rendered attachment. SMTP mechanics live entirely behind Sender.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender logs instead of sending. The default wiring until a real
// transport is configured; tests swap in a recorder.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("[MAIL] to=%s subject=%q attachment=%s (%d bytes)",
		msg.To, msg.Subject, msg.AttachmentName, len(msg.Attachment))
	return nil
}
