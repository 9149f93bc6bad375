// Package channel abstracts outbound message delivery so node executors
// don't need to know whether a tenant's customer is being reached over
// WhatsApp, SMS, or the embedded web widget.
package channel

import "context"

// Sender delivers an outbound message to a participant over whatever
// transport a tenant has configured. Concrete implementations wrap a
// channel-specific client (e.g. a WhatsApp Business API client); this
// package only declares the seam node executors and the fallback
// chatbot depend on.
type Sender interface {
	Send(ctx context.Context, tenantID, target, body string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, tenantID, target, body string) error

func (f SenderFunc) Send(ctx context.Context, tenantID, target, body string) error {
	return f(ctx, tenantID, target, body)
}
