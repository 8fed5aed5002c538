package transport

import "context"

// Message is an inbound chat message in adapter-neutral form.
type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
}

// ChatTarget addresses an outbound send. For direct chats the chat id equals
// the user id.
type ChatTarget struct {
	ChatID int64
}

// Adapter is the chat-transport boundary. The core never talks to Telegram
// directly; it consumes Messages and produces SendText calls.
type Adapter interface {
	Start(ctx context.Context, out chan<- Message) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string) error
}
