package botx

import "context"

// Handler handles requests.
type Handler func(ctx context.Context, req Request) ([]Response, error)

// Middleware wraps a handler.
type Middleware func(Handler) Handler

// Request is a request for handler.
type Request struct {
	MessageID string
	Chat      Chat
	From      User
	Text      string
}

// Chat contains chat information.
type Chat struct {
	ID       string
	Username string
}

// User identifies the sender of a message. A zero value means the
// update carried no user context.
type User struct {
	ID          string
	Username    string
	DisplayName string
}

// Response is a response from handler.
type Response struct {
	ReplyToMessageID string
	ChatID           string
	Text             string
}

// NotFound is a default handler for not found commands.
func NotFound(_ context.Context, req Request) ([]Response, error) {
	return []Response{{
		ChatID: req.Chat.ID,
		Text:   "command not found",
	}}, nil
}
