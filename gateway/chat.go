package gateway

import "context"

// Inbound is a chat message delivered to the gateway.
type Inbound struct {
	// ID is the platform's identifier for the message itself.
	ID string `json:"id"`
	// Channel scopes where replies and board renders go.
	Channel string `json:"channel"`
	// Author is the stable player identifier.
	Author string `json:"author"`
	// AuthorName is the display name used in replies.
	AuthorName string `json:"author_name"`
	// Text is the raw message body.
	Text string `json:"text"`
}

// Chat is the rendering side of a chat platform. Post returns a reference
// that can later be used to edit or delete the message.
type Chat interface {
	Post(ctx context.Context, channel string, embed *Embed) (string, error)
	Edit(ctx context.Context, channel, ref string, embed *Embed) error
	Delete(ctx context.Context, channel, ref string) error
}
