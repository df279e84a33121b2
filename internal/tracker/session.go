package tracker

import (
	"context"
	"errors"
)

// ErrForbidden is returned by Session methods when the transport cannot
// access a channel's history. The walker skips the channel and continues.
var ErrForbidden = errors.New("channel inaccessible")

// Identity is a resolved account reference delivered by the transport.
type Identity struct {
	ID          string
	DisplayName string
	Bot         bool
}

// GroupRef identifies a server/guild.
type GroupRef struct {
	ID   string
	Name string
}

// ChannelRef identifies a text channel within a group.
type ChannelRef struct {
	ID   string
	Name string
}

// Reaction is one emoji attached to a message. Reactor identities are
// not carried inline; they are resolved through Session.Reactors.
type Reaction struct {
	Emoji string
}

// Message is one history page item.
type Message struct {
	ID        string
	Author    Identity
	Reactions []Reaction
}

// Session is the connected, authenticated transport boundary. The real
// chat-network layer (connection, auth, rate limiting, wire decoding)
// lives behind it in an external process.
type Session interface {
	// Groups enumerates all accessible groups.
	Groups(ctx context.Context) ([]GroupRef, error)
	// Group resolves a single group by id.
	Group(ctx context.Context, id string) (GroupRef, error)
	// Channels enumerates the text channels of a group.
	Channels(ctx context.Context, groupID string) ([]ChannelRef, error)
	// MessagesAfter returns up to limit messages strictly newer than
	// afterID, oldest first. An empty afterID starts from the oldest
	// retrievable message.
	MessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]Message, error)
	// Reactors lists the identity ids that added the given reaction.
	Reactors(ctx context.Context, channelID, messageID, emoji string) ([]string, error)
	// ResolveIdentity fetches the profile behind an identity reference.
	ResolveIdentity(ctx context.Context, id string) (Identity, error)
	// Boosters lists the identities currently boosting a group.
	Boosters(ctx context.Context, groupID string) ([]Identity, error)
}
