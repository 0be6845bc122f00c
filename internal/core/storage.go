package core

import "context"

// DefaultHistoryLimit caps a conversation at the system message plus nine turns.
const DefaultHistoryLimit = 10

// ConversationStore keeps the ordered message history of each conversation.
// Implementations must be safe for concurrent use; serialising whole turns on
// one conversation is the caller's job.
type ConversationStore interface {
	// Ensure creates an empty history for an unseen id and reports whether it did.
	Ensure(ctx context.Context, id string) (bool, error)
	// Seed atomically creates the conversation with system as its only message
	// when its history is missing or empty, and reports whether it did.
	Seed(ctx context.Context, id string, system Message) (bool, error)
	// Append fails with ErrConversationNotFound for an id that was never
	// created or has been evicted.
	Append(ctx context.Context, id string, msg Message) error
	// Trim keeps the first message plus the most recent ones once the cap is exceeded.
	Trim(ctx context.Context, id string) error
	// History returns a copy of the messages, empty for unseen ids.
	History(ctx context.Context, id string) ([]Message, error)
}
