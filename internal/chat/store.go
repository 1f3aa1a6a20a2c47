package chat

import "context"

// Store is the durable per-user log of turns. Every method is atomic with
// respect to a single user's sequence; there are no cross-user guarantees.
type Store interface {
	// Turns returns the user's turns in append order, or ErrUserNotFound.
	Turns(ctx context.Context, userID string) ([]Turn, error)
	Append(ctx context.Context, userID string, turn Turn) error
	RemoveLast(ctx context.Context, userID string) error
	Clear(ctx context.Context, userID string) error
}

// UserDirectory answers whether a user exists in the identity store.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}
