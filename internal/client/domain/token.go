package domain

import "context"

// TokenKey is the key the session token is persisted under.
const TokenKey = "auth_token"

// TokenRepository is a durable key-value store on the client side. Get
// returns an error wrapping shared ErrNotExist for missing keys.
type TokenRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
