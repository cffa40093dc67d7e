package domain

import "context"

// Account is the slice of an externally owned user the engine needs.
type Account struct {
	UserID         string
	SponsorID      *string
	IsIntermediary bool
}

type IdentityProvider interface {
	GetUser(ctx context.Context, userID string) (*Account, error)
}
