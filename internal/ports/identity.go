package ports

import "context"

// Profile is the subset of the identity provider's user record the
// reconciliation path needs.
type Profile struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
}

// ProfileFetcher reads a principal's profile from the identity
// provider's backend API. Transport failures and provider 5xx surface
// as domain.ErrUpstreamUnavailable; an unknown id is domain.ErrNotFound.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, externalID string) (Profile, error)
}
