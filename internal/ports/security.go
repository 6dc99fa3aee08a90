package ports

// Principal is the trusted identity extracted from a verified session
// token. Only the identity provider's subject crosses into the
// application layer; local user resolution happens there.
type Principal struct {
	ExternalID string
	SessionID  string
}

// SessionVerifier parses and validates a session token into a
// Principal. Implementations reject anything but RS256.
type SessionVerifier interface {
	Verify(token string) (Principal, error)
}

// WebhookVerifier checks a webhook delivery's signature before any
// processing. Verification failure means the payload is never applied.
type WebhookVerifier interface {
	Verify(msgID, timestamp, signatureHeader string, payload []byte) error
}
