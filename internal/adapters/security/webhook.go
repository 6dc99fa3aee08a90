package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/closedesk/transaction-service/internal/domain"
)

// SvixVerifier checks identity webhook signatures in the Svix scheme:
// HMAC-SHA256 over "id.timestamp.body" with a base64 secret, carried as
// a space-separated list of "v1,<base64 sig>" entries. A payload that
// fails verification is never processed.
type SvixVerifier struct {
	secret    []byte
	tolerance time.Duration
	nowFn     func() time.Time
}

// NewSvixVerifier parses a "whsec_"-prefixed base64 secret.
func NewSvixVerifier(secret string, tolerance time.Duration) (*SvixVerifier, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(secret), "whsec_")
	if trimmed == "" {
		return nil, errors.New("webhook secret is required")
	}
	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &SvixVerifier{
		secret:    raw,
		tolerance: tolerance,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (v *SvixVerifier) Verify(msgID, timestamp, signatureHeader string, payload []byte) error {
	if msgID == "" || timestamp == "" || signatureHeader == "" {
		return fmt.Errorf("%w: missing webhook signature headers", domain.ErrUnauthorized)
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed webhook timestamp", domain.ErrUnauthorized)
	}
	sentAt := time.Unix(unix, 0)
	now := v.nowFn()
	if sentAt.Before(now.Add(-v.tolerance)) || sentAt.After(now.Add(v.tolerance)) {
		return fmt.Errorf("%w: webhook timestamp outside tolerance", domain.ErrUnauthorized)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, entry := range strings.Fields(signatureHeader) {
		version, encoded, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		candidate, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: webhook signature mismatch", domain.ErrUnauthorized)
}
