package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

// SessionTokenVerifier validates the identity provider's RS256 session
// tokens. Only the subject (the external principal id) and session id
// cross into the application layer.
type SessionTokenVerifier struct {
	publicKey *rsa.PublicKey

	// privateKey is only populated for ephemeral verifiers so local
	// runs and tests can mint their own tokens.
	privateKey *rsa.PrivateKey
}

// NewSessionTokenVerifier builds a verifier from the provider's public
// PEM key.
func NewSessionTokenVerifier(publicKeyPEM string) (*SessionTokenVerifier, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("session token public key is required")
	}
	pub, err := parseRSAPublic(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &SessionTokenVerifier{publicKey: pub}, nil
}

// NewEphemeralSessionTokenVerifier creates an in-memory keypair for
// local/dev use. It exists to unblock runtime startup when no provider
// key is configured.
func NewEphemeralSessionTokenVerifier() (*SessionTokenVerifier, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &SessionTokenVerifier{
		publicKey:  &privateKey.PublicKey,
		privateKey: privateKey,
	}, nil
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (v *SessionTokenVerifier) Verify(raw string) (ports.Principal, error) {
	parsed, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return v.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return ports.Principal{}, domain.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return ports.Principal{}, domain.ErrUnauthorized
	}

	return ports.Principal{
		ExternalID: claims.Subject,
		SessionID:  claims.SessionID,
	}, nil
}

// Sign mints a session token. Only ephemeral verifiers can sign; the
// production path never holds a private key.
func (v *SessionTokenVerifier) Sign(externalID, sessionID string, expiresAt time.Time) (string, error) {
	if v.privateKey == nil {
		return "", errors.New("verifier has no private key")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	return token.SignedString(v.privateKey)
}

func parseRSAPublic(raw string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid public PEM")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}
