package unit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/closedesk/transaction-service/internal/adapters/security"
	"github.com/closedesk/transaction-service/internal/domain"
)

const testWebhookSecret = "whsec_dGVzdC13ZWJob29rLXNlY3JldA=="

func signWebhook(t *testing.T, msgID string, at time.Time, payload []byte) (timestamp, header string) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString("dGVzdC13ZWJob29rLXNlY3JldA==")
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	timestamp = strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, raw)
	fmt.Fprintf(mac, "%s.%s.%s", msgID, timestamp, payload)
	header = "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return timestamp, header
}

func TestSvixVerifierAcceptsValidSignature(t *testing.T) {
	t.Parallel()

	verifier, err := security.NewSvixVerifier(testWebhookSecret, 5*time.Minute)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	payload := []byte(`{"type":"user.created"}`)
	timestamp, header := signWebhook(t, "msg_1", time.Now(), payload)
	if err := verifier.Verify("msg_1", timestamp, header, payload); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// Extra unknown entries in the header must not break matching.
	noisy := "v2,Zm9v " + header + " v1,aW52YWxpZA=="
	if err := verifier.Verify("msg_1", timestamp, noisy, payload); err != nil {
		t.Fatalf("valid signature among noise rejected: %v", err)
	}
}

func TestSvixVerifierRejectsTampering(t *testing.T) {
	t.Parallel()

	verifier, err := security.NewSvixVerifier(testWebhookSecret, 5*time.Minute)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	payload := []byte(`{"type":"user.created"}`)
	timestamp, header := signWebhook(t, "msg_1", time.Now(), payload)

	if err := verifier.Verify("msg_1", timestamp, header, []byte(`{"type":"user.deleted"}`)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("tampered payload must be rejected, got %v", err)
	}
	if err := verifier.Verify("msg_2", timestamp, header, payload); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("swapped message id must be rejected, got %v", err)
	}
	if err := verifier.Verify("msg_1", timestamp, "v1,bm90LWEtc2ln", payload); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("wrong signature must be rejected, got %v", err)
	}
	if err := verifier.Verify("", timestamp, header, payload); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("missing headers must be rejected, got %v", err)
	}
}

func TestSvixVerifierRejectsStaleTimestamp(t *testing.T) {
	t.Parallel()

	verifier, err := security.NewSvixVerifier(testWebhookSecret, time.Minute)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	payload := []byte(`{}`)
	timestamp, header := signWebhook(t, "msg_1", time.Now().Add(-10*time.Minute), payload)
	if err := verifier.Verify("msg_1", timestamp, header, payload); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stale timestamp must be rejected, got %v", err)
	}

	timestamp, header = signWebhook(t, "msg_1", time.Now().Add(10*time.Minute), payload)
	if err := verifier.Verify("msg_1", timestamp, header, payload); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("future timestamp must be rejected, got %v", err)
	}
}

func TestSvixVerifierRejectsBadSecret(t *testing.T) {
	t.Parallel()

	if _, err := security.NewSvixVerifier("", time.Minute); err == nil {
		t.Fatalf("empty secret must be rejected")
	}
	if _, err := security.NewSvixVerifier("whsec_%%%", time.Minute); err == nil {
		t.Fatalf("non-base64 secret must be rejected")
	}
}
