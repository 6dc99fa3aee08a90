package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/closedesk/transaction-service/internal/application"
)

// identityWebhookEnvelope is the provider's delivery shape: the event
// type plus the affected user record.
type identityWebhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		ID                    string `json:"id"`
		FirstName             string `json:"first_name"`
		LastName              string `json:"last_name"`
		PrimaryEmailAddressID string `json:"primary_email_address_id"`
		EmailAddresses        []struct {
			ID           string `json:"id"`
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

// identityWebhook verifies the delivery signature before anything else
// touches the payload. Unverifiable deliveries are rejected and never
// applied.
func (h *Handler) identityWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeValidationError(r.Context(), w, "identity_webhook", err)
		return
	}

	msgID := r.Header.Get("svix-id")
	timestamp := r.Header.Get("svix-timestamp")
	signature := r.Header.Get("svix-signature")
	if err := h.webhooks.Verify(msgID, timestamp, signature, payload); err != nil {
		writeMappedError(r.Context(), w, "identity_webhook", err)
		return
	}

	var envelope identityWebhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		writeValidationError(r.Context(), w, "identity_webhook", err)
		return
	}

	event := application.IdentityEvent{
		EventID:    msgID,
		EventType:  envelope.Type,
		ExternalID: envelope.Data.ID,
		FirstName:  envelope.Data.FirstName,
		LastName:   envelope.Data.LastName,
		Email:      webhookPrimaryEmail(envelope),
	}
	if err := h.service.HandleIdentityEvent(r.Context(), event); err != nil {
		writeMappedError(r.Context(), w, "identity_webhook", err)
		return
	}
	writeMessage(w, http.StatusOK, "processed")
}

func webhookPrimaryEmail(envelope identityWebhookEnvelope) string {
	for _, addr := range envelope.Data.EmailAddresses {
		if addr.ID == envelope.Data.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	if len(envelope.Data.EmailAddresses) > 0 {
		return envelope.Data.EmailAddresses[0].EmailAddress
	}
	return ""
}
