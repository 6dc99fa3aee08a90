package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/closedesk/transaction-service/internal/adapters/identity"
	"github.com/closedesk/transaction-service/internal/domain"
)

func TestIdentityClient_FetchProfileAgainstProviderAPI(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test_secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/v1/users/user_known":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":                       "user_known",
				"first_name":               "Ada",
				"last_name":                "Li",
				"primary_email_address_id": "em_primary",
				"email_addresses": []map[string]any{
					{"id": "em_other", "email_address": "other@example.com"},
					{"id": "em_primary", "email_address": "ada@example.com"},
				},
			})
		case "/v1/users/user_flaky":
			http.Error(w, "upstream error", http.StatusBadGateway)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := identity.NewClient(identity.ClientOptions{
		BaseURL:   server.URL,
		SecretKey: "sk_test_secret",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()
	profile, err := client.FetchProfile(ctx, "user_known")
	if err != nil {
		t.Fatalf("fetch profile failed: %v", err)
	}
	if profile.ExternalID != "user_known" {
		t.Fatalf("unexpected external id: %s", profile.ExternalID)
	}
	if profile.Email != "ada@example.com" {
		t.Fatalf("expected the primary address, got %s", profile.Email)
	}
	if profile.FirstName != "Ada" || profile.LastName != "Li" {
		t.Fatalf("unexpected name: %s %s", profile.FirstName, profile.LastName)
	}

	if _, err := client.FetchProfile(ctx, "user_missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.FetchProfile(ctx, "user_flaky"); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
}

func TestIdentityClient_TransportFailureIsUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := identity.NewClient(identity.ClientOptions{
		BaseURL:   server.URL,
		SecretKey: "sk_test_secret",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.FetchProfile(context.Background(), "user_any"); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable on transport failure, got %v", err)
	}
}
