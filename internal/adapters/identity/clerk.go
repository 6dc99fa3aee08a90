package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/closedesk/transaction-service/internal/domain"
	"github.com/closedesk/transaction-service/internal/ports"
)

// Client reads user profiles from the identity provider's backend API.
// Transport failures and provider 5xx responses surface as
// domain.ErrUpstreamUnavailable so callers never mistake an outage for
// a missing principal.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

type ClientOptions struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("identity api base url is required")
	}
	if strings.TrimSpace(opts.SecretKey) == "" {
		return nil, fmt.Errorf("identity api secret key is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		secretKey:  opts.SecretKey,
		httpClient: httpClient,
	}, nil
}

type userResponse struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (c *Client) FetchProfile(ctx context.Context, externalID string) (ports.Profile, error) {
	if strings.TrimSpace(externalID) == "" {
		return ports.Profile{}, fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users/"+externalID, nil)
	if err != nil {
		return ports.Profile{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.Profile{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ports.Profile{}, domain.ErrNotFound
	case resp.StatusCode >= 500:
		return ports.Profile{}, fmt.Errorf("%w: identity api status=%d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return ports.Profile{}, fmt.Errorf("identity api request failed: status=%d", resp.StatusCode)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ports.Profile{}, fmt.Errorf("decode profile response: %w", err)
	}

	return ports.Profile{
		ExternalID: body.ID,
		Email:      primaryEmail(body),
		FirstName:  body.FirstName,
		LastName:   body.LastName,
	}, nil
}

// primaryEmail resolves the address referenced by
// primary_email_address_id, falling back to the first listed address.
func primaryEmail(body userResponse) string {
	for _, addr := range body.EmailAddresses {
		if addr.ID == body.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	if len(body.EmailAddresses) > 0 {
		return body.EmailAddresses[0].EmailAddress
	}
	return ""
}
