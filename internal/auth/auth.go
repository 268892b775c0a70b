package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nestorcolt/blockcatcher/internal/models"
	"github.com/nestorcolt/blockcatcher/internal/store"
)

// DefaultTokenURL is the token-exchange endpoint of the identity
// provider.
const DefaultTokenURL = "https://api.amazon.com/auth/token"

// Authenticator refreshes a user's access token when the offer service
// rejects it. Implementations persist the refreshed credentials
// out-of-band through the profile store; the catcher only reacts to the
// next loaded profile.
type Authenticator interface {
	RequestNewAccessToken(ctx context.Context, user *models.UserProfile) error
}

type HTTPAuthenticatorConfig struct {
	TokenURL   string
	HTTPClient *http.Client
	Store      store.ProfileStore
}

type HTTPAuthenticator struct {
	tokenURL string
	client   *http.Client
	store    store.ProfileStore
}

func NewHTTPAuthenticator(cfg HTTPAuthenticatorConfig) (*HTTPAuthenticator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("authenticator: profile store required")
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPAuthenticator{
		tokenURL: tokenURL,
		client:   client,
		store:    cfg.Store,
	}, nil
}

type tokenRequest struct {
	RequestedTokenType string `json:"requested_token_type"`
	SourceTokenType    string `json:"source_token_type"`
	SourceToken        string `json:"source_token"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// RequestNewAccessToken exchanges the user's refresh token for a new
// access token and writes it back to the profile store. The in-memory
// profile is updated too so a caller holding it can retry immediately.
func (a *HTTPAuthenticator) RequestNewAccessToken(ctx context.Context, user *models.UserProfile) error {
	if user.RefreshToken == "" {
		return fmt.Errorf("authenticate user %s: no refresh token on profile", user.UserID)
	}
	body, err := json.Marshal(tokenRequest{
		RequestedTokenType: "access_token",
		SourceTokenType:    "refresh_token",
		SourceToken:        user.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("marshal token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("token request for %s: %w", user.UserID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request for %s: status %d", user.UserID, resp.StatusCode)
	}
	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token response for %s: empty access token", user.UserID)
	}
	if err := a.store.SetUserCredentials(ctx, user.UserID, token.AccessToken, user.ServiceAreaHeader); err != nil {
		return fmt.Errorf("persist refreshed token: %w", err)
	}
	user.AccessToken = token.AccessToken
	return nil
}
