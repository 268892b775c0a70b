package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nestorcolt/blockcatcher/internal/auth"
	"github.com/nestorcolt/blockcatcher/internal/models"
	"github.com/nestorcolt/blockcatcher/internal/store"
)

func TestRequestNewAccessTokenPersistsCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SourceToken string `json:"source_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode token request: %v", err)
		}
		if req.SourceToken != "refresh-1" {
			t.Errorf("unexpected refresh token %q", req.SourceToken)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token","expires_in":3600}`))
	}))
	defer server.Close()

	st := store.NewMemoryStore()
	st.PutUser(models.UserProfile{
		UserID:            "u1",
		AccessToken:       "stale-token",
		RefreshToken:      "refresh-1",
		ServiceAreaHeader: "area-blob",
	})

	authenticator, err := auth.NewHTTPAuthenticator(auth.HTTPAuthenticatorConfig{
		TokenURL: server.URL,
		Store:    st,
	})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}

	user, _ := st.GetUser(context.Background(), "u1")
	if err := authenticator.RequestNewAccessToken(context.Background(), &user); err != nil {
		t.Fatalf("request new access token: %v", err)
	}
	if user.AccessToken != "fresh-token" {
		t.Fatalf("in-memory profile not updated, got %q", user.AccessToken)
	}
	stored, err := st.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.AccessToken != "fresh-token" {
		t.Fatalf("stored token not refreshed, got %q", stored.AccessToken)
	}
	if stored.ServiceAreaHeader != "area-blob" {
		t.Fatalf("service area must be preserved, got %q", stored.ServiceAreaHeader)
	}
}

func TestRequestNewAccessTokenFailsOnRejectedExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	st := store.NewMemoryStore()
	st.PutUser(models.UserProfile{UserID: "u1", RefreshToken: "refresh-1"})

	authenticator, err := auth.NewHTTPAuthenticator(auth.HTTPAuthenticatorConfig{
		TokenURL: server.URL,
		Store:    st,
	})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}

	user, _ := st.GetUser(context.Background(), "u1")
	if err := authenticator.RequestNewAccessToken(context.Background(), &user); err == nil {
		t.Fatalf("expected error on rejected exchange")
	}
}

func TestRequestNewAccessTokenRequiresRefreshToken(t *testing.T) {
	st := store.NewMemoryStore()
	authenticator, err := auth.NewHTTPAuthenticator(auth.HTTPAuthenticatorConfig{Store: st})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	user := models.UserProfile{UserID: "u1"}
	if err := authenticator.RequestNewAccessToken(context.Background(), &user); err == nil {
		t.Fatalf("expected error without refresh token")
	}
}
