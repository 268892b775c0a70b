package headers_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nestorcolt/blockcatcher/internal/headers"
	"github.com/nestorcolt/blockcatcher/internal/signing"
)

func TestSynthesizeBasicHeaders(t *testing.T) {
	h, err := headers.New(nil).Synthesize("token-1", "https://flex.test/offers")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if h[headers.TokenHeader] != "token-1" {
		t.Fatalf("expected access token header, got %q", h[headers.TokenHeader])
	}
	if _, err := uuid.Parse(h["x-flex-instance-id"]); err != nil {
		t.Fatalf("instance id is not a canonical uuid: %q", h["x-flex-instance-id"])
	}
	if !strings.HasPrefix(h["User-Agent"], "Dalvik/2.1.0") {
		t.Fatalf("unexpected user agent %q", h["User-Agent"])
	}
	if h["Connection"] != "Keep-Alive" || h["Accept-Encoding"] != "gzip" {
		t.Fatalf("missing connection hints: %v", h)
	}
	if _, present := h[signing.HeaderAuthorization]; present {
		t.Fatalf("signature headers must be absent without a signer")
	}
}

func TestSynthesizeNeverReusesInstanceID(t *testing.T) {
	s := headers.New(nil)
	first, err := s.Synthesize("token-1", "https://flex.test/offers")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	second, err := s.Synthesize("token-1", "https://flex.test/offers")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if first["x-flex-instance-id"] == second["x-flex-instance-id"] {
		t.Fatalf("instance id replayed across calls")
	}
}

func TestSynthesizeWithSigner(t *testing.T) {
	signer, err := signing.NewHMACSigner("test-cred", "secret")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	h, err := headers.New(signer).Synthesize("token-1", "https://flex.test/offers")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	for _, key := range []string{signing.HeaderDate, signing.HeaderRequestID, signing.HeaderAuthorization, "X-Flex-Client-Time"} {
		if h[key] == "" {
			t.Fatalf("missing signature header %s", key)
		}
	}
	if !strings.Contains(h[signing.HeaderAuthorization], "Credential=test-cred") {
		t.Fatalf("authorization header missing credential: %q", h[signing.HeaderAuthorization])
	}
}
