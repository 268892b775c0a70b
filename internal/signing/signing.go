package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestSigner produces the signature header set for one outbound
// request from the destination URL and the caller's access token. The
// signature scheme itself is opaque to the rest of the system.
type RequestSigner interface {
	SignRequest(url, accessToken string) (map[string]string, error)
}

// HeaderDate, HeaderRequestID and HeaderAuthorization are the header
// names every signer implementation must populate.
const (
	HeaderDate          = "X-Amz-Date"
	HeaderRequestID     = "X-Amzn-RequestId"
	HeaderAuthorization = "Authorization"
)

const amzDateFormat = "20060102T150405Z"

// HMACSigner signs requests with HMAC-SHA256 over the request date,
// request id, URL and token.
type HMACSigner struct {
	credential string
	secret     []byte
	now        func() time.Time
}

func NewHMACSigner(credential, secret string) (*HMACSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret required")
	}
	if credential == "" {
		credential = "flex-client"
	}
	return &HMACSigner{
		credential: credential,
		secret:     []byte(secret),
		now:        time.Now,
	}, nil
}

func (s *HMACSigner) SignRequest(url, accessToken string) (map[string]string, error) {
	if url == "" {
		return nil, fmt.Errorf("sign request: url required")
	}
	date := s.now().UTC().Format(amzDateFormat)
	requestID := uuid.NewString()

	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%s\n%s", date, requestID, url, accessToken)
	signature := hex.EncodeToString(mac.Sum(nil))

	return map[string]string{
		HeaderDate:          date,
		HeaderRequestID:     requestID,
		HeaderAuthorization: fmt.Sprintf("FlexSignature Credential=%s, Signature=%s", s.credential, signature),
	}, nil
}
