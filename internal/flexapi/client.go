package flexapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Service endpoints and the coral envelope type the accept call wraps
// its payload in.
const (
	DefaultBaseURL  = "https://flex-capacity-na.amazon.com"
	offersPath      = "/GetOffersForProviderPost"
	acceptPath      = "/AcceptOffer"
	acceptInputType = "AcceptOfferInput:http://internal.amazon.com/coral/com.amazon.omwbuseyservice.offers/"
)

// OffersResponse is the outcome of one fetch call. A non-success
// StatusCode carries an empty OfferList; an absent or empty offerList
// on success is not an error.
type OffersResponse struct {
	StatusCode int
	OfferList  []json.RawMessage
}

// Client is the remote offer service boundary. Implementations carry no
// retry logic; backoff decisions belong to the session controller's
// caller.
type Client interface {
	GetOffers(ctx context.Context, serviceAreaHeader string, headers map[string]string) (OffersResponse, error)
	AcceptOffer(ctx context.Context, offerID string, headers map[string]string) (int, error)
	OffersURL() string
}

type HTTPClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		timeout: timeout,
	}
}

func (c *HTTPClient) OffersURL() string {
	return c.baseURL + offersPath
}

// GetOffers posts the user's service-area header blob to the offers
// endpoint and decodes the offerList array on success.
func (c *HTTPClient) GetOffers(ctx context.Context, serviceAreaHeader string, headers map[string]string) (OffersResponse, error) {
	status, body, err := c.post(ctx, c.OffersURL(), []byte(serviceAreaHeader), headers)
	if err != nil {
		return OffersResponse{}, err
	}
	out := OffersResponse{StatusCode: status}
	if status < 200 || status >= 300 {
		return out, nil
	}
	var decoded struct {
		OfferList []json.RawMessage `json:"offerList"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return out, fmt.Errorf("decode offers response: %w", err)
	}
	out.OfferList = decoded.OfferList
	return out, nil
}

// AcceptOffer claims one offer by id. Only the status code matters to
// callers.
func (c *HTTPClient) AcceptOffer(ctx context.Context, offerID string, headers map[string]string) (int, error) {
	payload, err := json.Marshal(map[string]string{
		"__type":  acceptInputType,
		"offerId": offerID,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal accept payload: %w", err)
	}
	status, _, err := c.post(ctx, c.baseURL+acceptPath, payload, headers)
	return status, err
}

func (c *HTTPClient) post(ctx context.Context, url string, body []byte, headers map[string]string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response %s: %w", url, err)
	}
	return resp.StatusCode, respBody, nil
}
