package headers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nestorcolt/blockcatcher/internal/signing"
)

// TokenHeader carries the user's access token on every call to the
// offer service.
const TokenHeader = "x-amz-access-token"

const instanceIDHeader = "x-flex-instance-id"
const clientTimeHeader = "X-Flex-Client-Time"

// Fixed device constants embedded in the synthetic User-Agent. The
// remote service fingerprints clients on these, so they must track a
// real released app build.
const (
	appVersion     = "3.51.3.3.0"
	androidVersion = "11"
	deviceModel    = "Pixel 4a"
	deviceBuild    = "RQ3A.211001.001"
)

// Synthesizer builds the outbound request header set. It is stateless:
// every call produces a fresh device-instance id, and when a signer is
// configured, fresh signature headers. Reusing a header set across
// calls would replay the instance id, which the service rejects.
type Synthesizer struct {
	signer signing.RequestSigner
	now    func() int64
}

func New(signer signing.RequestSigner) *Synthesizer {
	return &Synthesizer{
		signer: signer,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Synthesize returns the header set for one call to url authenticated
// by token.
func (s *Synthesizer) Synthesize(token, url string) (map[string]string, error) {
	h := map[string]string{
		TokenHeader:       token,
		instanceIDHeader:  uuid.NewString(),
		"User-Agent":      fmt.Sprintf("Dalvik/2.1.0 (Linux; U; Android %s; %s Build/%s) RabbitAndroid/%s", androidVersion, deviceModel, deviceBuild, appVersion),
		"Connection":      "Keep-Alive",
		"Accept-Encoding": "gzip",
	}
	if s.signer != nil {
		signed, err := s.signer.SignRequest(url, token)
		if err != nil {
			return nil, fmt.Errorf("sign request headers: %w", err)
		}
		for k, v := range signed {
			h[k] = v
		}
		h[clientTimeHeader] = strconv.FormatInt(s.now(), 10)
	}
	return h, nil
}
