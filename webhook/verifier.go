package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Verification errors
var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrInvalidSignature = errors.New("signature verification failed")
	ErrStaleTimestamp   = errors.New("signature timestamp outside tolerance")
)

// DefaultSignatureHeader is the header carrying the payload signature.
var DefaultSignatureHeader = "X-Webhook-Signature"

// DefaultTolerance is the allowed clock skew between the signature
// timestamp and the receiver's clock.
var DefaultTolerance = 5 * time.Minute

// Verifier authenticates an inbound webhook request before its body is
// decoded into an event.
type Verifier interface {
	// Verify checks the request headers against the raw body.
	// A nil return means the payload is authentic.
	Verify(header http.Header, body []byte) error
}

// HMACVerifier verifies timestamped HMAC-SHA256 signatures in the
// scheme "t=<unix>,v1=<hex>". The signed string is "<unix>.<body>".
// Multiple v1 entries are accepted (secret rotation); the timestamp is
// checked against a replay tolerance window.
type HMACVerifier struct {
	secret    []byte
	header    string
	tolerance time.Duration
	now       func() time.Time
}

// VerifierOption configures an HMACVerifier
type VerifierOption func(*HMACVerifier)

// WithSignatureHeader overrides the signature header name
func WithSignatureHeader(name string) VerifierOption {
	return func(v *HMACVerifier) {
		if name != "" {
			v.header = name
		}
	}
}

// WithTolerance overrides the replay tolerance window.
// Zero disables the timestamp check.
func WithTolerance(d time.Duration) VerifierOption {
	return func(v *HMACVerifier) {
		v.tolerance = d
	}
}

// WithClock overrides the clock, for tests
func WithClock(now func() time.Time) VerifierOption {
	return func(v *HMACVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewHMACVerifier creates a verifier for a shared signing secret.
func NewHMACVerifier(secret string, opts ...VerifierOption) *HMACVerifier {
	v := &HMACVerifier{
		secret:    []byte(secret),
		header:    DefaultSignatureHeader,
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify implements Verifier.
func (v *HMACVerifier) Verify(header http.Header, body []byte) error {
	raw := header.Get(v.header)
	if raw == "" {
		return ErrMissingSignature
	}

	var ts int64 = -1
	var candidates []string
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp %q", ErrInvalidSignature, value)
			}
			ts = n
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if ts < 0 || len(candidates) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(ts, 0))
		if age > v.tolerance || age < -v.tolerance {
			return ErrStaleTimestamp
		}
	}

	expected := v.signature(ts, body)
	for _, candidate := range candidates {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign produces a signature header value for a body at the given time.
// Senders and tests use this to produce payloads Verify accepts.
func (v *HMACVerifier) Sign(at time.Time, body []byte) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(v.signature(ts, body)))
}

func (v *HMACVerifier) signature(ts int64, body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return mac.Sum(nil)
}

// Compile-time check
var _ Verifier = (*HMACVerifier)(nil)
