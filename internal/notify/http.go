package notify

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender performs one delivery attempt for a batch.
type Sender interface {
	// Send delivers the batch. Returns an error on any transport failure,
	// timeout, or non-200 response. Never retries.
	Send(batch *Batch) error
}

// HTTPSender posts signed batch notifications to the alert endpoint.
type HTTPSender struct {
	url    string
	secret string
	client *http.Client
}

// NewHTTPSender creates a sender for the given endpoint. The timeout
// bounds the whole request; there is no other cancellation path.
func NewHTTPSender(url, secret string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Send serializes, signs, and posts the batch. Success is HTTP 200 only.
func (s *HTTPSender) Send(batch *Batch) error {
	body, err := BuildPayload(batch).MarshalCanonical()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(body, s.secret))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}
