package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPProvider fetches scores from GET {baseURL}/instructors/{id}/trust-score.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type scoreResponse struct {
	Score *int `json:"score"`
}

// NewHTTPProvider creates a new governance service client
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// TrustScore fetches the instructor's score from the governance service.
func (p *HTTPProvider) TrustScore(ctx context.Context, instructorID string) (int, error) {
	endpoint := fmt.Sprintf("%s/instructors/%s/trust-score", p.baseURL, url.PathEscape(instructorID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build trust request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("trust request for %s: %w", instructorID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("trust service returned %d for %s", resp.StatusCode, instructorID)
	}

	var body scoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode trust response: %w", err)
	}
	if body.Score == nil {
		return 0, fmt.Errorf("trust response for %s has no score", instructorID)
	}
	if err := validateScore(*body.Score); err != nil {
		return 0, err
	}
	return *body.Score, nil
}
