// Package recaptcha implements the bot-verification oracle: a token from
// the browser widget is exchanged for a pass/fail plus trust score before a
// deploy request is admitted.
package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is Google's siteverify API.
	DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

	requestTimeout = 10 * time.Second
)

// Verifier checks verification tokens against the siteverify endpoint.
// With an empty secret it passes everything with a zero score, so local
// development does not need widget keys.
type Verifier struct {
	logger   *slog.Logger
	client   *http.Client
	endpoint string
	secret   string
}

// New creates a verifier. endpoint falls back to DefaultEndpoint.
func New(logger *slog.Logger, endpoint, secret string) *Verifier {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Verifier{
		logger:   logger,
		client:   &http.Client{Timeout: requestTimeout},
		endpoint: endpoint,
		secret:   secret,
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify exchanges the token for a trust score. A rejected token returns a
// VerificationError; transport failures return ordinary errors.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (float64, error) {
	if v.secret == "" {
		v.logger.DebugContext(ctx, "no verification secret configured, passing request")

		return 0, nil
	}

	if token == "" {
		return 0, &VerificationError{Codes: []string{"missing-input-response"}}
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		v.endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return 0, fmt.Errorf("build siteverify request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("siteverify status %d", resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode siteverify response: %w", err)
	}

	if !result.Success {
		return 0, &VerificationError{Codes: result.ErrorCodes}
	}

	return result.Score, nil
}
