package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/loopauth/backend/internal/config"
)

// Verifier is the human-verification oracle: it answers whether a client
// captcha token represents a solved challenge.
type Verifier interface {
	Verify(ctx context.Context, clientToken string) (bool, error)
}

// Client verifies reCAPTCHA tokens against the provider's siteverify
// endpoint. When disabled by config it accepts every token, which keeps
// local environments usable without provider keys.
type Client struct {
	config     config.CaptchaConfig
	httpClient *http.Client
}

func NewClient(cfg config.CaptchaConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (c *Client) Verify(ctx context.Context, clientToken string) (bool, error) {
	if !c.config.Enabled {
		return true, nil
	}

	if clientToken == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", c.config.Secret)
	form.Set("response", clientToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, errors.Wrap(err, "create siteverify request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "siteverify request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, errors.Errorf("siteverify unexpected status code: %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, errors.Wrap(err, "decode siteverify response")
	}

	return body.Success, nil
}
