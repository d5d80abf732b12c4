package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loopauth/backend/internal/config"
	"github.com/loopauth/backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

type endpoints struct {
	authURL     string
	tokenURL    string
	userInfoURL string
	scope       string
}

var providerEndpoints = map[string]endpoints{
	ProviderGoogle: {
		authURL:     "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL:    "https://oauth2.googleapis.com/token",
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		scope:       "openid email profile",
	},
	ProviderFacebook: {
		authURL:     "https://www.facebook.com/v19.0/dialog/oauth",
		tokenURL:    "https://graph.facebook.com/v19.0/oauth/access_token",
		userInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		scope:       "email public_profile",
	},
}

type Client struct {
	config     config.OAuthConfig
	httpClient *http.Client
}

func NewClient(cfg config.OAuthConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) credentials(provider string) (config.OAuthProvider, endpoints, error) {
	ep, ok := providerEndpoints[provider]
	if !ok {
		return config.OAuthProvider{}, endpoints{}, ErrUnknownProvider
	}

	switch provider {
	case ProviderGoogle:
		return c.config.Google, ep, nil
	case ProviderFacebook:
		return c.config.Facebook, ep, nil
	}

	return config.OAuthProvider{}, endpoints{}, ErrUnknownProvider
}

func (c *Client) redirectURI(provider string) string {
	return fmt.Sprintf("%s/%s/callback", c.config.RedirectBase, provider)
}

// AuthorizationURL returns the provider URL the user is redirected to.
func (c *Client) AuthorizationURL(provider, state string) (string, error) {
	creds, ep, err := c.credentials(provider)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Add("client_id", creds.ClientID)
	params.Add("redirect_uri", c.redirectURI(provider))
	params.Add("response_type", "code")
	params.Add("state", state)
	params.Add("scope", ep.scope)

	return fmt.Sprintf("%s?%s", ep.authURL, params.Encode()), nil
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token,omitempty"`
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, provider, code string) (*TokenResponse, error) {
	creds, ep, err := c.credentials(provider)
	if err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", creds.ClientID)
	data.Set("client_secret", creds.ClientSecret)
	data.Set("redirect_uri", c.redirectURI(provider))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logger.Debug("exchanging oauth code for token", zap.String("provider", provider))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &tokenResp, nil
}

// Profile is the subset of the provider user-info payload the sign-in flow
// needs.
type Profile struct {
	Subject string `json:"sub"`
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// FetchProfile loads the signed-in user's profile with the access token.
func (c *Client) FetchProfile(ctx context.Context, provider, accessToken string) (*Profile, error) {
	_, ep, err := c.credentials(provider)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// facebook reports the stable id under "id" instead of "sub"
	if profile.Subject == "" {
		profile.Subject = profile.ID
	}

	return &profile, nil
}
