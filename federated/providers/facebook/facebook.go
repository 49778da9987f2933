package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goliatone/go-sessions/federated"
)

const defaultGraphURL = "https://graph.facebook.com"

// Config holds Facebook Graph API configuration.
type Config struct {
	AppID     string
	AppSecret string

	// GraphURL overrides the API base, mainly for tests.
	GraphURL string

	HTTPClient *http.Client
}

// Provider implements federated.Provider against the Facebook Graph API.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ federated.Provider = (*Provider)(nil)

// New creates a new Facebook provider.
func New(cfg Config) *Provider {
	if cfg.GraphURL == "" {
		cfg.GraphURL = defaultGraphURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements federated.Provider.
func (p *Provider) Name() string {
	return "facebook"
}

// VerifyToken implements federated.Provider. The debug_token call is
// authenticated with the app's own id|secret pair so a forged
// client-supplied token cannot vouch for itself.
func (p *Provider) VerifyToken(ctx context.Context, accessToken string) error {
	appToken := p.config.AppID + "|" + p.config.AppSecret

	q := url.Values{}
	q.Set("input_token", accessToken)
	q.Set("access_token", appToken)

	endpoint := fmt.Sprintf("%s/debug_token?%s", p.config.GraphURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &federated.ProviderError{Provider: p.Name(), Operation: "verify", Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &federated.ProviderError{Provider: p.Name(), Operation: "verify", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &federated.ProviderError{Provider: p.Name(), Operation: "verify", Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &federated.ProviderError{
			Provider:    p.Name(),
			Operation:   "verify",
			Status:      resp.StatusCode,
			Description: "token introspection rejected",
			Rejected:    resp.StatusCode < http.StatusInternalServerError,
		}
	}

	var introspection debugTokenResponse
	if err := json.Unmarshal(body, &introspection); err != nil {
		return &federated.ProviderError{Provider: p.Name(), Operation: "verify", Status: resp.StatusCode, Err: err}
	}

	if !introspection.Data.IsValid {
		return &federated.ProviderError{
			Provider:    p.Name(),
			Operation:   "verify",
			Status:      resp.StatusCode,
			Description: "token reported invalid",
			Rejected:    true,
		}
	}

	return nil
}

// FetchProfile implements federated.Provider.
func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*federated.Profile, error) {
	q := url.Values{}
	q.Set("access_token", accessToken)
	q.Set("fields", "id,name,email,picture.width(100).height(100)")

	endpoint := fmt.Sprintf("%s/me?%s", p.config.GraphURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &federated.ProviderError{Provider: p.Name(), Operation: "profile", Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &federated.ProviderError{Provider: p.Name(), Operation: "profile", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &federated.ProviderError{Provider: p.Name(), Operation: "profile", Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &federated.ProviderError{
			Provider:    p.Name(),
			Operation:   "profile",
			Status:      resp.StatusCode,
			Description: "profile request rejected",
			Rejected:    resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
		}
	}

	var payload profileResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &federated.ProviderError{Provider: p.Name(), Operation: "profile", Status: resp.StatusCode, Err: err}
	}

	return &federated.Profile{
		ProviderUserID: payload.ID,
		Provider:       p.Name(),
		Email:          payload.Email,
		Name:           payload.Name,
		AvatarURL:      payload.Picture.Data.URL,
	}, nil
}

type debugTokenResponse struct {
	Data struct {
		AppID   string `json:"app_id"`
		IsValid bool   `json:"is_valid"`
		UserID  string `json:"user_id"`
	} `json:"data"`
}

type profileResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}
