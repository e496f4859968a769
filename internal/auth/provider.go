package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/models"
)

// ProviderError is a rejection reported by the identity provider.
// Message is already suitable for end users.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// ProviderClient talks to a GoTrue-compatible identity REST API.
type ProviderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewProviderClient(cfg config.AuthConfig) *ProviderClient {
	timeout := config.Seconds(cfg.TimeoutSeconds)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProviderClient{
		baseURL:    strings.TrimRight(cfg.ProviderURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type providerUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

func (u *providerUser) toModel() *models.User {
	if u == nil || u.ID == "" {
		return nil
	}
	return &models.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.UserMetadata.FullName,
		CreatedAt: u.CreatedAt,
	}
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	User         *providerUser `json:"user"`
}

func (r *tokenResponse) toModel() *models.AuthTokens {
	return &models.AuthTokens{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
		User:         r.User.toModel(),
	}
}

func (c *ProviderClient) SignIn(ctx context.Context, email, password string) (*models.AuthTokens, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

func (c *ProviderClient) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	var resp tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.post(ctx, "/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// SignUp registers a user. Without auto-confirmation the provider answers
// with the bare user and no tokens.
func (c *ProviderClient) SignUp(ctx context.Context, email, password, fullName string) (*models.AuthTokens, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}
	var raw json.RawMessage
	if err := c.post(ctx, "/signup", "", body, &raw); err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode signup response: %w", err)
	}
	if resp.AccessToken == "" && resp.User == nil {
		var user providerUser
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("failed to decode signup user: %w", err)
		}
		resp.User = &user
	}
	return resp.toModel(), nil
}

func (c *ProviderClient) SignOut(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/logout", accessToken, nil, nil)
}

func (c *ProviderClient) post(ctx context.Context, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req, out)
}

func (c *ProviderClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &ProviderError{Status: resp.StatusCode, Message: errorMessage(resp)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func errorMessage(resp *http.Response) string {
	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		for _, m := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("identity provider returned http %d", resp.StatusCode)
}
