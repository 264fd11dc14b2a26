package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Provider is the narrow capability exposed by the remote identity
// provider. Every operation is a single remote call; no retries and no
// local state.
type Provider interface {
	// Verify checks an access token and returns the identity it
	// belongs to. The token is treated as opaque; only the provider's
	// verdict counts.
	Verify(ctx context.Context, token string) (*Identity, error)

	// SignUp creates a new identity.
	SignUp(ctx context.Context, email, password, name string) (*Identity, error)

	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignOut revokes the session behind the access token.
	SignOut(ctx context.Context, token string) error

	// Refresh exchanges a refresh token for a new session. Stateless
	// from this layer's perspective.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)

	// SendPasswordReset asks the provider to start a password reset.
	SendPasswordReset(ctx context.Context, email string) error

	// UpdatePassword sets a new password for the token's identity.
	UpdatePassword(ctx context.Context, token, password string) error

	// ResendVerification asks the provider to resend the verification
	// message for the address.
	ResendVerification(ctx context.Context, email string) error
}

// HTTPConfig holds configuration for the HTTP identity provider client.
type HTTPConfig struct {
	// BaseURL is the provider's API root.
	BaseURL string

	// APIKey is sent as the provider's service key header.
	APIKey string

	// Timeout bounds each provider call.
	Timeout time.Duration

	// BreakerThreshold is the request count before the failure ratio
	// can trip the breaker.
	BreakerThreshold int

	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration

	// Logger for provider events.
	Logger *zap.Logger
}

// DefaultHTTPConfig returns an HTTPConfig with default values.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Timeout:          10 * time.Second,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// HTTPProvider implements Provider over the identity provider's JSON
// API. Transport and server failures feed a circuit breaker; credential
// rejections do not.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewHTTPProvider creates a new HTTP identity provider client.
func NewHTTPProvider(config *HTTPConfig) *HTTPProvider {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	threshold := uint32(config.BreakerThreshold)

	settings := gobreaker.Settings{
		Name:    "identity-provider",
		Timeout: config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &HTTPProvider{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Verify implements Provider.
func (p *HTTPProvider) Verify(ctx context.Context, token string) (*Identity, error) {
	var identity Identity
	if err := p.call(ctx, http.MethodGet, "/user", token, nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// SignUp implements Provider.
func (p *HTTPProvider) SignUp(ctx context.Context, email, password, name string) (*Identity, error) {
	body := map[string]string{"email": email, "password": password}
	if name != "" {
		body["name"] = name
	}

	var identity Identity
	if err := p.call(ctx, http.MethodPost, "/signup", "", body, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// SignIn implements Provider.
func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var session Session
	if err := p.call(ctx, http.MethodPost, "/token?grant_type=password", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut implements Provider.
func (p *HTTPProvider) SignOut(ctx context.Context, token string) error {
	return p.call(ctx, http.MethodPost, "/logout", token, nil, nil)
}

// Refresh implements Provider.
func (p *HTTPProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var session Session
	if err := p.call(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SendPasswordReset implements Provider.
func (p *HTTPProvider) SendPasswordReset(ctx context.Context, email string) error {
	return p.call(ctx, http.MethodPost, "/recover", "", map[string]string{"email": email}, nil)
}

// UpdatePassword implements Provider.
func (p *HTTPProvider) UpdatePassword(ctx context.Context, token, password string) error {
	return p.call(ctx, http.MethodPut, "/user", token, map[string]string{"password": password}, nil)
}

// ResendVerification implements Provider.
func (p *HTTPProvider) ResendVerification(ctx context.Context, email string) error {
	return p.call(ctx, http.MethodPost, "/resend", "", map[string]string{"email": email}, nil)
}

// providerResponse carries the status and body of a provider call out
// of the circuit breaker.
type providerResponse struct {
	status int
	body   []byte
}

// call performs one provider request. Transport errors and 5xx
// responses count as breaker failures; 4xx rejections pass through as
// ProviderError without tripping the breaker.
func (p *HTTPProvider) call(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode provider request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("identity provider unreachable: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read provider response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return nil, &ProviderError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		}

		return &providerResponse{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return err
	}

	resp := result.(*providerResponse)
	if resp.status >= 400 {
		return &ProviderError{StatusCode: resp.status, Message: errorMessage(resp.body)}
	}

	if out != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}

	return nil
}

// errorMessage extracts the provider's error description from a
// response body, falling back to the raw text.
func errorMessage(data []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if len(data) > 256 {
		data = data[:256]
	}
	return string(data)
}
