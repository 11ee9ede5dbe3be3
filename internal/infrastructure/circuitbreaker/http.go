package circuitbreaker

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPClientSettings configures a breaker-wrapped HTTP client.
type HTTPClientSettings struct {
	Settings
	RequestTimeout time.Duration
}

// DefaultHTTPClientSettings returns settings suitable for third-party
// provider APIs: open after 5 straight failures, 60s cooldown, close
// after 2 good probes.
func DefaultHTTPClientSettings(name string) HTTPClientSettings {
	return HTTPClientSettings{
		Settings: Settings{
			Name:             name,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Cooldown:         60 * time.Second,
			MaxProbes:        3,
		},
		RequestTimeout: 30 * time.Second,
	}
}

// HTTPClient wraps http.Client with a circuit breaker. Responses with
// a 5xx status count as failures; 4xx responses do not, since they
// indicate a caller problem rather than provider health.
type HTTPClient struct {
	client  *http.Client
	breaker *Breaker
	log     *zap.Logger
}

// NewHTTPClientWithSettings builds an HTTPClient from explicit settings.
func NewHTTPClientWithSettings(settings HTTPClientSettings, log *zap.Logger) *HTTPClient {
	settings.Settings.OnStateChange = func(name string, from, to State) {
		log.Warn("Circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &HTTPClient{
		client:  &http.Client{Timeout: settings.RequestTimeout},
		breaker: New(settings.Settings),
		log:     log,
	}
}

// Do executes the request through the breaker.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("%s: %w", c.breaker.Name(), err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.Failure()
		return nil, err
	}

	if resp.StatusCode >= 500 {
		c.breaker.Failure()
	} else {
		c.breaker.Success()
	}
	return resp, nil
}
