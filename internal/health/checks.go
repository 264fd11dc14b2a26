package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// PostgresCheck verifies the task store's connection pool.
func PostgresCheck(pool *pgxpool.Pool) Check {
	return NewCheckFunc("postgres", func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
		return nil
	})
}

// RedisCheck verifies the rate limit store's redis connection.
func RedisCheck(client redis.UniversalClient) Check {
	return NewCheckFunc("redis", func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	})
}

// ProviderCheck verifies the identity provider answers HTTP requests at
// its health endpoint.
func ProviderCheck(baseURL string, client *http.Client) Check {
	if client == nil {
		client = http.DefaultClient
	}
	return NewCheckFunc("identity-provider", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			return fmt.Errorf("failed to build provider health request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("identity provider unreachable: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("identity provider unhealthy: status %d", resp.StatusCode)
		}
		return nil
	})
}
