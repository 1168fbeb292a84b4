package sheets

import (
	"context"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond keeps well under the Sheets API per-user quota of
// 60 requests a minute.
const DefaultRequestsPerSecond = 0.9

type throttledClient struct {
	client  Client
	limiter *rate.Limiter
}

// Throttle returns a client that waits for the rate limiter before every
// call to the wrapped client.
func Throttle(client Client, perSecond float64, burst int) Client {
	if burst < 1 {
		burst = 1
	}
	return &throttledClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (c *throttledClient) Values(ctx context.Context, rng string) ([][]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.Values(ctx, rng)
}

func (c *throttledClient) Append(ctx context.Context, rng string, rows [][]string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.client.Append(ctx, rng, rows)
}
