package redis

import (
	"context"
	"strconv"
	"time"
)

// RateLimiter counts requests per key in clock-aligned windows; each window
// has its own counter key.
type RateLimiter struct {
	client RedisClient
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(client RedisClient, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow reports whether one more request under key fits in the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := r.now().UnixNano() / int64(r.window)
	counter := key + ":" + strconv.FormatInt(bucket, 10)

	// The counter outlives its window by one more so replicas with skewed clocks share it.
	n, err := r.client.IncrWithTTL(ctx, counter, 2*r.window)
	if err != nil {
		return false, err
	}
	return n <= int64(r.limit), nil
}

// UploadKey scopes upload counters to one client address.
func UploadKey(clientIP string) string {
	return "rbs:rl:upload:" + clientIP
}
