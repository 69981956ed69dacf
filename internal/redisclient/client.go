package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"estate-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireUnitHold takes a short-lived hold on a unit before the booking
// transaction starts. A hold is a fast-fail hint only; the database row
// lock remains the source of truth.
func (c *Client) AcquireUnitHold(ctx context.Context, unitID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("hold:unit:%d", unitID), "1", ttl).Result()
}

// ReleaseUnitHold releases a unit hold
func (c *Client) ReleaseUnitHold(ctx context.Context, unitID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("hold:unit:%d", unitID)).Err()
}

// MarkUnitBooked records a booked-status hint for a unit
func (c *Client) MarkUnitBooked(ctx context.Context, unitID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("unit:status:%d", unitID), models.UnitStatusBooked, ttl).Err()
}

// GetUnitStatusHint returns the cached unit status, or "" when unknown
func (c *Client) GetUnitStatusHint(ctx context.Context, unitID int64) (string, error) {
	status, err := c.rdb.Get(ctx, fmt.Sprintf("unit:status:%d", unitID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return status, err
}

func summaryKey(userID, propertyID int64) string {
	return fmt.Sprintf("summary:%d:%d", userID, propertyID)
}

// CachePaymentSummary stores a computed summary with TTL
func (c *Client) CachePaymentSummary(ctx context.Context, userID, propertyID int64, summary *models.PaymentSummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal payment summary: %w", err)
	}
	return c.rdb.Set(ctx, summaryKey(userID, propertyID), data, ttl).Err()
}

// GetCachedPaymentSummary retrieves a cached summary; (nil, nil) on miss
func (c *Client) GetCachedPaymentSummary(ctx context.Context, userID, propertyID int64) (*models.PaymentSummary, error) {
	data, err := c.rdb.Get(ctx, summaryKey(userID, propertyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary models.PaymentSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}
	return &summary, nil
}

// InvalidatePaymentSummary drops the cached summary for a user+property pair
func (c *Client) InvalidatePaymentSummary(ctx context.Context, userID, propertyID int64) error {
	return c.rdb.Del(ctx, summaryKey(userID, propertyID)).Err()
}
