package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"verba/internal/domain"
	"verba/internal/ports"
)

// SubscriptionCache keeps the last known subscription status per user so the
// UI has an answer before the billing collaborator is consulted.
type SubscriptionCache struct {
	blobs  ports.BlobStore
	logger *zap.Logger
}

func NewSubscriptionCache(blobs ports.BlobStore, logger *zap.Logger) *SubscriptionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionCache{blobs: blobs, logger: logger}
}

func subscriptionKey(userID string) string {
	return "subscription_" + userID
}

// Get returns the cached status. A missing or corrupt entry reads as not
// found.
func (c *SubscriptionCache) Get(ctx context.Context, userID string) (domain.SubscriptionStatus, bool, error) {
	payload, found, err := c.blobs.Get(ctx, subscriptionKey(userID))
	if err != nil || !found {
		return domain.SubscriptionStatus{}, false, err
	}

	var status domain.SubscriptionStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		c.logger.Warn("discarding corrupt subscription cache",
			zap.String("user_id", userID), zap.Error(err))
		return domain.SubscriptionStatus{}, false, nil
	}
	return status, true, nil
}

func (c *SubscriptionCache) Put(ctx context.Context, userID string, status domain.SubscriptionStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode subscription status: %w", err)
	}
	return c.blobs.Put(ctx, subscriptionKey(userID), payload)
}

func (c *SubscriptionCache) Invalidate(ctx context.Context, userID string) error {
	return c.blobs.Delete(ctx, subscriptionKey(userID))
}
