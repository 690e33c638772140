// internal/domain/payment/session_store.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

// Session ties a gateway intent to the cart snapshot it was priced from
type Session struct {
	ID             string                `json:"id"`
	Gateway        string                `json:"gateway"`
	GatewayOrderID string                `json:"gateway_order_id"`
	UserID         *uint                 `json:"user_id,omitempty"`
	GuestSessionID string                `json:"guest_session_id,omitempty"`
	Items          []order.ItemInput     `json:"items"`
	Shipping       order.ShippingDetails `json:"shipping"`
	Totals         order.Totals          `json:"totals"`
	AmountMinor    int64                 `json:"amount_minor"`
	Currency       string                `json:"currency"`
	CreatedAt      time.Time             `json:"created_at"`
}

// SessionStore keeps checkout sessions in Redis with a TTL
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore creates a Redis-backed checkout session store
func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "checkout:" + id }

func gatewayIndexKey(gwOrderID string) string { return "checkout:gw:" + gwOrderID }

func lockKey(paymentID string) string { return "checkout:lock:" + paymentID }

// Save stores the session and its gateway order index
func (s *SessionStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode checkout session: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.ID), data, s.ttl)
		pipe.Set(ctx, gatewayIndexKey(session.GatewayOrderID), session.ID, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

// Get loads a session by its id
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &session, nil
}

// GetByGatewayOrder loads a session through the gateway order id index
func (s *SessionStore) GetByGatewayOrder(ctx context.Context, gatewayOrderID string) (*Session, error) {
	id, err := s.rdb.Get(ctx, gatewayIndexKey(gatewayOrderID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve checkout session: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a completed session
func (s *SessionStore) Delete(ctx context.Context, session *Session) error {
	return s.rdb.Del(ctx, sessionKey(session.ID), gatewayIndexKey(session.GatewayOrderID)).Err()
}

// TryLock claims a payment id so only one verify call reconciles it
func (s *SessionStore) TryLock(ctx context.Context, paymentID string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(paymentID), "1", ttl).Result()
}

// Unlock releases a payment id claim
func (s *SessionStore) Unlock(ctx context.Context, paymentID string) error {
	return s.rdb.Del(ctx, lockKey(paymentID)).Err()
}
