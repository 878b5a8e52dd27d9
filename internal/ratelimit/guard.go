// internal/ratelimit/guard.go
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const failureKeyPrefix = "tcoin:redeem:failures:"

// RedemptionGuard counts failed voucher redemptions per user in Redis and
// blocks a user once the count reaches the limit within the window. The count
// only decays by expiry; a successful redemption does not clear it. Redis
// faults fail open: the attempt is allowed and the fault is logged.
type RedemptionGuard struct {
	redis       redis.Cmdable
	maxFailures int64
	window      time.Duration
	logger      *logrus.Logger
}

// NewRedemptionGuard creates a guard over an existing client.
func NewRedemptionGuard(client redis.Cmdable, maxFailures int64, window time.Duration, logger *logrus.Logger) *RedemptionGuard {
	return &RedemptionGuard{
		redis:       client,
		maxFailures: maxFailures,
		window:      window,
		logger:      logger,
	}
}

func failureKey(userID int64) string {
	return failureKeyPrefix + strconv.FormatInt(userID, 10)
}

// Allow reports whether the user may attempt another redemption.
func (g *RedemptionGuard) Allow(ctx context.Context, userID int64) bool {
	n, err := g.redis.Get(ctx, failureKey(userID)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			g.logger.WithError(err).WithField("user_id", userID).Warn("Redemption guard unavailable, allowing attempt")
		}
		return true
	}
	return n < g.maxFailures
}

// RecordFailure counts one failed attempt. The window starts at the first
// failure: INCR and EXPIRE NX run in one MULTI so the key always carries a TTL.
// EXPIRE NX needs Redis 7.
func (g *RedemptionGuard) RecordFailure(ctx context.Context, userID int64) {
	key := failureKey(userID)
	var incr *redis.IntCmd
	_, err := g.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, g.window)
		return nil
	})
	if err != nil {
		g.logger.WithError(err).WithField("user_id", userID).Warn("Failed to record redemption failure")
		return
	}
	if n := incr.Val(); n == g.maxFailures {
		g.logger.WithFields(logrus.Fields{
			"user_id":        userID,
			"security_event": "voucher_bruteforce",
		}).Warn("User blocked from voucher redemption")
	}
}

// NopGuard allows every attempt. It is used when no Redis address is configured.
type NopGuard struct{}

func (NopGuard) Allow(context.Context, int64) bool   { return true }
func (NopGuard) RecordFailure(context.Context, int64) {}
