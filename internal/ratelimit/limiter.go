// Package ratelimit は Redis のソート済みセットを使ったスライディングウィンドウ方式のレート制限を提供します。
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// Rule は 1 ルート分の制限設定です。
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	// LoginRule は /login の制限です。
	LoginRule = Rule{Name: "login", Limit: 10, Window: 600 * time.Second}
	// RegisterRule は /register の制限です。
	RegisterRule = Rule{Name: "register", Limit: 5, Window: 600 * time.Second}
	// LogoutRule は /logout の制限です。ユーザー単位で数えます。
	LogoutRule = Rule{Name: "logout", Limit: 30, Window: 60 * time.Second}
)

// Result は 1 回の判定結果です。
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter はリクエスト回数を Redis に記録して判定します。
type Limiter struct {
	rdb *redis.Client
	now func() time.Time
}

// NewLimiter は Redis クライアントを使う Limiter を作成します。
func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, now: time.Now}
}

// Allow は key に対するリクエストを 1 件記録し、制限内かどうかを返します。
// 拒否したリクエストはウィンドウに残しません。
func (l *Limiter) Allow(ctx context.Context, rule Rule, key string) (Result, error) {
	if l == nil || l.rdb == nil {
		return Result{}, errors.New("ratelimit: redis client is nil")
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Result{}, fmt.Errorf("ratelimit: invalid rule %q", rule.Name)
	}

	now := l.now()
	nowMs := now.UnixMilli()
	windowStart := nowMs - rule.Window.Milliseconds()
	redisKey := keyPrefix + rule.Name + ":" + key
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowMs), Member: member})
		card = pipe.ZCard(ctx, redisKey)
		oldest = pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
		pipe.PExpire(ctx, redisKey, rule.Window)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis error: %w", err)
	}

	count := int(card.Val())
	resetAt := now.Add(rule.Window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMilli(int64(zs[0].Score)).Add(rule.Window)
	}

	if count > rule.Limit {
		if err := l.rdb.ZRem(ctx, redisKey, member).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit: redis error: %w", err)
		}
		return Result{Allowed: false, Limit: rule.Limit, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     rule.Limit,
		Remaining: rule.Limit - count,
		ResetAt:   resetAt,
	}, nil
}
