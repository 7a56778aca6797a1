package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activityKeyPrefix = "activity:"
)

// ActivityStore はユーザーごとの直近の認証イベントを Redis に保存します。
type ActivityStore struct {
	rdb       *redis.Client
	ttl       time.Duration
	maxEvents int
}

// NewActivityStore は ActivityStore を作成します。
func NewActivityStore(rdb *redis.Client, ttl time.Duration, maxEvents int) *ActivityStore {
	if maxEvents <= 0 {
		maxEvents = 50
	}
	return &ActivityStore{
		rdb:       rdb,
		ttl:       ttl,
		maxEvents: maxEvents,
	}
}

// Append はイベントを先頭に追加し、上限件数と保持期間を適用します。
func (s *ActivityStore) Append(ctx context.Context, event Event) error {
	if event.UserID == "" {
		return fmt.Errorf("event.UserID is required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := activityKey(event.UserID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, int64(s.maxEvents-1))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

// Recent は新しい順にイベントを返します。
func (s *ActivityStore) Recent(ctx context.Context, userID string) ([]Event, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}
	items, err := s.rdb.LRange(ctx, activityKey(userID), 0, int64(s.maxEvents-1)).Result()
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(items))
	for _, item := range items {
		var event Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func activityKey(userID string) string {
	return activityKeyPrefix + userID
}
