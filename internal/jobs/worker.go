// Package jobs は認証イベントの非同期記録を提供します。
//
// 認証フローは Publisher にイベントを渡すだけで、記録の成否はレスポンスに影響しません。
// ワーカーは Asynq のタスクを受け取り、ユーザーごとの直近イベントを Redis に保存します。
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

func (m *Manager) handleAuthEvent(ctx context.Context, task *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		// 再試行しても直らないためスキップする
		return fmt.Errorf("invalid event payload: %v: %w", err, asynq.SkipRetry)
	}

	// 未登録メールアドレスへのログイン失敗などは紐付け先が無い
	if event.UserID == "" {
		return nil
	}

	if err := m.store.Append(ctx, event); err != nil {
		return err
	}
	return nil
}
