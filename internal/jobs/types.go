package jobs

import (
	"context"
	"time"
)

// EventType は認証イベントの種別を表します。
type EventType string

const (
	EventRegistered     EventType = "registered"
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventLogout         EventType = "logout"
)

// Event は監査用の認証イベントです。パスワードやトークンは含めません。
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"userId,omitempty"`
	Email      string    `json:"email"`
	ClientIP   string    `json:"clientIp,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher は認証イベントを非同期に記録する先です。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher はイベントを破棄します。Redis が無い開発環境とテストで使用します。
type NopPublisher struct{}

// Publish は何もしません。
func (NopPublisher) Publish(context.Context, Event) error { return nil }
