// Package auth は認証・セッション機能を提供します。
//
// セッションはサーバー側に保存せず、署名付きトークン（JWT）を HttpOnly Cookie で
// クライアントに持たせます。ログアウトは Cookie の削除のみで、発行済みトークンは
// 有効期限まで失効しません。
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatekeeper/internal/jobs"
	"github.com/yourusername/gatekeeper/internal/profile"
)

// ContextIdentityKey は、ゲートを通過したリクエストの Identity を共有するためのキーです。
const ContextIdentityKey = "auth.identity"

// Options は Manager の依存関係です。
type Options struct {
	Store   profile.Store
	Tokens  *TokenService
	Cookies *CookieManager
	Hasher  *Hasher
	Events  jobs.Publisher
	Logger  *log.Logger
	// Debug が true の場合、ゲートで拒否した理由をログに出します。
	Debug bool
}

// Manager は認証フローとゲートをまとめた構造体です。
type Manager struct {
	store   profile.Store
	tokens  *TokenService
	cookies *CookieManager
	hasher  *Hasher
	events  jobs.Publisher
	logger  *log.Logger
	debug   bool
	now     func() time.Time
}

// NewManager は認証マネージャーを作成します。
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("store is nil")
	}
	if opts.Tokens == nil {
		return nil, errors.New("token service is nil")
	}
	if opts.Cookies == nil {
		return nil, errors.New("cookie manager is nil")
	}

	m := &Manager{
		store:   opts.Store,
		tokens:  opts.Tokens,
		cookies: opts.Cookies,
		hasher:  opts.Hasher,
		events:  opts.Events,
		logger:  opts.Logger,
		debug:   opts.Debug,
		now:     time.Now,
	}
	if m.hasher == nil {
		m.hasher = NewHasher()
	}
	if m.events == nil {
		m.events = jobs.NopPublisher{}
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	return m, nil
}

// IdentityFrom はゲートが設定した Identity を取り出します。
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// startSession はトークンを発行して Cookie に設定します。
func (m *Manager) startSession(c *gin.Context, p *profile.Profile) error {
	token, err := m.tokens.Issue(Identity{ID: p.ID, Email: p.Email})
	if err != nil {
		return err
	}
	m.cookies.Set(c.Writer, token)
	return nil
}

// publish は監査イベントを投入します。失敗してもレスポンスには影響させません。
// userID が空のイベントは保存先が無いため投入しません。
func (m *Manager) publish(ctx context.Context, c *gin.Context, eventType jobs.EventType, userID, email string) {
	if userID == "" {
		return
	}
	event := jobs.Event{
		Type:       eventType,
		UserID:     userID,
		Email:      email,
		ClientIP:   c.ClientIP(),
		OccurredAt: m.now().UTC(),
	}
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.Printf("failed to publish %s event user=%s: %v", eventType, userID, err)
	}
}
