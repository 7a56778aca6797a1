package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL はセッショントークンの有効期間です。
const TokenTTL = 15 * time.Minute

var (
	// ErrInvalidToken は署名不正・改ざん・期限切れ・解析不能なトークンで返されます。
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrMalformedPayload は署名は正しいが id/email を持たないトークンで返されます。
	ErrMalformedPayload = errors.New("auth: malformed token payload")
)

// Identity はトークンに埋め込まれるユーザー識別情報です。
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sessionClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService はセッショントークンの発行と検証を行います。
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// TokenOption は TokenService の設定を変更します。
type TokenOption func(*TokenService)

// WithClock は現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenService は署名鍵を受け取り TokenService を作成します。
func NewTokenService(secret []byte, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	s := &TokenService{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue は identity を埋め込んだ HS256 トークンを発行します。
func (s *TokenService) Issue(identity Identity) (string, error) {
	now := s.now()
	claims := sessionClaims{
		ID:    identity.ID,
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify は署名・有効期限・ペイロード形状を検証して identity を返します。
func (s *TokenService) Verify(token string) (Identity, error) {
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrMalformedPayload
	}
	id, idOK := claims["id"].(string)
	email, emailOK := claims["email"].(string)
	if !idOK || !emailOK || id == "" || email == "" {
		return Identity{}, ErrMalformedPayload
	}

	return Identity{ID: id, Email: email}, nil
}
