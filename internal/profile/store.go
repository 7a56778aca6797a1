// Package profile はユーザープロフィールの永続化を提供します。
package profile

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateEmail はメールアドレスの一意制約に違反した場合に返されます。
	ErrDuplicateEmail = errors.New("profile: email already exists")
	// ErrDuplicateID は既存プロフィールと同じ ID で作成しようとした場合に返されます。
	ErrDuplicateID = errors.New("profile: id already exists")
	// ErrNotFound は対象のプロフィールが存在しない場合に返されます。
	ErrNotFound = errors.New("profile: not found")
)

// Profile はユーザーの識別情報です。HashedPassword は外部へシリアライズしません。
type Profile struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store はプロフィールストアの操作を定義します。
// Find 系は該当なしの場合 nil, nil を返し、エラーはストア障害のみです。
type Store interface {
	Create(ctx context.Context, p *Profile) error
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	FindByID(ctx context.Context, id string) (*Profile, error)
	DeleteByID(ctx context.Context, id string) error
}
