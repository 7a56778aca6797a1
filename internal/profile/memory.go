package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore はプロセス内のプロフィールストアです。開発環境とテストで使用します。
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Profile
	byEmail map[string]string
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Profile),
		byEmail: make(map[string]string),
	}
}

// Create はプロフィールを保存します。一意制約は PostgresStore と同じく ErrDuplicateEmail / ErrDuplicateID で返します。
func (s *MemoryStore) Create(ctx context.Context, p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[p.Email]; exists {
		return ErrDuplicateEmail
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, exists := s.byID[p.ID]; exists {
		return ErrDuplicateID
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	stored := *p
	s.byID[p.ID] = &stored
	s.byEmail[p.Email] = p.ID
	return nil
}

// FindByEmail はメールアドレスでプロフィールを取得します。
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	return s.copyOf(id), nil
}

// FindByID は ID でプロフィールを取得します。
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(id), nil
}

// DeleteByID はプロフィールを削除します。
func (s *MemoryStore) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, p.Email)
	delete(s.byID, id)
	return nil
}

// Len は保存されているプロフィール数を返します。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStore) copyOf(id string) *Profile {
	p, ok := s.byID[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}
