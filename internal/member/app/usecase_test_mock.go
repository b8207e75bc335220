package app

import (
	"context"
	"sync"
	"time"

	"legal_marketplace_service/internal/member/domain"
	"legal_marketplace_service/pkg/apperr"

	"github.com/stretchr/testify/mock"
)

// MockMemberRepository Mock MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

// CreateMember mock create member
func (m *MockMemberRepository) CreateMember(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

// UpdateMemberStatus mock update status
func (m *MockMemberRepository) UpdateMemberStatus(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

// FindByMember mock find member
func (m *MockMemberRepository) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	args := m.Called(ctx, memberQuery)
	if member, ok := args.Get(0).(*domain.Member); ok {
		return member, args.Error(1)
	}
	return nil, args.Error(1)
}

// memRedisRepo in-memory RedisRepository stand-in
type memRedisRepo[T any] struct {
	mu    sync.Mutex
	items map[string]T
}

func newMemRedisRepo[T any]() *memRedisRepo[T] {
	return &memRedisRepo[T]{items: make(map[string]T)}
}

func (r *memRedisRepo[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = value
	return nil
}

func (r *memRedisRepo[T]) Get(ctx context.Context, key string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[key]
	if !ok {
		var zero T
		return zero, apperr.NotFound("no value for " + key)
	}
	return v, nil
}

func (r *memRedisRepo[T]) Del(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

func (r *memRedisRepo[T]) GetTTL(ctx context.Context, key string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[key]; ok {
		return 60, nil
	}
	return 0, nil
}

func (r *memRedisRepo[T]) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}
