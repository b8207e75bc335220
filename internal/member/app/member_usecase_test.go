package app

import (
	"context"
	"testing"
	"time"

	"legal_marketplace_service/internal/member/domain"
	"legal_marketplace_service/pkg/apperr"
	"legal_marketplace_service/pkg/encrypt"
	"legal_marketplace_service/pkg/logger"
	"legal_marketplace_service/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	m.Run()
}

func newTestUseCase(repo *MockMemberRepository) MemberUseCase {
	return NewMemberUseCase(repo, time.Hour,
		newMemRedisRepo[domain.MemberSession](), newMemRedisRepo[string]())
}

func TestRegisterLawyer(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	repo.On("FindByMember", mock.Anything, mock.Anything).
		Return(nil, apperr.NotFound("no member")).Once()
	repo.On("CreateMember", mock.Anything, mock.MatchedBy(func(m *domain.Member) bool {
		return m.Email == "jane@example.com" &&
			m.Role == string(token.RoleLawyer) &&
			m.DisplayName == "Jane Advocate" &&
			m.Password != "Str0ngPass!"
	})).Return(nil).Once()

	err := uc.Register(context.Background(), "jane@example.com", "Str0ngPass!", "Jane Advocate", token.RoleLawyer)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	err := uc.Register(context.Background(), "x@example.com", "Str0ngPass!", "X", token.RoleAdmin)
	assert.True(t, apperr.IsValidation(err))
	repo.AssertNotCalled(t, "CreateMember")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	repo.On("FindByMember", mock.Anything, mock.Anything).
		Return(&domain.Member{Email: "jane@example.com"}, nil).Once()

	err := uc.Register(context.Background(), "jane@example.com", "Str0ngPass!", "Jane", token.RoleClient)
	assert.True(t, apperr.IsValidation(err))
}

func TestRegisterWeakPassword(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	err := uc.Register(context.Background(), "x@example.com", "short", "X", token.RoleClient)
	assert.True(t, apperr.IsValidation(err))
}

func TestLoginIssuesToken(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	hash, err := encrypt.HashPassword("Str0ngPass!")
	require.NoError(t, err)

	member := &domain.Member{
		MemberID:    "member-1",
		Email:       "jane@example.com",
		Password:    hash,
		DisplayName: "Jane Advocate",
		Role:        string(token.RoleLawyer),
	}
	repo.On("FindByMember", mock.Anything, mock.Anything).Return(member, nil).Once()
	repo.On("UpdateMemberStatus", mock.Anything, mock.MatchedBy(func(m *domain.Member) bool {
		return m.Status == domain.MemberStatusOnLine
	})).Return(nil).Once()

	tok, err := uc.Login(context.Background(), "jane@example.com", "Str0ngPass!")
	require.NoError(t, err)

	claims, err := token.ParseJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "member-1", claims.MemberID)
	assert.Equal(t, string(token.RoleLawyer), claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	hash, err := encrypt.HashPassword("Str0ngPass!")
	require.NoError(t, err)

	repo.On("FindByMember", mock.Anything, mock.Anything).
		Return(&domain.Member{Password: hash}, nil).Once()

	_, err = uc.Login(context.Background(), "jane@example.com", "wrong")
	assert.True(t, apperr.IsAuth(err))
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	repo.On("FindByMember", mock.Anything, mock.Anything).
		Return(nil, apperr.NotFound("no member")).Once()

	_, err := uc.Login(context.Background(), "ghost@example.com", "whatever")
	assert.True(t, apperr.IsAuth(err))
}

func TestLogoutBadToken(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	err := uc.Logout(context.Background(), "not-a-jwt")
	assert.True(t, apperr.IsAuth(err))
}

func TestDisplayNameCachesLookup(t *testing.T) {
	repo := new(MockMemberRepository)
	uc := newTestUseCase(repo)

	repo.On("FindByMember", mock.Anything, mock.MatchedBy(func(q *domain.MemberQuery) bool {
		return q.MemberID != nil && *q.MemberID == "member-1"
	})).Return(&domain.Member{MemberID: "member-1", DisplayName: "Jane Advocate"}, nil).Once()

	name, err := uc.DisplayName(context.Background(), "member-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Advocate", name)

	// second call is served from the cache, the repo expectation is Once
	name, err = uc.DisplayName(context.Background(), "member-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Advocate", name)

	repo.AssertExpectations(t)
}
