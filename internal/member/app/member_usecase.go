package app

import (
	"context"
	"fmt"
	"time"

	"legal_marketplace_service/internal/member/domain"
	"legal_marketplace_service/internal/member/repository"
	"legal_marketplace_service/pkg/apperr"
	"legal_marketplace_service/pkg/database"
	"legal_marketplace_service/pkg/encrypt"
	"legal_marketplace_service/pkg/logger"
	token "legal_marketplace_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// displayNameTTL bounds how stale a cached display name can get.
const displayNameTTL = 10 * time.Minute

// MemberUseCase account services of the marketplace
type MemberUseCase interface {
	Register(ctx context.Context, email, password, displayName string, role token.RoleType) error
	FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
	DisplayName(ctx context.Context, memberID string) (string, error)
}

type memberUseCase struct {
	memberRepo repository.MemberRepository
	sessionTTL time.Duration
	redisRepo  database.RedisRepository[domain.MemberSession]
	nameCache  database.RedisRepository[string]
}

// NewMemberUseCase create a MemberUseCase
func NewMemberUseCase(memberRepo repository.MemberRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.MemberSession],
	nameCache database.RedisRepository[string],
) MemberUseCase {
	return &memberUseCase{
		memberRepo: memberRepo,
		sessionTTL: sessionTTL,
		redisRepo:  redisRepo,
		nameCache:  nameCache,
	}
}

// Register creates a lawyer or client account.
func (m *memberUseCase) Register(ctx context.Context, email, password, displayName string, role token.RoleType) error {
	if role != token.RoleLawyer && role != token.RoleClient {
		return apperr.Validation("role must be lawyer or client")
	}
	if displayName == "" {
		return apperr.Validation("display name is required")
	}
	if err := encrypt.ValidatePasswordStrength(password); err != nil {
		return apperr.Validation(err.Error())
	}

	if _, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email}); err == nil {
		return apperr.Validation("email already exists")
	}

	pw, err := encrypt.HashPassword(password)
	if err != nil {
		return err
	}

	member := domain.Member{
		MemberID:    uuid.New().String(),
		Email:       email,
		Password:    pw,
		DisplayName: displayName,
		Role:        string(role),
	}

	logger.Log.Info(fmt.Sprintf("usecase Register : %s (%s)", member.Email, member.Role))

	return m.memberRepo.CreateMember(ctx, &member)
}

// FindMember looks a member up by any MemberQuery condition.
func (m *memberUseCase) FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error) {
	return m.memberRepo.FindByMember(ctx, param)
}

// Login verifies the credentials and returns a signed JWT.
func (m *memberUseCase) Login(ctx context.Context, email, password string) (string, error) {
	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email})
	if err != nil {
		logger.Log.Error("email can't find!!!")
		return "", apperr.Auth("member not found")
	}

	if err = member.IsPasswordMatch(password); err != nil {
		logger.Log.Error("password can't match!!!")
		return "", apperr.Auth("wrong password")
	}

	member.Status = domain.MemberStatusOnLine

	t, err := token.GenerateJWTWrapper(member.MemberID, member.Role)
	if err != nil {
		return "", err
	}

	now := time.Now()
	session := domain.MemberSession{
		Token:        t,
		MemberID:     member.MemberID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(m.sessionTTL),
	}

	if err := m.redisRepo.Set(ctx, member.MemberID, session, m.sessionTTL); err != nil {
		logger.Log.Error("session store err :", zap.String("err", err.Error()))
	}

	if err := m.memberRepo.UpdateMemberStatus(ctx, member); err != nil {
		return "", err
	}

	return t, nil
}

// Logout drops the session and flips the member offline.
func (m *memberUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWTWrapper(t)
	if err != nil {
		logger.Log.Error("Logout err :", zap.String("err", err.Error()))
		return apperr.Auth(err.Error())
	}

	if err := m.redisRepo.Del(ctx, tokenInfo.MemberID); err != nil {
		logger.Log.Error("session del err :", zap.String("err", err.Error()))
	}

	return m.memberRepo.UpdateMemberStatus(ctx, &domain.Member{
		MemberID: tokenInfo.MemberID,
		Status:   domain.MemberStatusOffLine,
	})
}

// DisplayName resolves a member id to its display name, Redis cached.
// The chat service uses this for typing indicators.
func (m *memberUseCase) DisplayName(ctx context.Context, memberID string) (string, error) {
	if name, err := m.nameCache.Get(ctx, "member:name:"+memberID); err == nil && name != "" {
		return name, nil
	}

	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{MemberID: &memberID})
	if err != nil {
		return "", err
	}

	if err := m.nameCache.Set(ctx, "member:name:"+memberID, member.DisplayName, displayNameTTL); err != nil {
		logger.Log.Warnf("display name cache err :", err)
	}
	return member.DisplayName, nil
}
