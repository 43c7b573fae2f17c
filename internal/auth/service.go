// Package auth は登録・ログイン・ログアウトとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/startupconnect/internal/metrics"
	"github.com/hitoshi/startupconnect/internal/model"
	"github.com/hitoshi/startupconnect/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	metrics     metrics.MetricsCollector
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		metrics:     collector,
		config:      config,
		now:         time.Now,
	}
}

// Register は新しいIdentityを登録し、そのままログイン状態のセッションを発行する。
// 入力エラーとメールアドレス重複は*model.AppErrorで返し、保存済みの一覧は変更しない。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Identity, *model.Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Company = strings.TrimSpace(in.Company)
	in.Description = strings.TrimSpace(in.Description)

	if err := validateRegister(in); err != nil {
		return nil, nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &model.Identity{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Email:       in.Email,
		Password:    hash,
		Role:        model.Role(in.Role),
		Company:     in.Company,
		Description: in.Description,
		CreatedAt:   s.now(),
	}

	if err := s.identRepo.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, nil, model.NewDuplicateEmailError()
		}
		return nil, nil, fmt.Errorf("failed to create identity: %w", err)
	}

	session, err := s.createSession(ctx, identity.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordRegistration(string(identity.Role))
	slog.Info("user registered",
		slog.String("user_id", identity.ID),
		slog.String("role", string(identity.Role)),
	)

	return identity, session, nil
}

// Login はメールアドレスとパスワードを照合してセッションを発行する。
// メールアドレスが未登録の場合とパスワード不一致の場合は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Identity, *model.Session, error) {
	identity, err := s.identRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		s.metrics.RecordLogin(false)
		return nil, nil, model.NewInvalidCredentialsError()
	}

	ok, err := ComparePassword(password, identity.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compare password: %w", err)
	}
	if !ok {
		s.metrics.RecordLogin(false)
		slog.Info("login rejected", slog.String("user_id", identity.ID))
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, identity.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordLogin(true)
	slog.Info("user logged in", slog.String("user_id", identity.ID))
	return identity, session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// FindSession はセッションIDから有効なセッションを取得する。
// セッションが無効な場合、または参照先のIdentityが存在しない場合はnilを返す。
// セッションミドルウェアから利用される。
func (s *Service) FindSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	identity, err := s.identRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		slog.Info("session references missing identity", slog.String("user_id", session.UserID))
		return nil, nil
	}

	return session, nil
}

// IdentityByID は指定IDのIdentityを取得する。
func (s *Service) IdentityByID(ctx context.Context, userID string) (*model.Identity, error) {
	identity, err := s.identRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		return nil, model.NewUserNotFoundError()
	}
	return identity, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
