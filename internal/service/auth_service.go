package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, companies repository.CompanyRepository) *AuthService {
	return &AuthService{
		users:      users,
		companies:  companies,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterCompany creates a new tenant together with its first admin.
func (s *AuthService) RegisterCompany(ctx context.Context, companyName, name, email, password string) (*domain.User, string, time.Time, error) {
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	company := &domain.Company{Name: companyName}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		CompanyID:    company.ID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}
	return s.withToken(user)
}

// RegisterMember creates a USER or MODERATOR account under an existing
// tenant. Moderator skills are taken as given; the triage core only
// reads them.
func (s *AuthService) RegisterMember(ctx context.Context, companyID, name, email, password string, role domain.Role, skills []string) (*domain.User, string, time.Time, error) {
	if role != domain.RoleUser && role != domain.RoleModerator {
		return nil, "", time.Time{}, errors.New("role must be USER or MODERATOR")
	}
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, errors.New("unknown company")
		}
		return nil, "", time.Time{}, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		CompanyID:    companyID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Skills:       skills,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}
	return s.withToken(user)
}

// Login authenticates any account by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, errors.New("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errors.New("invalid credentials")
	}
	return s.withToken(user)
}

// UpdateSkills replaces a moderator's skill list.
func (s *AuthService) UpdateSkills(ctx context.Context, user *domain.User, skills []string) error {
	user.Skills = skills
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return errors.New("email already registered")
	} else if err != pgx.ErrNoRows {
		return err
	}
	return nil
}

func (s *AuthService) withToken(user *domain.User) (*domain.User, string, time.Time, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}
