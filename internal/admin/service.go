// Package admin manages back-office accounts and their tokens.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/models"
	"delivery-fleet-api-server/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultPageSize = 10

type Service struct {
	repo   storage.AdminRepo
	tokens *auth.TokenService
	log    logger.Logger
}

func NewService(repo storage.AdminRepo, tokens *auth.TokenService, log logger.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, log: log}
}

// Session is what a successful admin login returns.
type Session struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token,omitempty"`
	ID           string                 `json:"_id"`
	IsAdmin      bool                   `json:"isAdmin"`
	Login        string                 `json:"login"`
	Claims       map[string]interface{} `json:"claims"`
}

type CreateParams struct {
	Login    string
	Password string
	Name     string
	Claims   map[string]interface{}
}

// UpdateParams changes only the fields that are set.
type UpdateParams struct {
	ID       primitive.ObjectID
	Login    string
	Password string
	Name     string
	Claims   map[string]interface{}
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

func claimsFor(a *models.Admin) auth.Claims {
	perms := a.Claims
	if perms == nil {
		perms = map[string]interface{}{}
	}
	return auth.Claims{AdminID: a.ID.Hex(), IsAdmin: true, Login: a.Login, Permissions: perms}
}

func (s *Service) touch(ctx context.Context, id primitive.ObjectID) {
	if err := s.repo.TouchLastActive(ctx, id); err != nil {
		s.log.Warning("admin last activity not saved", logger.String("admin_id", id.Hex()), logger.Error(err))
	}
}

// --- Sessions ---

func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	if strings.TrimSpace(login) == "" || password == "" {
		return nil, apperr.BadParameters([]string{"login and password are required"})
	}

	a, err := s.repo.GetByLogin(ctx, normalizeLogin(login))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotAuthorized(apperr.CodeUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find admin: %w", err))
	}
	if !auth.CheckPasswordHash(password, a.Password) {
		s.log.Warning("admin login with wrong password", logger.String("login", a.Login))
		return nil, apperr.NotAuthorized(apperr.CodeBadPassword)
	}

	claims := claimsFor(a)
	access, err := s.tokens.GenerateAccessToken(claims)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(claims)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.touch(ctx, a.ID)

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ID:           claims.AdminID,
		IsAdmin:      true,
		Login:        a.Login,
		Claims:       claims.Permissions,
	}, nil
}

// Refresh issues a new access token for a valid refresh token. The admin is
// reloaded so changed permissions take effect.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperr.NotAuthorized("REFRESH_TOKEN_NOT_PROVIDED")
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil || !claims.IsAdmin {
		return "", apperr.BadParameters(nil).WithDesc("BAD_TOKEN")
	}
	id, err := primitive.ObjectIDFromHex(claims.AdminID)
	if err != nil {
		return "", apperr.BadParameters(nil).WithDesc("BAD_TOKEN")
	}

	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.NotAuthorized(apperr.CodeUserNotFound)
	}
	if err != nil {
		return "", apperr.Internal(err)
	}

	access, err := s.tokens.GenerateAccessToken(claimsFor(a))
	if err != nil {
		return "", apperr.Internal(err)
	}
	s.touch(ctx, a.ID)
	return access, nil
}

// --- Accounts ---

func (s *Service) List(ctx context.Context, offset, limit int64) ([]models.Admin, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	admins, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list admins: %w", err))
	}
	return admins, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("count admins: %w", err))
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeAdminNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Admin, error) {
	login := normalizeLogin(p.Login)
	if login == "" || p.Password == "" {
		return nil, apperr.BadParameters([]string{"login and password are required"})
	}
	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := time.Now()
	a := &models.Admin{
		Login:     login,
		Name:      p.Name,
		Password:  hash,
		Claims:    p.Claims,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.Claims == nil {
		a.Claims = map[string]interface{}{}
	}
	err = s.repo.Create(ctx, a)
	if errors.Is(err, storage.ErrConflict) {
		return nil, apperr.Conflict(apperr.CodeAdminAlreadyExist)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create admin: %w", err))
	}
	s.log.Info("admin created", logger.String("login", login))
	return a, nil
}

func (s *Service) Update(ctx context.Context, p UpdateParams) (*models.Admin, error) {
	a, err := s.repo.GetByID(ctx, p.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if login := normalizeLogin(p.Login); login != "" {
		a.Login = login
	}
	if p.Name != "" {
		a.Name = p.Name
	}
	if p.Password != "" {
		if a.Password, err = auth.HashPassword(p.Password); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	if p.Claims != nil {
		a.Claims = p.Claims
	}
	a.UpdatedAt = time.Now()

	err = s.repo.Update(ctx, a)
	if errors.Is(err, storage.ErrConflict) {
		return nil, apperr.Conflict(apperr.CodeAdminAlreadyExist)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("update admin: %w", err))
	}
	return a, nil
}

// Delete returns how many accounts were removed (0 or 1).
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("delete admin: %w", err))
	}
	return n, nil
}

// EnsureAdmin creates the account unless the login is already taken. It
// reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, login, password string) (bool, error) {
	_, err := s.repo.GetByLogin(ctx, normalizeLogin(login))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	if _, err := s.Create(ctx, CreateParams{Login: login, Password: password, Name: "Administrator"}); err != nil {
		if apperr.Is(err, apperr.CodeAdminAlreadyExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
