// Package users implements account registration, login and the refresh-token
// rotation of the API.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dkravets/kitafeed/internal/common"
	"github.com/dkravets/kitafeed/internal/server/auth"
	"github.com/dkravets/kitafeed/internal/server/config"
	"github.com/dkravets/kitafeed/internal/server/models"
	"github.com/dkravets/kitafeed/internal/server/repositories/refreshtokens"
	"github.com/dkravets/kitafeed/internal/server/repositories/users"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	repo                         users.Repository
	refreshTokenRepo             refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewService(repo users.Repository, refreshTokenRepo refreshtokens.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                         repo,
		refreshTokenRepo:             refreshTokenRepo,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates an account and immediately issues a token pair.
func (s *Service) Register(ctx context.Context, username, name, password string) (*TokenPair, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		UserName:     username,
		Name:         name,
		PasswordHash: hash,
	}

	user, err = s.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return s.issueTokens(ctx, user)
}

// Login verifies the password and issues a token pair. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, userName, password string) (*TokenPair, error) {
	user, err := s.repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrUnauthorized
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is invalidated and a
// fresh pair is issued. Expired or unknown tokens report ErrUnauthorized.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.refreshTokenRepo.Find(ctx, refreshToken)
	if err != nil {
		return nil, common.ErrUnauthorized
	}
	if time.Now().After(stored.Expires) {
		_ = s.refreshTokenRepo.Delete(ctx, refreshToken)
		return nil, common.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, common.ErrUnauthorized
	}

	if err := s.refreshTokenRepo.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// VerifyAccessToken returns the user id embedded in an access token.
func (s *Service) VerifyAccessToken(token string) (string, error) {
	return auth.GetUserIDFromToken(token, s.jwtSecret)
}

func (s *Service) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.Create(ctx, user.ID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
