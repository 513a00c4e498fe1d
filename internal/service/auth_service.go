package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type authStaffRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Staff, error)
}

type authHODRepository interface {
	FindAccountByUsername(ctx context.Context, username string) (*models.HODAccount, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	AdminUsername     string
	AdminPasswordHash string
}

// AuthService issues access tokens for the administrator, HODs and staff.
type AuthService struct {
	staff     authStaffRepository
	hods      authHODRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(staff authStaffRepository, hods authHODRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{staff: staff, hods: hods, validator: validate, logger: logger, config: config}
}

// AdminLogin checks the configured administrator credential.
func (s *AuthService) AdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}
	if s.config.AdminUsername == "" || s.config.AdminPasswordHash == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "administrator login is not configured")
	}
	if !strings.EqualFold(strings.TrimSpace(req.Username), s.config.AdminUsername) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}

	info := models.UserInfo{Username: s.config.AdminUsername, FullName: "Administrator", Role: models.RoleAdmin}
	return s.issue(info, "admin")
}

// StaffLogin authenticates a staff member.
func (s *AuthService) StaffLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}
	staff, err := s.staff.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		return nil, credentialLookupError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}

	info := models.UserInfo{ID: staff.ID, Username: staff.Username, FullName: staff.FullName, Role: models.RoleStaff}
	return s.issue(info, staff.ID)
}

// HODLogin authenticates a staff member who heads a department.
func (s *AuthService) HODLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}
	account, err := s.hods.FindAccountByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		return nil, credentialLookupError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}

	info := models.UserInfo{
		ID:       account.ID,
		Username: account.Username,
		FullName: account.FullName,
		Role:     models.RoleHOD,
		DeptCode: account.DeptCode,
	}
	return s.issue(info, account.ID)
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) issue(info models.UserInfo, subject string) (*models.LoginResponse, error) {
	token, issuedAt, err := s.generateAccessToken(info, subject)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	s.logger.Info("login", zap.String("username", info.Username), zap.String("role", string(info.Role)))
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        info,
		IssuedAt:    issuedAt,
	}, nil
}

func (s *AuthService) generateAccessToken(info models.UserInfo, subject string) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		StaffID:  info.ID,
		Username: info.Username,
		Role:     info.Role,
		DeptCode: info.DeptCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func credentialLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}
	return appErrors.Internal(err, "failed to fetch account")
}
