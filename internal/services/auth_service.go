package services

import (
	"context"
	"fmt"
	"time"

	"north-backend/internal/adapters/googleapi"
	"north-backend/internal/models"
	"north-backend/internal/repositories/postgres"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService runs the Google OAuth2 login flow and issues API tokens.
type AuthService struct {
	users     postgres.UserRepository
	google    *googleapi.Client
	redis     *RedisService
	jwtSecret string
	jwtExpire time.Duration
}

func NewAuthService(users postgres.UserRepository, google *googleapi.Client, redis *RedisService, jwtSecret string, jwtExpire time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		google:    google,
		redis:     redis,
		jwtSecret: jwtSecret,
		jwtExpire: jwtExpire,
	}
}

// AuthURL returns the Google consent-screen URL for a fresh state nonce.
func (s *AuthService) AuthURL(ctx context.Context) (string, error) {
	state := uuid.New().String()
	if err := s.redis.StoreOAuthState(ctx, state); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.google.AuthCodeURL(state), nil
}

// Callback completes the flow: redeems the state, exchanges the code,
// verifies the ID token, provisions the user on first login, stores the
// Google credential material and issues an API token.
func (s *AuthService) Callback(ctx context.Context, code, state string) (*models.AuthCallbackResponse, error) {
	if err := s.redis.ConsumeOAuthState(ctx, state); err != nil {
		return nil, err
	}

	token, identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetOrCreateByEmail(ctx, identity.Email, identity.GivenName, identity.FamilyName)
	if err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}

	profile := &models.UserProfile{
		UserID:       user.ID,
		GoogleToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
	}
	if err := s.users.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("store profile: %w", err)
	}

	apiToken, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	return &models.AuthCallbackResponse{
		UserResponse: models.NewUserResponse(user),
		Profile:      profile,
		APIToken:     apiToken,
	}, nil
}

// IssueToken signs an HS256 API token for the user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.jwtExpire).Unix(),
	})

	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Profile returns the current user with its Google profile attached.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}
