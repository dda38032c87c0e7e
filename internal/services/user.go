package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtExpDays = 365

// ErrEmailRequired is returned when registering without an email.
var ErrEmailRequired = errors.New("email is required")

// UserService handles user registration and bearer-token identity.
type UserService struct {
	users     UserStore
	jwtSecret string
}

// NewUserService creates a new user service
func NewUserService(users UserStore, jwtSecret string) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// Register creates a new user and returns it with a signed token.
func (s *UserService) Register(ctx context.Context, email, displayName string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, "", ErrEmailRequired
	}
	if displayName == "" {
		displayName = email
	}

	now := time.Now()
	user := &models.User{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdatePushToken registers or clears the user's push token.
func (s *UserService) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	return s.users.UpdatePushToken(ctx, userID, pushToken)
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}
	return userID, nil
}
