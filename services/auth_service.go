package services

import (
	"fmt"
	"strings"

	"fluent-messenger/auth"
	"fluent-messenger/domain"
	"fluent-messenger/errors"
	"fluent-messenger/repositories"

	"github.com/google/uuid"
)

type IAuthService interface {
	Register(email, name, password string) (domain.User, Token, error)
	Login(email, password string) (domain.User, Token, error)
}

type Token string

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         auth.TokenIssuer
}

func NewAuthService(repo repositories.IUserRepository, tokens auth.TokenIssuer) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

// Register validates the request, hashes the password and persists the user.
// Validation runs before any expensive cryptographic work.
func (s *AuthService) Register(email, name, password string) (domain.User, Token, error) {
	req := auth.RegisterRequest{Email: email, Name: name, Password: password}
	if err := auth.ValidateRegister(req); err != nil {
		return domain.User{}, "", err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	emailKey := strings.ToLower(email)
	user := domain.User{
		ID:           uuid.New().String(),
		Email:        emailKey,
		Name:         strings.TrimSpace(name),
		Avatar:       AvatarURL(emailKey),
		PasswordHash: hashedPassword,
	}
	if err := s.userRepository.CreateUser(user); err != nil {
		return domain.User{}, "", err // propagates ErrUserAlreadyExists
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user.Sanitized(), Token(token), nil
}

// Login checks the credentials and issues a session token. Lookup and
// comparison failures both collapse to ErrInvalidCredentials to prevent
// user enumeration.
func (s *AuthService) Login(email, password string) (domain.User, Token, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email, Password: password}); err != nil {
		return domain.User{}, "", err
	}

	user, err := s.userRepository.GetUserByEmail(strings.ToLower(email))
	if err != nil {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return domain.User{}, "", errors.ErrTokenGeneration
	}
	return user.Sanitized(), Token(token), nil
}

// AvatarURL derives a deterministic placeholder avatar for a key.
func AvatarURL(key string) string {
	return "https://i.pravatar.cc/150?u=" + key
}
