package services

import (
	"fmt"

	"github.com/samber/lo"

	"fluent-messenger/domain"
	"fluent-messenger/errors"
	"fluent-messenger/repositories"
)

type IUserService interface {
	ListUsers() ([]domain.User, error)
	GetUser(userID string) (domain.User, error)
	UpdateProfile(userID string, name, avatar *string) (domain.User, error)
}

// UserService serves the user directory with credential secrets stripped.
type UserService struct {
	userRepository repositories.IUserRepository
}

func NewUserService(repo repositories.IUserRepository) *UserService {
	return &UserService{userRepository: repo}
}

func (s *UserService) ListUsers() ([]domain.User, error) {
	users, err := s.userRepository.ListUsers()
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) domain.User {
		return u.Sanitized()
	}), nil
}

func (s *UserService) GetUser(userID string) (domain.User, error) {
	user, err := s.userRepository.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}

func (s *UserService) UpdateProfile(userID string, name, avatar *string) (domain.User, error) {
	if name == nil && avatar == nil {
		return domain.User{}, fmt.Errorf("%w: no update fields provided", errors.ErrValidation)
	}
	user, err := s.userRepository.UpdateProfile(userID, name, avatar)
	if err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}
