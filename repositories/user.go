//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"fluent-messenger/domain"
	"fluent-messenger/errors"
)

type IUserRepository interface {
	CreateUser(user domain.User) error
	GetUserByEmail(email string) (domain.User, error)
	GetUserByID(userID string) (domain.User, error)
	ListUsers() ([]domain.User, error)
	UpdateProfile(userID string, name, avatar *string) (domain.User, error)
}

// UserRepository persists users keyed by lowercased email, the same
// whole-state JSON discipline as chats.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

const userKeyPrefix = "user:"

func userKey(email string) []byte {
	return []byte(userKeyPrefix + strings.ToLower(email))
}

// CreateUser persists the user, rejecting duplicate emails. The existence
// check and the write share one transaction so two concurrent registrations
// of the same email cannot both succeed.
func (r UserRepository) CreateUser(user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := userKey(user.Email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		return txn.Set(key, data)
	})
}

func (r UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetUserByID scans the user keyspace. Inefficient for a large directory;
// a secondary id->email index would be needed before that happens.
func (r UserRepository) GetUserByID(userID string) (domain.User, error) {
	var found *domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		return scanUsers(txn, func(user domain.User) {
			if user.ID == userID {
				found = &user
			}
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	if found == nil {
		return domain.User{}, errors.ErrUserNotFound
	}
	return *found, nil
}

func (r UserRepository) ListUsers() ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		return scanUsers(txn, func(user domain.User) {
			users = append(users, user)
		})
	})
	return users, err
}

// UpdateProfile patches name and/or avatar atomically. The id lookup and the
// write run in the same transaction, so a concurrent profile update cannot
// be lost.
func (r UserRepository) UpdateProfile(userID string, name, avatar *string) (domain.User, error) {
	var updated domain.User
	err := r.db.Update(func(txn *badger.Txn) error {
		var found *domain.User
		if err := scanUsers(txn, func(user domain.User) {
			if user.ID == userID {
				found = &user
			}
		}); err != nil {
			return err
		}
		if found == nil {
			return errors.ErrUserNotFound
		}
		if name != nil {
			found.Name = strings.TrimSpace(*name)
		}
		if avatar != nil {
			found.Avatar = strings.TrimSpace(*avatar)
		}
		data, err := json.Marshal(*found)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		updated = *found
		return txn.Set(userKey(found.Email), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

func scanUsers(txn *badger.Txn, visit func(domain.User)) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	prefix := []byte(userKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			var user domain.User
			if err := json.Unmarshal(val, &user); err != nil {
				return err
			}
			visit(user)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
