package services

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"fluent-messenger/auth"
	"fluent-messenger/errors"
	"fluent-messenger/repositories"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens := auth.NewTokenIssuer("test-key", time.Hour)
	return NewAuthService(repositories.NewUserRepository(db), tokens)
}

func Test_Register_And_Login(t *testing.T) {
	req := require.New(t)
	svc := newAuthService(t)

	user, token, err := svc.Register("Alice@Example.com", "Alice", "a sufficiently long password")
	req.NoError(err)
	req.NotEmpty(token)
	req.Equal("alice@example.com", user.Email, "email is lowercased")
	req.Empty(user.PasswordHash, "credential secret never leaves the service")
	req.NotEmpty(user.Avatar)

	loggedIn, token, err := svc.Login("alice@example.com", "a sufficiently long password")
	req.NoError(err)
	req.NotEmpty(token)
	req.Equal(user.ID, loggedIn.ID)
}

func Test_Register_Rejects_Duplicates_And_Bad_Input(t *testing.T) {
	req := require.New(t)
	svc := newAuthService(t)

	_, _, err := svc.Register("alice@example.com", "Alice", "a sufficiently long password")
	req.NoError(err)

	_, _, err = svc.Register("alice@example.com", "Imposter", "another long password")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	_, _, err = svc.Register("not-an-email", "Alice", "a sufficiently long password")
	req.ErrorIs(err, errors.ErrValidation)

	_, _, err = svc.Register("bob@example.com", "Bob", "short")
	req.ErrorIs(err, errors.ErrValidation)
}

func Test_Login_Failures_Are_Indistinguishable(t *testing.T) {
	req := require.New(t)
	svc := newAuthService(t)

	_, _, err := svc.Register("alice@example.com", "Alice", "a sufficiently long password")
	req.NoError(err)

	// Unknown user and wrong password produce the same error.
	_, _, err = svc.Login("nobody@example.com", "a sufficiently long password")
	req.ErrorIs(err, errors.ErrInvalidCredentials)

	_, _, err = svc.Login("alice@example.com", "the wrong password")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}
